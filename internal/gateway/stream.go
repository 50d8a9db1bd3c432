package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nidhogg/deskpet/internal/surface"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StreamSink appends speech and lifecycle events to a Redis stream so other
// processes can follow what the pet is doing.
type StreamSink struct {
	rdb    *redis.Client
	stream string
	maxLen int64
	runID  string
	filter Filter
	logger *zap.Logger
}

// NewStreamSink connects to redisURL and checks the connection.
func NewStreamSink(ctx context.Context, redisURL, stream string, maxLen int64, logger *zap.Logger) (*StreamSink, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewStreamSinkFromClient(rdb, stream, maxLen, logger), nil
}

// NewStreamSinkFromClient wraps an existing client.
func NewStreamSinkFromClient(rdb *redis.Client, stream string, maxLen int64, logger *zap.Logger) *StreamSink {
	if stream == "" {
		stream = "deskpet:events"
	}
	return &StreamSink{
		rdb:    rdb,
		stream: stream,
		maxLen: maxLen,
		runID:  uuid.NewString(),
		filter: SkipChatter,
		logger: logger,
	}
}

func (s *StreamSink) Name() string { return "redis" }

// RunID identifies this process's entries in the stream.
func (s *StreamSink) RunID() string { return s.runID }

// Publish appends ev to the stream, trimming it to roughly maxLen entries.
func (s *StreamSink) Publish(ctx context.Context, ev surface.Event) error {
	if !s.filter(ev) {
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"run":  s.runID,
			"type": string(ev.Type),
			"data": string(data),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if _, err := s.rdb.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("publish to %s: %w", s.stream, err)
	}
	return nil
}

// Recent returns up to n of the newest events in the stream, oldest first.
func (s *StreamSink) Recent(ctx context.Context, n int64) ([]surface.Event, error) {
	msgs, err := s.rdb.XRevRangeN(ctx, s.stream, "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.stream, err)
	}
	events := make([]surface.Event, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		data, ok := msgs[i].Values["data"].(string)
		if !ok {
			continue
		}
		var ev surface.Event
		if json.Unmarshal([]byte(data), &ev) == nil {
			events = append(events, ev)
		}
	}
	return events, nil
}

// Close shuts down the Redis connection.
func (s *StreamSink) Close() error {
	return s.rdb.Close()
}
