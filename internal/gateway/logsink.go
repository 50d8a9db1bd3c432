package gateway

import (
	"context"

	"github.com/nidhogg/deskpet/internal/surface"
	"go.uber.org/zap"
)

// LogSink writes speech and lifecycle events to the log, which is all a
// headless run shows.
type LogSink struct {
	filter Filter
	logger *zap.Logger
}

// NewLogSink creates a log sink that skips high-rate events.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{filter: SkipChatter, logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Publish(_ context.Context, ev surface.Event) error {
	if !s.filter(ev) {
		return nil
	}
	fields := []zap.Field{zap.String("agent", ev.Agent)}
	if ev.Text != "" {
		fields = append(fields, zap.String("text", ev.Text), zap.String("style", string(ev.Style)))
	}
	s.logger.Info(string(ev.Type), fields...)
	return nil
}

func (s *LogSink) Close() error { return nil }
