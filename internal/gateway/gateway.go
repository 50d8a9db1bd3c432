// Package gateway fans surface events out to the pet's viewers and feeds.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/nidhogg/deskpet/internal/surface"
	"go.uber.org/zap"
)

const defaultQueueSize = 1024

// Gateway queues events from the timeline and delivers them to every
// registered sink on its own goroutine, so a slow sink never stalls movement.
type Gateway struct {
	sinks   map[string]Sink
	queue   chan surface.Event
	dropped atomic.Int64
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewGateway creates a gateway with a bounded queue. queueSize <= 0 uses
// the default.
func NewGateway(queueSize int, logger *zap.Logger) *Gateway {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Gateway{
		sinks:  make(map[string]Sink),
		queue:  make(chan surface.Event, queueSize),
		logger: logger,
	}
}

// Register adds a sink. A sink with the same name replaces the old one.
func (g *Gateway) Register(s Sink) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sinks[s.Name()] = s
	g.logger.Info("registered event sink", zap.String("sink", s.Name()))
}

// Emit queues ev for delivery. When the queue is full the event is dropped.
func (g *Gateway) Emit(ev surface.Event) {
	select {
	case g.queue <- ev:
	default:
		if n := g.dropped.Add(1); n%100 == 1 {
			g.logger.Warn("event queue full, dropping events",
				zap.String("type", string(ev.Type)), zap.Int64("dropped", n))
		}
	}
}

// Dropped returns how many events were lost to a full queue.
func (g *Gateway) Dropped() int64 { return g.dropped.Load() }

// Run delivers queued events until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-g.queue:
			g.Broadcast(ctx, ev)
		}
	}
}

// Broadcast delivers ev to every sink now. Sink errors are logged and
// returned joined.
func (g *Gateway) Broadcast(ctx context.Context, ev surface.Event) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error
	for name, s := range g.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			g.logger.Debug("sink publish failed",
				zap.String("sink", name), zap.String("type", string(ev.Type)), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (g *Gateway) Close() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for name, s := range g.sinks {
		if err := s.Close(); err != nil {
			g.logger.Error("sink close failed", zap.String("sink", name), zap.Error(err))
		}
	}
	return nil
}

// Sinks returns the registered sink names, sorted.
func (g *Gateway) Sinks() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.sinks))
	for n := range g.sinks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
