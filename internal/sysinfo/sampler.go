// Package sysinfo samples host CPU and memory usage for the calm lines.
package sysinfo

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"
)

// Stats is one host usage sample.
type Stats struct {
	CPUPercent float64   `json:"cpu_percent"`
	MemPercent float64   `json:"mem_percent"`
	SampledAt  time.Time `json:"sampled_at"`
}

// CPU formats the CPU usage the way the pet says it.
func (s Stats) CPU() string { return fmt.Sprintf("%.1f%%", s.CPUPercent) }

// Mem formats the memory usage the way the pet says it.
func (s Stats) Mem() string { return fmt.Sprintf("%.1f%%", s.MemPercent) }

// Probe takes one sample.
type Probe func(ctx context.Context) (Stats, error)

// HostProbe measures CPU over one second and reads virtual memory.
func HostProbe(ctx context.Context) (Stats, error) {
	pcts, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil {
		return Stats{}, fmt.Errorf("cpu percent: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("virtual memory: %w", err)
	}
	s := Stats{MemPercent: vm.UsedPercent, SampledAt: time.Now()}
	if len(pcts) > 0 {
		s.CPUPercent = pcts[0]
	}
	return s, nil
}

// Sampler refreshes Stats in the background. Readers never block.
type Sampler struct {
	probe    Probe
	interval time.Duration
	latest   atomic.Pointer[Stats]
	logger   *zap.Logger
}

// NewSampler creates a sampler. A nil probe uses HostProbe.
func NewSampler(probe Probe, interval time.Duration, logger *zap.Logger) *Sampler {
	if probe == nil {
		probe = HostProbe
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sampler{probe: probe, interval: interval, logger: logger}
}

// Run samples immediately and then every interval until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sample(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sample(ctx)
		}
	}
}

func (s *Sampler) sample(ctx context.Context) {
	st, err := s.probe(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("system sample failed", zap.Error(err))
		}
		return
	}
	s.latest.Store(&st)
	s.logger.Debug("system sampled",
		zap.Float64("cpu", st.CPUPercent),
		zap.Float64("mem", st.MemPercent))
}

// Latest returns the most recent sample, or false before the first success.
func (s *Sampler) Latest() (Stats, bool) {
	p := s.latest.Load()
	if p == nil {
		return Stats{}, false
	}
	return *p, true
}
