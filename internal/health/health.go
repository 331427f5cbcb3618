// Package health reports host load for the /healthz endpoint.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	busyCPUPercent = 80.0
	busyRAMPercent = 90.0
)

// Stats is a point-in-time host load snapshot.
type Stats struct {
	CPUPercent float64 `json:"cpu_percent"`
	RAMPercent float64 `json:"ram_percent"`
	IsBusy     bool    `json:"is_busy"`
}

// Sampler reads CPU and memory usage. The probe functions are swapped in tests.
type Sampler struct {
	window     time.Duration
	cpuPercent func(ctx context.Context, interval time.Duration, perCPU bool) ([]float64, error)
	memPercent func(ctx context.Context) (float64, error)
}

// NewSampler measures CPU over window.
func NewSampler(window time.Duration) *Sampler {
	return &Sampler{
		window:     window,
		cpuPercent: cpu.PercentWithContext,
		memPercent: func(ctx context.Context) (float64, error) {
			v, err := mem.VirtualMemoryWithContext(ctx)
			if err != nil {
				return 0, err
			}
			return v.UsedPercent, nil
		},
	}
}

// GetStats gathers CPU and RAM usage. The host is busy when CPU is above 80%
// or RAM above 90%.
func (s *Sampler) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats

	ram, err := s.memPercent(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to get mem stats: %w", err)
	}
	stats.RAMPercent = ram

	cpuPct, err := s.cpuPercent(ctx, s.window, false)
	if err != nil {
		return stats, fmt.Errorf("failed to get cpu stats: %w", err)
	}
	if len(cpuPct) > 0 {
		stats.CPUPercent = cpuPct[0]
	}

	stats.IsBusy = stats.CPUPercent > busyCPUPercent || stats.RAMPercent > busyRAMPercent
	return stats, nil
}
