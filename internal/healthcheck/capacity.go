package healthcheck

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// DefaultMinAvailableMemory is the available memory below which the run
// is flagged as degraded
const DefaultMinAvailableMemory = 2 << 30

// Snapshot is a point-in-time view of host resources
type Snapshot struct {
	TotalMemory     uint64
	AvailableMemory uint64
	CPUCount        int
	CPUPercent      float64
}

// Sampler reads host resources
type Sampler interface {
	Sample() (Snapshot, error)
}

// GopsutilSampler reads the live host
type GopsutilSampler struct{}

// Sample reads memory and a short CPU utilization window
func (GopsutilSampler) Sample() (Snapshot, error) {
	vmem, err := mem.VirtualMemory()
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading memory: %w", err)
	}

	s := Snapshot{
		TotalMemory:     vmem.Total,
		AvailableMemory: vmem.Available,
	}
	if n, err := cpu.Counts(true); err == nil {
		s.CPUCount = n
	}
	if pct, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	return s, nil
}

// HostCapacity logs the host's resources and warns when memory is short.
// It never fails the run.
func (c *Checker) HostCapacity() HealthStatus {
	s, err := c.sampler.Sample()
	if err != nil {
		c.logger.Debug("Host capacity unavailable", map[string]interface{}{"error": err.Error()})
		return HealthStatusHealthy
	}

	fields := map[string]interface{}{
		"total_memory_mb":     s.TotalMemory >> 20,
		"available_memory_mb": s.AvailableMemory >> 20,
		"cpus":                s.CPUCount,
		"cpu_percent":         fmt.Sprintf("%.1f", s.CPUPercent),
	}

	if s.AvailableMemory < c.minAvailable {
		c.logger.Warn("Low available memory, Scala Steward may run out of heap", fields)
		return HealthStatusDegraded
	}
	c.logger.Debug("Host capacity", fields)
	return HealthStatusHealthy
}
