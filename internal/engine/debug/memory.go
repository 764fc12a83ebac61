package debug

import (
	"fmt"
	"runtime"
)

// MemRefresh is how often, in seconds, MemStats re-reads the runtime
// counters.
const MemRefresh = 2.0

// MemStats samples runtime memory counters for the overlay.
type MemStats struct {
	stats   runtime.MemStats
	elapsed float64
	read    bool
	sample  func(*runtime.MemStats)
}

// NewMemStats creates a sampler. The first Update reads immediately.
func NewMemStats() *MemStats {
	return &MemStats{sample: runtime.ReadMemStats}
}

// Update advances the sampler by dt seconds.
func (m *MemStats) Update(dt float64) {
	m.elapsed += dt
	if m.read && m.elapsed < MemRefresh {
		return
	}
	m.sample(&m.stats)
	m.read = true
	m.elapsed = 0
}

// Line returns the overlay text for the last sample.
func (m *MemStats) Line() string {
	if !m.read {
		return "-"
	}
	return fmt.Sprintf("%s alloc, %s sys, %d GC",
		FormatBytes(m.stats.Alloc), FormatBytes(m.stats.Sys), m.stats.NumGC)
}

// FormatBytes formats a byte count for display.
func FormatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
