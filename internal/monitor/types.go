package monitor

import (
	"fmt"
	"strings"
	"time"
)

// Unavailable marks a Sample field whose metric could not be collected.
const Unavailable = -1

// Metric names a sampled quantity.
type Metric string

const (
	MetricCPU    Metric = "cpu"
	MetricMemory Metric = "memory"
	MetricDisk   Metric = "disk"
)

// Sample is one point-in-time reading of the remote host.
// Fields that could not be collected hold Unavailable.
type Sample struct {
	Timestamp        time.Time
	CPUPercent       float64
	MemoryUsedBytes  int64
	MemoryTotalBytes int64
	DiskUsedBytes    int64
	DiskTotalBytes   int64
}

// EmptySample returns a sample with every metric unavailable.
func EmptySample(ts time.Time) Sample {
	return Sample{
		Timestamp:        ts,
		CPUPercent:       Unavailable,
		MemoryUsedBytes:  Unavailable,
		MemoryTotalBytes: Unavailable,
		DiskUsedBytes:    Unavailable,
		DiskTotalBytes:   Unavailable,
	}
}

func (s Sample) HasCPU() bool {
	return s.CPUPercent >= 0
}

func (s Sample) HasMemory() bool {
	return s.MemoryUsedBytes >= 0 && s.MemoryTotalBytes >= 0
}

func (s Sample) HasDisk() bool {
	return s.DiskUsedBytes >= 0 && s.DiskTotalBytes >= 0
}

// Over returns s with every unavailable metric taken from prev.
func (s Sample) Over(prev Sample) Sample {
	out := s
	if !s.HasCPU() {
		out.CPUPercent = prev.CPUPercent
	}
	if !s.HasMemory() {
		out.MemoryUsedBytes, out.MemoryTotalBytes = prev.MemoryUsedBytes, prev.MemoryTotalBytes
	}
	if !s.HasDisk() {
		out.DiskUsedBytes, out.DiskTotalBytes = prev.DiskUsedBytes, prev.DiskTotalBytes
	}
	return out
}

// Partial reports whether any metric is unavailable.
func (s Sample) Partial() bool {
	return !s.HasCPU() || !s.HasMemory() || !s.HasDisk()
}

// MemoryPercent returns used/total memory as a percentage, or Unavailable.
func (s Sample) MemoryPercent() float64 {
	return usagePercent(s.MemoryUsedBytes, s.MemoryTotalBytes)
}

// DiskPercent returns used/total disk as a percentage, or Unavailable.
func (s Sample) DiskPercent() float64 {
	return usagePercent(s.DiskUsedBytes, s.DiskTotalBytes)
}

func usagePercent(used, total int64) float64 {
	if used < 0 || total < 0 {
		return Unavailable
	}
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total) * 100
}

// MetricFailure records why a single metric could not be collected.
type MetricFailure struct {
	Metric Metric
	Err    error
}

// PartialSampleError lists the metrics that failed during one sampling pass.
// The accompanying Sample still carries every metric that succeeded.
type PartialSampleError struct {
	Failures []MetricFailure
}

func (e *PartialSampleError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Metric, f.Err))
	}
	return "partial sample: " + strings.Join(parts, "; ")
}

// Unwrap exposes each cause to errors.Is and errors.As.
func (e *PartialSampleError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Failed reports whether metric m is among the failures.
func (e *PartialSampleError) Failed(m Metric) bool {
	for _, f := range e.Failures {
		if f.Metric == m {
			return true
		}
	}
	return false
}
