// Package parsers turns the text output of remote inspection commands into
// numbers. Parsers are field based and tolerant of spacing differences, but
// return an error wrapping ErrMalformed when the expected line or field is
// missing. They never return a negative byte count.
package parsers

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformed is wrapped by every parse failure.
var ErrMalformed = errors.New("malformed output")

// MemoryUsage is physical memory in bytes.
type MemoryUsage struct {
	UsedBytes  int64
	TotalBytes int64
}

// DiskUsage is filesystem usage in bytes for one mount point.
type DiskUsage struct {
	UsedBytes  int64
	TotalBytes int64
	MountPoint string
}

// ClampPercent clamps v into [0, 100]. NaN becomes 0.
func ClampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// parseBytes parses a non-negative integer field.
func parseBytes(field, what string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
	if err != nil {
		return 0, malformed("%s %q is not a number", what, field)
	}
	if v < 0 {
		return 0, malformed("%s is negative (%d)", what, v)
	}
	return v, nil
}

// mulBytes multiplies a count by a unit size, failing on overflow.
func mulBytes(n, unit int64, what string) (int64, error) {
	if unit <= 0 {
		return 0, malformed("invalid unit size %d for %s", unit, what)
	}
	if n > math.MaxInt64/unit {
		return 0, malformed("%s overflows (%d x %d)", what, n, unit)
	}
	return n * unit, nil
}
