package monitor

import "github.com/rileyhilliard/rmon/internal/config"

// History is a fixed-capacity ring of CPU percentages in arrival order.
// Capacity is set once by NewHistory and never changes; a terminal resize
// only changes how many of the stored points get drawn.
//
// History is owned by the dashboard model and is not safe for concurrent use.
type History struct {
	data  []float64
	head  int
	count int
}

// NewHistory creates a history holding at most n values.
// n is clamped to [1, config.MaxHistorySize].
func NewHistory(n int) *History {
	if n < 1 {
		n = 1
	}
	if n > config.MaxHistorySize {
		n = config.MaxHistorySize
	}
	return &History{data: make([]float64, n)}
}

// Push appends v, evicting the oldest value once the buffer is full.
func (h *History) Push(v float64) {
	h.data[h.head] = v
	h.head = (h.head + 1) % len(h.data)
	if h.count < len(h.data) {
		h.count++
	}
}

// Values returns every stored value, oldest first and most recent last.
func (h *History) Values() []float64 {
	return h.Last(h.count)
}

// Last returns the k most recent values in chronological order.
// Fewer are returned when fewer are stored.
func (h *History) Last(k int) []float64 {
	if h == nil || k <= 0 || h.count == 0 {
		return nil
	}
	if k > h.count {
		k = h.count
	}

	size := len(h.data)
	result := make([]float64, k)

	// head is the next write slot, so the newest value sits at head-1.
	start := (h.head - k + size) % size
	for i := 0; i < k; i++ {
		result[i] = h.data[(start+i)%size]
	}
	return result
}

// Len returns how many values are stored.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return h.count
}

// Cap returns the fixed capacity.
func (h *History) Cap() int {
	if h == nil {
		return 0
	}
	return len(h.data)
}

// HistorySizeForWidth derives a history capacity from a terminal width.
// Each braille cell holds two points; the CPU panel border and padding take
// four columns.
func HistorySizeForWidth(width int) int {
	n := (width - 4) * 2
	if n < config.MinHistorySize {
		n = config.MinHistorySize
	}
	if n > config.MaxHistorySize {
		n = config.MaxHistorySize
	}
	return n
}
