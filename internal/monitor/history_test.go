package monitor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/rileyhilliard/rmon/internal/config"
)

func TestNewHistory(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{"zero clamps to one", 0, 1},
		{"negative clamps to one", -5, 1},
		{"custom size", 100, 100},
		{"hard cap", 5000, config.MaxHistorySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHistory(tt.size)
			assert.Equal(t, tt.want, h.Cap())
			assert.Zero(t, h.Len())
			assert.Nil(t, h.Values())
		})
	}
}

func TestHistoryPush(t *testing.T) {
	h := NewHistory(3)

	h.Push(10)
	h.Push(20)
	assert.Equal(t, []float64{10, 20}, h.Values())

	h.Push(30)
	h.Push(40)
	assert.Equal(t, []float64{20, 30, 40}, h.Values())
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 3, h.Cap())
}

func TestHistoryLast(t *testing.T) {
	h := NewHistory(5)
	for _, v := range []float64{1, 2, 3, 4, 5, 6, 7} {
		h.Push(v)
	}

	tests := []struct {
		k    int
		want []float64
	}{
		{0, nil},
		{-1, nil},
		{1, []float64{7}},
		{3, []float64{5, 6, 7}},
		{5, []float64{3, 4, 5, 6, 7}},
		{50, []float64{3, 4, 5, 6, 7}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, h.Last(tt.k)); diff != "" {
			t.Errorf("Last(%d) mismatch (-want +got):\n%s", tt.k, diff)
		}
	}
}

func TestHistoryValuesIsACopy(t *testing.T) {
	h := NewHistory(2)
	h.Push(1)
	got := h.Values()
	got[0] = 99
	assert.Equal(t, []float64{1}, h.Values())
}

func TestHistoryNil(t *testing.T) {
	var h *History
	assert.Zero(t, h.Len())
	assert.Zero(t, h.Cap())
	assert.Nil(t, h.Last(3))
}

func TestHistorySizeForWidth(t *testing.T) {
	assert.Equal(t, config.MinHistorySize, HistorySizeForWidth(0))
	assert.Equal(t, config.MinHistorySize, HistorySizeForWidth(6))
	assert.Equal(t, 152, HistorySizeForWidth(80))
	assert.Equal(t, config.MaxHistorySize, HistorySizeForWidth(4000))
}

func TestHistory_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("holds the newest min(len, cap) values in order", prop.ForAll(
		func(capacity int, values []float64) bool {
			h := NewHistory(capacity)
			for _, v := range values {
				h.Push(v)
			}

			want := values
			if len(want) > capacity {
				want = want[len(want)-capacity:]
			}
			if len(want) == 0 {
				return h.Len() == 0 && h.Values() == nil
			}
			return h.Len() == len(want) &&
				h.Cap() == capacity &&
				cmp.Equal(want, h.Values())
		},
		gen.IntRange(1, 64),
		gen.SliceOf(gen.Float64Range(0, 100)),
	))

	properties.Property("length never exceeds capacity", prop.ForAll(
		func(capacity, pushes int) bool {
			h := NewHistory(capacity)
			for i := 0; i < pushes; i++ {
				h.Push(float64(i))
				if h.Len() > h.Cap() {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 32),
		gen.IntRange(0, 200),
	))

	properties.TestingRun(t)
}
