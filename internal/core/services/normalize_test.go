package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromExactRank(t *testing.T) {
	n := NewNormalizer(0)

	tests := []struct {
		name string
		rank float64
		want float64
	}{
		{"best observed rank", -50, 0},
		{"worst observed rank", -0.1, 0.998},
		{"zero rank", 0, 1},
		{"midpoint", -25, 0.5},
		{"below band clamps", -120, 0},
		{"positive rank clamps", 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, n.FromExactRank(tt.rank), 1e-9)
		})
	}
}

func TestFromExactRankMonotonic(t *testing.T) {
	n := NewNormalizer(0)

	prev := n.FromExactRank(-60)
	for rank := -59.5; rank <= 0; rank += 0.5 {
		cur := n.FromExactRank(rank)
		assert.GreaterOrEqual(t, cur, prev, "rank %v", rank)
		prev = cur
	}
}

func TestFromExactRankCustomDivisor(t *testing.T) {
	n := NewNormalizer(100)

	assert.InDelta(t, 0.5, n.FromExactRank(-50), 1e-9)
	assert.InDelta(t, 0, n.FromExactRank(-100), 1e-9)
}

func TestFromSegmentedScore(t *testing.T) {
	n := NewNormalizer(0)

	assert.InDelta(t, 0.75, n.FromSegmentedScore(0.75), 1e-9)
	assert.InDelta(t, 0, n.FromSegmentedScore(-0.2), 1e-9)
	assert.InDelta(t, 1, n.FromSegmentedScore(1.4), 1e-9)
	assert.InDelta(t, 0.333, n.FromSegmentedScore(1.0/3.0), 1e-9)
}
