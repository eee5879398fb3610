package services

import "math"

// defaultRankDivisor maps exact-token BM25 ranks onto [0, 1]. The
// value is empirically tuned against observed rank distributions
// (ranks typically fall in [-50, -0.1]) and is configurable via
// search.rank_divisor rather than load-bearing.
const defaultRankDivisor = 50.0

// Normalizer maps each backend's native relevance onto a common
// [0, 1] scale so hits from both engines sort together.
type Normalizer struct {
	divisor float64
}

// NewNormalizer creates a normalizer with the given rank divisor.
// Non-positive divisors fall back to the default.
func NewNormalizer(divisor float64) Normalizer {
	if divisor <= 0 {
		divisor = defaultRankDivisor
	}
	return Normalizer{divisor: divisor}
}

// FromExactRank converts a BM25 rank (more negative = better) to a
// [0, 1] relevance. Monotonic: a better (smaller) rank never maps
// below a worse one.
func (n Normalizer) FromExactRank(rank float64) float64 {
	return round3(clamp01(1.0 + rank/n.divisor))
}

// FromSegmentedScore clamps an already-relevance-scaled score to [0, 1].
func (n Normalizer) FromSegmentedScore(score float64) float64 {
	return round3(clamp01(score))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
