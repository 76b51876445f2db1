package rank

import (
	"math"
	"sort"
)

const (
	// MaxTopK bounds response size regardless of what the caller asks for.
	MaxTopK     = 50
	DefaultTopK = 5
)

// Candidate is one scoreable vector. Key is opaque to this package and
// lets the caller map matches back to chunks or anchors.
type Candidate struct {
	Key    string
	Vector []float32
}

type Options struct {
	TopK          int
	MinSimilarity float64
}

// Match is a surviving candidate with its clamped similarity and
// 1-based rank.
type Match struct {
	Key   string
	Score float64
	Rank  int
}

// Clamp normalizes caller-supplied options: TopK falls back to the
// default and is capped at MaxTopK, MinSimilarity is forced into [0, 1].
func Clamp(opts Options) Options {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.TopK > MaxTopK {
		opts.TopK = MaxTopK
	}
	if opts.MinSimilarity < 0 {
		opts.MinSimilarity = 0
	}
	if opts.MinSimilarity > 1 {
		opts.MinSimilarity = 1
	}
	return opts
}

// CosineSimilarity returns the cosine of the angle between a and b,
// accumulated in float64. ok is false when the vectors differ in length
// or either has zero norm; such a pair has no meaningful similarity and
// must be excluded rather than scored as 0.
func CosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}

// Rank scores every candidate against query, drops degenerate vectors,
// applies the similarity floor (inclusive), sorts descending with
// first-seen tie order, and truncates to TopK. The floor is applied
// before truncation so an arbitrary cap can never hide a qualifying
// result. Scores are clamped to [0, 1] for display consumers; raw
// cosine can be negative and the clamp is intentional.
func Rank(query []float32, cands []Candidate, opts Options) []Match {
	opts = Clamp(opts)
	matches := make([]Match, 0, len(cands))
	for _, cand := range cands {
		score, ok := CosineSimilarity(query, cand.Vector)
		if !ok {
			continue
		}
		score = clampScore(score)
		if score < opts.MinSimilarity {
			continue
		}
		matches = append(matches, Match{Key: cand.Key, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > opts.TopK {
		matches = matches[:opts.TopK]
	}
	for i := range matches {
		matches[i].Rank = i + 1
	}
	return matches
}

func clampScore(score float64) float64 {
	return math.Max(0.0, math.Min(1.0, score))
}
