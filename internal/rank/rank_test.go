package rank

import (
	"fmt"
	"math"
	"reflect"
	"testing"
)

func TestCosineSimilarity_Basics(t *testing.T) {
	score, ok := CosineSimilarity([]float32{1, 0}, []float32{1, 0})
	if !ok || math.Abs(score-1.0) > 1e-9 {
		t.Fatalf("identical vectors: got %v ok=%v", score, ok)
	}
	score, ok = CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	if !ok || math.Abs(score) > 1e-9 {
		t.Fatalf("orthogonal vectors: got %v ok=%v", score, ok)
	}
	score, ok = CosineSimilarity([]float32{1, 0}, []float32{-1, 0})
	if !ok || math.Abs(score+1.0) > 1e-9 {
		t.Fatalf("opposite vectors: got %v ok=%v", score, ok)
	}
}

func TestCosineSimilarity_Degenerate(t *testing.T) {
	if _, ok := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); ok {
		t.Fatal("zero-norm query must not be scoreable")
	}
	if _, ok := CosineSimilarity([]float32{1, 0}, []float32{0, 0}); ok {
		t.Fatal("zero-norm candidate must not be scoreable")
	}
	if _, ok := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); ok {
		t.Fatal("length mismatch must not be scoreable")
	}
	if _, ok := CosineSimilarity(nil, nil); ok {
		t.Fatal("empty vectors must not be scoreable")
	}
}

func TestClamp(t *testing.T) {
	opts := Clamp(Options{TopK: 1000, MinSimilarity: 2.5})
	if opts.TopK != MaxTopK {
		t.Fatalf("topk not capped: %d", opts.TopK)
	}
	if opts.MinSimilarity != 1.0 {
		t.Fatalf("min similarity not clamped: %v", opts.MinSimilarity)
	}
	opts = Clamp(Options{TopK: 0, MinSimilarity: -1})
	if opts.TopK != DefaultTopK || opts.MinSimilarity != 0 {
		t.Fatalf("defaults not applied: %+v", opts)
	}
}

// Candidates at known angles to the unit query (1, 0) so similarities
// come out exact.
func angled(key string, cosine float64) Candidate {
	sine := math.Sqrt(1 - cosine*cosine)
	return Candidate{Key: key, Vector: []float32{float32(cosine), float32(sine)}}
}

func TestRank_FilterThenTruncate(t *testing.T) {
	query := []float32{1, 0}
	cands := []Candidate{
		angled("a", 0.91),
		angled("b", 0.40),
		angled("c", 0.72),
	}
	matches := Rank(query, cands, Options{TopK: 2, MinSimilarity: 0.5})
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Key != "a" || matches[1].Key != "c" {
		t.Fatalf("wrong order: %v %v", matches[0].Key, matches[1].Key)
	}
	if matches[0].Rank != 1 || matches[1].Rank != 2 {
		t.Fatalf("ranks not 1-based consecutive: %d %d", matches[0].Rank, matches[1].Rank)
	}
}

func TestRank_FloorExcludesEverything(t *testing.T) {
	query := []float32{1, 0}
	cands := []Candidate{angled("a", 0.91), angled("b", 0.72)}
	matches := Rank(query, cands, Options{TopK: 5, MinSimilarity: 0.95})
	if len(matches) != 0 {
		t.Fatalf("expected empty result, got %d", len(matches))
	}
}

func TestRank_FloorIsInclusive(t *testing.T) {
	query := []float32{1, 0}
	matches := Rank(query, []Candidate{angled("a", 0.5)}, Options{TopK: 5, MinSimilarity: 0.5})
	if len(matches) != 1 {
		t.Fatalf("score equal to the floor must be kept, got %d matches", len(matches))
	}
}

func TestRank_TopKCap(t *testing.T) {
	query := []float32{1, 0}
	var cands []Candidate
	for i := 0; i < 80; i++ {
		cands = append(cands, angled(fmt.Sprintf("c%02d", i), 0.99))
	}
	matches := Rank(query, cands, Options{TopK: 1000})
	if len(matches) != MaxTopK {
		t.Fatalf("expected cap of %d, got %d", MaxTopK, len(matches))
	}

	matches = Rank(query, cands[:10], Options{TopK: 1000})
	if len(matches) != 10 {
		t.Fatalf("fewer candidates than cap: expected 10, got %d", len(matches))
	}
}

func TestRank_DegenerateCandidateExcludedSilently(t *testing.T) {
	query := []float32{1, 0}
	cands := []Candidate{
		angled("good", 0.9),
		{Key: "zero", Vector: []float32{0, 0}},
		{Key: "short", Vector: []float32{1}},
		angled("ok", 0.6),
	}
	matches := Rank(query, cands, Options{TopK: 10, MinSimilarity: 0})
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	for _, m := range matches {
		if m.Key == "zero" || m.Key == "short" {
			t.Fatalf("degenerate candidate %q leaked into results", m.Key)
		}
	}
}

func TestRank_NegativeScoreClampedToZero(t *testing.T) {
	query := []float32{1, 0}
	matches := Rank(query, []Candidate{{Key: "neg", Vector: []float32{-1, 0}}}, Options{TopK: 5, MinSimilarity: 0})
	if len(matches) != 1 {
		t.Fatalf("expected the clamped candidate to survive a zero floor, got %d", len(matches))
	}
	if matches[0].Score != 0 {
		t.Fatalf("expected clamped score 0, got %v", matches[0].Score)
	}
}

func TestRank_StableTieOrder(t *testing.T) {
	query := []float32{1, 0}
	cands := []Candidate{
		angled("first", 0.8),
		angled("second", 0.8),
		angled("third", 0.8),
	}
	matches := Rank(query, cands, Options{TopK: 3})
	got := []string{matches[0].Key, matches[1].Key, matches[2].Key}
	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tie order not stable: got %v", got)
	}
}

func TestRank_Deterministic(t *testing.T) {
	query := []float32{0.3, 0.7, 0.2}
	cands := []Candidate{
		{Key: "a", Vector: []float32{0.1, 0.9, 0.3}},
		{Key: "b", Vector: []float32{0.5, 0.2, 0.8}},
		{Key: "c", Vector: []float32{0.3, 0.7, 0.2}},
	}
	first := Rank(query, cands, Options{TopK: 3})
	for i := 0; i < 10; i++ {
		again := Rank(query, cands, Options{TopK: 3})
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, first, again)
		}
	}
}

func TestRank_ScoresWithinBounds(t *testing.T) {
	query := []float32{0.2, -0.4, 0.9}
	cands := []Candidate{
		{Key: "a", Vector: []float32{-0.2, 0.4, -0.9}},
		{Key: "b", Vector: []float32{0.2, -0.4, 0.9}},
		{Key: "c", Vector: []float32{1, 1, 1}},
	}
	for _, m := range Rank(query, cands, Options{TopK: 10}) {
		if m.Score < 0 || m.Score > 1 {
			t.Fatalf("score out of [0,1]: %v", m.Score)
		}
	}
}
