package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/clausewise/clausewise/internal/ai"
	"github.com/clausewise/clausewise/internal/model"
	appErr "github.com/clausewise/clausewise/internal/pkg/errors"
	"github.com/clausewise/clausewise/internal/repo"
)

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type fakeChunkStore struct {
	byTenant map[string][]model.ChunkCandidate
	queries  []repo.CandidateQuery
}

func (f *fakeChunkStore) ListCandidates(ctx context.Context, q repo.CandidateQuery) ([]model.ChunkCandidate, error) {
	f.queries = append(f.queries, q)
	items := f.byTenant[q.TenantID]
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items, nil
}

type fakeAnchorStore struct {
	anchors []model.Anchor
}

func (f *fakeAnchorStore) ListActive(ctx context.Context) ([]model.Anchor, error) {
	return f.anchors, nil
}

func chunkCand(id, docID, tenantID, text, filename string, vec []float32) model.ChunkCandidate {
	return model.ChunkCandidate{
		ChunkID:    id,
		DocumentID: docID,
		TenantID:   tenantID,
		Text:       text,
		Filename:   filename,
		Embedding:  vec,
	}
}

func newTestRetrieval(embedder *fakeEmbedder, chunks *fakeChunkStore, anchors *fakeAnchorStore) *RetrievalService {
	if chunks == nil {
		chunks = &fakeChunkStore{}
	}
	if anchors == nil {
		anchors = &fakeAnchorStore{}
	}
	return NewRetrievalService(embedder, chunks, anchors, RetrievalConfig{})
}

func TestSearch_RankingAndProvenance(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	chunks := &fakeChunkStore{byTenant: map[string][]model.ChunkCandidate{
		"t1": {
			chunkCand("c1", "d1", "t1", "indemnity clause", "msa.md", []float32{0.40, 0.9165}),
			chunkCand("c2", "d1", "t1", "confidentiality clause", "msa.md", []float32{0.91, 0.4146}),
			chunkCand("c3", "d2", "t1", "termination clause", "nda.md", []float32{0.72, 0.6940}),
		},
	}}
	svc := newTestRetrieval(embedder, chunks, nil)

	results, err := svc.Search(context.Background(), "t1", "confidentiality obligations", SearchOptions{TopK: 2, MinSimilarity: 0.5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ChunkID != "c2" || results[1].ChunkID != "c3" {
		t.Fatalf("wrong order: %s %s", results[0].ChunkID, results[1].ChunkID)
	}
	if results[0].Rank != 1 || results[1].Rank != 2 {
		t.Fatalf("wrong ranks: %d %d", results[0].Rank, results[1].Rank)
	}
	if results[0].SourceDocumentID != "d1" || results[0].SourceLabel != "msa.md" {
		t.Fatalf("missing provenance: %+v", results[0])
	}
	for _, r := range results {
		if r.SimilarityScore < 0.5 {
			t.Fatalf("result below floor: %+v", r)
		}
	}
}

func TestSearch_TenantIsolation(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	chunks := &fakeChunkStore{byTenant: map[string][]model.ChunkCandidate{
		"tenant-a": {
			chunkCand("a1", "d1", "tenant-a", "exact query text", "a.md", []float32{1, 0}),
		},
	}}
	svc := newTestRetrieval(embedder, chunks, nil)

	results, err := svc.Search(context.Background(), "tenant-b", "exact query text", SearchOptions{TopK: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("cross-tenant leak: %+v", results)
	}
	for _, q := range chunks.queries {
		if q.TenantID != "tenant-b" {
			t.Fatalf("store queried for wrong tenant: %+v", q)
		}
	}
}

func TestSearch_EmbedFailureShortCircuits(t *testing.T) {
	embedder := &fakeEmbedder{err: ErrEmbeddingUnavailable}
	chunks := &fakeChunkStore{byTenant: map[string][]model.ChunkCandidate{}}
	svc := newTestRetrieval(embedder, chunks, nil)

	_, err := svc.Search(context.Background(), "t1", "query", SearchOptions{})
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	if len(chunks.queries) != 0 {
		t.Fatal("chunk store must not be queried when embedding fails")
	}
}

func TestSearch_EmptyCorpusIsNotAnError(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	svc := newTestRetrieval(embedder, &fakeChunkStore{}, nil)

	results, err := svc.Search(context.Background(), "t1", "anything", SearchOptions{TopK: 5})
	if err != nil {
		t.Fatalf("expected empty result, got error %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result, got %d", len(results))
	}
}

func TestSearch_InvalidParameters(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	svc := newTestRetrieval(embedder, nil, nil)

	if _, err := svc.Search(context.Background(), "t1", "   ", SearchOptions{}); !errors.Is(err, appErr.ErrInvalid) {
		t.Fatalf("empty query: expected ErrInvalid, got %v", err)
	}
	if _, err := svc.Search(context.Background(), "", "query", SearchOptions{}); !errors.Is(err, appErr.ErrInvalid) {
		t.Fatalf("empty tenant: expected ErrInvalid, got %v", err)
	}
	if embedder.calls != 0 {
		t.Fatalf("embedder must not be called for invalid input, got %d calls", embedder.calls)
	}
}

func TestSearch_TopKCappedServerSide(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	var cands []model.ChunkCandidate
	for i := 0; i < 80; i++ {
		cands = append(cands, chunkCand(
			"c"+string(rune('A'+i%26))+string(rune('a'+i/26)), "d", "t1", "clause", "f.md", []float32{1, 0}))
	}
	chunks := &fakeChunkStore{byTenant: map[string][]model.ChunkCandidate{"t1": cands}}
	svc := NewRetrievalService(embedder, chunks, &fakeAnchorStore{}, RetrievalConfig{CandidateLimit: 200})

	results, err := svc.Search(context.Background(), "t1", "clause", SearchOptions{TopK: 1000})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 50 {
		t.Fatalf("expected server-side cap of 50, got %d", len(results))
	}
}

func TestSearch_DegenerateCandidateExcluded(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	chunks := &fakeChunkStore{byTenant: map[string][]model.ChunkCandidate{
		"t1": {
			chunkCand("zero", "d1", "t1", "broken", "f.md", []float32{0, 0}),
			chunkCand("good", "d1", "t1", "valid clause", "f.md", []float32{0.9, 0.4359}),
		},
	}}
	svc := newTestRetrieval(embedder, chunks, nil)

	results, err := svc.Search(context.Background(), "t1", "query", SearchOptions{TopK: 5})
	if err != nil {
		t.Fatalf("search must not fail on a zero vector: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != "good" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{0.3, 0.7}}
	chunks := &fakeChunkStore{byTenant: map[string][]model.ChunkCandidate{
		"t1": {
			chunkCand("c1", "d1", "t1", "alpha", "f.md", []float32{0.2, 0.8}),
			chunkCand("c2", "d1", "t1", "beta", "f.md", []float32{0.7, 0.3}),
			chunkCand("c3", "d1", "t1", "gamma", "f.md", []float32{0.3, 0.7}),
		},
	}}
	svc := newTestRetrieval(embedder, chunks, nil)

	first, err := svc.Search(context.Background(), "t1", "query", SearchOptions{TopK: 3})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := svc.Search(context.Background(), "t1", "query", SearchOptions{TopK: 3})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("non-deterministic results: %+v vs %+v", first, again)
		}
	}
}

func TestSearch_ExcerptBounded(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	long := strings.Repeat("x", 2000)
	chunks := &fakeChunkStore{byTenant: map[string][]model.ChunkCandidate{
		"t1": {chunkCand("c1", "d1", "t1", long, "f.md", []float32{1, 0})},
	}}
	svc := NewRetrievalService(embedder, chunks, &fakeAnchorStore{}, RetrievalConfig{ExcerptChars: 500})

	results, err := svc.Search(context.Background(), "t1", "query", SearchOptions{TopK: 1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results[0].Text) != 500 {
		t.Fatalf("excerpt not bounded: %d chars", len(results[0].Text))
	}
}

func TestClassifyClause_NearestAnchorWins(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	anchors := &fakeAnchorStore{anchors: []model.Anchor{
		{ID: "a1", Label: "indemnification", Category: "liability", Embedding: []float32{0.2, 0.9798}},
		{ID: "a2", Label: "confidentiality", Category: "information", Embedding: []float32{0.95, 0.3122}},
	}}
	svc := newTestRetrieval(embedder, nil, anchors)

	got, err := svc.ClassifyClause(context.Background(), "the receiving party shall keep information secret")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Label != "confidentiality" || got.Category != "information" {
		t.Fatalf("wrong anchor: %+v", got)
	}
	if got.Confidence <= 0 || got.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", got.Confidence)
	}
}

func TestClassifyClause_NoAnchors(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	svc := newTestRetrieval(embedder, nil, &fakeAnchorStore{})

	if _, err := svc.ClassifyClause(context.Background(), "clause"); !errors.Is(err, ErrNoAnchors) {
		t.Fatalf("expected ErrNoAnchors, got %v", err)
	}
}

func TestClassifyClause_AllAnchorsDegenerate(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	anchors := &fakeAnchorStore{anchors: []model.Anchor{
		{ID: "a1", Label: "broken", Category: "none", Embedding: []float32{0, 0}},
	}}
	svc := newTestRetrieval(embedder, nil, anchors)

	if _, err := svc.ClassifyClause(context.Background(), "clause"); !errors.Is(err, ErrNoAnchors) {
		t.Fatalf("expected ErrNoAnchors when every anchor is degenerate, got %v", err)
	}
}

func TestClassifyClause_EmbedFailurePropagates(t *testing.T) {
	embedder := &fakeEmbedder{err: ai.ErrUnavailable}
	anchors := &fakeAnchorStore{anchors: []model.Anchor{
		{ID: "a1", Label: "l", Category: "c", Embedding: []float32{1, 0}},
	}}
	svc := newTestRetrieval(embedder, nil, anchors)

	if _, err := svc.ClassifyClause(context.Background(), "clause"); !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}
