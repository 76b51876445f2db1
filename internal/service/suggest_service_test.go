package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clausewise/clausewise/internal/model"
	appErr "github.com/clausewise/clausewise/internal/pkg/errors"
)

type fakeGenerator struct {
	out     string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

func TestSuggestClause_IncludesSimilarClauses(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	chunks := &fakeChunkStore{byTenant: map[string][]model.ChunkCandidate{
		"t1": {chunkCand("c1", "d1", "t1", "existing indemnity wording", "msa.md", []float32{1, 0})},
	}}
	gen := &fakeGenerator{out: "rewritten clause"}
	svc := NewSuggestService(newTestRetrieval(embedder, chunks, nil), gen)

	got, err := svc.SuggestClause(context.Background(), "t1", "indemnify the other party", "")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if got.Suggested != "rewritten clause" {
		t.Fatalf("wrong suggestion: %q", got.Suggested)
	}
	if len(got.Similar) != 1 || got.Similar[0].ChunkID != "c1" {
		t.Fatalf("missing similar clauses: %+v", got.Similar)
	}
	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], "existing indemnity wording") {
		t.Fatalf("prompt missing retrieved context: %q", gen.prompts)
	}
}

func TestSuggestClause_DegradesWhenEmbeddingDown(t *testing.T) {
	embedder := &fakeEmbedder{err: ErrEmbeddingUnavailable}
	gen := &fakeGenerator{out: "rewritten clause"}
	svc := NewSuggestService(newTestRetrieval(embedder, nil, nil), gen)

	got, err := svc.SuggestClause(context.Background(), "t1", "some clause", "tighten it")
	if err != nil {
		t.Fatalf("suggest must degrade, got error %v", err)
	}
	if got.Suggested != "rewritten clause" {
		t.Fatalf("wrong suggestion: %q", got.Suggested)
	}
	if got.Similar != nil {
		t.Fatalf("expected no similar clauses, got %+v", got.Similar)
	}
	if !strings.Contains(gen.prompts[0], "tighten it") {
		t.Fatalf("prompt missing instruction: %q", gen.prompts[0])
	}
}

func TestSuggestClause_GenerationFailureIsHard(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	genErr := errors.New("generation backend down")
	svc := NewSuggestService(newTestRetrieval(embedder, nil, nil), &fakeGenerator{err: genErr})

	if _, err := svc.SuggestClause(context.Background(), "t1", "clause", ""); !errors.Is(err, genErr) {
		t.Fatalf("expected generation error, got %v", err)
	}
}

func TestSuggestClause_EmptyClauseRejected(t *testing.T) {
	svc := NewSuggestService(newTestRetrieval(&fakeEmbedder{vec: []float32{1, 0}}, nil, nil), &fakeGenerator{})

	if _, err := svc.SuggestClause(context.Background(), "t1", "  ", ""); !errors.Is(err, appErr.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}
