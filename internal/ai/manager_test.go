package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type stubEmbedder struct {
	dim   int
	err   error
	calls int
	last  string
}

func (s *stubEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	s.calls++
	s.last = text
	if s.err != nil {
		return nil, s.err
	}
	vec := make([]float32, s.dim)
	vec[0] = 1
	return vec, nil
}

func (s *stubEmbedder) ModelName() string { return "stub-model" }

func TestManagerEmbed_DimensionMismatchIsUnavailable(t *testing.T) {
	m := NewManager(nil, &stubEmbedder{dim: 8}, ManagerConfig{EmbeddingDim: 16})
	_, err := m.Embed(context.Background(), "some clause", TaskTypeQuery)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for malformed response, got %v", err)
	}
}

func TestManagerEmbed_ProviderErrorWrapped(t *testing.T) {
	m := NewManager(nil, &stubEmbedder{err: fmt.Errorf("connection refused")}, ManagerConfig{EmbeddingDim: 8})
	_, err := m.Embed(context.Background(), "some clause", TaskTypeQuery)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected provider error wrapped as ErrUnavailable, got %v", err)
	}
}

func TestManagerEmbed_TruncatesInput(t *testing.T) {
	stub := &stubEmbedder{dim: 8}
	m := NewManager(nil, stub, ManagerConfig{EmbeddingDim: 8, MaxInputChars: 10})
	if _, err := m.Embed(context.Background(), "0123456789abcdef", TaskTypeDocument); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if stub.last != "0123456789" {
		t.Fatalf("input not truncated: %q", stub.last)
	}
}

func TestManagerEmbed_EmptyTextRejectedBeforeCall(t *testing.T) {
	stub := &stubEmbedder{dim: 8}
	m := NewManager(nil, stub, ManagerConfig{EmbeddingDim: 8})
	if _, err := m.Embed(context.Background(), "   ", TaskTypeQuery); err == nil {
		t.Fatal("expected error for empty text")
	}
	if stub.calls != 0 {
		t.Fatalf("provider must not be called for empty text, got %d calls", stub.calls)
	}
}

func TestManagerEmbed_NoEmbedderConfigured(t *testing.T) {
	m := NewManager(nil, nil, ManagerConfig{})
	if _, err := m.Embed(context.Background(), "text", TaskTypeQuery); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
