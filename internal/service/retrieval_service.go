package service

import (
	"context"
	"errors"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/clausewise/clausewise/internal/ai"
	"github.com/clausewise/clausewise/internal/model"
	appErr "github.com/clausewise/clausewise/internal/pkg/errors"
	"github.com/clausewise/clausewise/internal/rank"
	"github.com/clausewise/clausewise/internal/repo"
)

// ErrEmbeddingUnavailable is returned whenever the embedding provider
// cannot produce a query vector: the caller decides whether to retry or
// degrade. It is distinct from an empty result, which means the tenant
// simply has no matching chunks.
var ErrEmbeddingUnavailable = ai.ErrUnavailable

// ErrNoAnchors means classification has nothing to compare against:
// either no anchors are seeded or none survived scoring.
var ErrNoAnchors = errors.New("no anchor clauses configured")

type Embedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
}

type ChunkStore interface {
	ListCandidates(ctx context.Context, q repo.CandidateQuery) ([]model.ChunkCandidate, error)
}

type AnchorStore interface {
	ListActive(ctx context.Context) ([]model.Anchor, error)
}

type SearchOptions struct {
	TopK          int
	MinSimilarity float64
}

type RetrievalConfig struct {
	// CandidateLimit bounds how many of a tenant's most recent chunks
	// are scored per query.
	CandidateLimit int
	// ExcerptChars bounds the citation text attached to each result.
	ExcerptChars int
}

// RetrievalService is the end-to-end semantic retrieval path: embed the
// query, fetch tenant-scoped candidates, score, rank, and attach
// provenance. It performs no retries of its own.
type RetrievalService struct {
	embedder Embedder
	chunks   ChunkStore
	anchors  AnchorStore
	cfg      RetrievalConfig
}

func NewRetrievalService(embedder Embedder, chunks ChunkStore, anchors AnchorStore, cfg RetrievalConfig) *RetrievalService {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 100
	}
	if cfg.ExcerptChars <= 0 {
		cfg.ExcerptChars = 500
	}
	return &RetrievalService{embedder: embedder, chunks: chunks, anchors: anchors, cfg: cfg}
}

// Search returns the tenant's chunks most similar to queryText, ranked
// descending. An empty slice is a valid answer (the tenant has no
// eligible chunks or nothing clears the floor), never an error.
func (s *RetrievalService) Search(ctx context.Context, tenantID, queryText string, opts SearchOptions) ([]model.RankedResult, error) {
	tenantID = strings.TrimSpace(tenantID)
	queryText = strings.TrimSpace(queryText)
	if tenantID == "" || queryText == "" {
		return nil, appErr.ErrInvalid
	}
	logger := logutil.GetLogger(ctx).With(zap.String("tenant_id", tenantID))

	queryVec, err := s.embedder.Embed(ctx, queryText, ai.TaskTypeQuery)
	if err != nil {
		logger.Error("failed to embed search query", zap.Error(err))
		return nil, err
	}

	candidates, err := s.chunks.ListCandidates(ctx, repo.CandidateQuery{
		TenantID: tenantID,
		Limit:    s.cfg.CandidateLimit,
	})
	if err != nil {
		logger.Error("failed to fetch candidate chunks", zap.Error(err))
		return nil, err
	}
	if len(candidates) == 0 {
		return []model.RankedResult{}, nil
	}

	cands := make([]rank.Candidate, 0, len(candidates))
	byID := make(map[string]model.ChunkCandidate, len(candidates))
	for _, c := range candidates {
		cands = append(cands, rank.Candidate{Key: c.ChunkID, Vector: c.Embedding})
		byID[c.ChunkID] = c
	}

	matches := rank.Rank(queryVec, cands, rank.Options{TopK: opts.TopK, MinSimilarity: opts.MinSimilarity})
	results := make([]model.RankedResult, 0, len(matches))
	for _, m := range matches {
		c := byID[m.Key]
		results = append(results, model.RankedResult{
			Rank:             m.Rank,
			ChunkID:          c.ChunkID,
			SourceDocumentID: c.DocumentID,
			SourceLabel:      c.Filename,
			Text:             excerpt(c.Text, s.cfg.ExcerptChars),
			SimilarityScore:  m.Score,
		})
	}
	logger.Debug("retrieval completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// ClassifyClause finds the nearest anchor to the clause and returns its
// label and category with the similarity as confidence.
func (s *RetrievalService) ClassifyClause(ctx context.Context, clauseText string) (*model.Classification, error) {
	clauseText = strings.TrimSpace(clauseText)
	if clauseText == "" {
		return nil, appErr.ErrInvalid
	}
	queryVec, err := s.embedder.Embed(ctx, clauseText, ai.TaskTypeQuery)
	if err != nil {
		logutil.GetLogger(ctx).Error("failed to embed clause for classification", zap.Error(err))
		return nil, err
	}
	anchors, err := s.anchors.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(anchors) == 0 {
		return nil, ErrNoAnchors
	}
	cands := make([]rank.Candidate, 0, len(anchors))
	byID := make(map[string]model.Anchor, len(anchors))
	for _, a := range anchors {
		cands = append(cands, rank.Candidate{Key: a.ID, Vector: a.Embedding})
		byID[a.ID] = a
	}
	matches := rank.Rank(queryVec, cands, rank.Options{TopK: 1, MinSimilarity: 0})
	if len(matches) == 0 {
		return nil, ErrNoAnchors
	}
	best := byID[matches[0].Key]
	return &model.Classification{
		Label:      best.Label,
		Category:   best.Category,
		Confidence: matches[0].Score,
	}, nil
}

func excerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
