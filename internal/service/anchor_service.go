package service

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/clausewise/clausewise/internal/ai"
	"github.com/clausewise/clausewise/internal/model"
	appErr "github.com/clausewise/clausewise/internal/pkg/errors"
	"github.com/clausewise/clausewise/internal/repo"
)

// AnchorSeed is one entry of the anchor seed file.
type AnchorSeed struct {
	Label    string `json:"label"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

// AnchorService maintains the shared classification anchor set. Seeding
// embeds each reference clause and upserts it by (label, category).
type AnchorService struct {
	anchors  *repo.AnchorRepo
	embedder Embedder
}

func NewAnchorService(anchors *repo.AnchorRepo, embedder Embedder) *AnchorService {
	return &AnchorService{anchors: anchors, embedder: embedder}
}

func (s *AnchorService) SeedAnchors(ctx context.Context, seeds []AnchorSeed) (int, error) {
	logger := logutil.GetLogger(ctx)
	seeded := 0
	for _, seed := range seeds {
		label := strings.TrimSpace(seed.Label)
		category := strings.TrimSpace(seed.Category)
		text := strings.TrimSpace(seed.Text)
		if label == "" || category == "" || text == "" {
			return seeded, appErr.ErrInvalid
		}
		vec, err := s.embedder.Embed(ctx, text, ai.TaskTypeDocument)
		if err != nil {
			logger.Error("failed to embed anchor", zap.String("label", label), zap.Error(err))
			return seeded, err
		}
		anchor := &model.Anchor{
			ID:        newID(),
			Label:     label,
			Category:  category,
			Text:      text,
			Embedding: vec,
			Active:    true,
			Ctime:     time.Now().UnixMilli(),
		}
		if err := s.anchors.Upsert(ctx, anchor); err != nil {
			return seeded, err
		}
		seeded++
		logger.Info("anchor seeded", zap.String("label", label), zap.String("category", category))
	}
	return seeded, nil
}
