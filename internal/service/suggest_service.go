package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/clausewise/clausewise/internal/model"
	appErr "github.com/clausewise/clausewise/internal/pkg/errors"
)

const defaultSuggestInstruction = "Improve clarity and enforceability without changing the legal intent."

const suggestTopK = 5

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type SuggestResult struct {
	Suggested string               `json:"suggested"`
	Similar   []model.RankedResult `json:"similar"`
}

// SuggestService rewrites a clause with the generation provider and
// shows the tenant's most similar existing clauses alongside it.
type SuggestService struct {
	retrieval *RetrievalService
	generator Generator
}

func NewSuggestService(retrieval *RetrievalService, generator Generator) *SuggestService {
	return &SuggestService{retrieval: retrieval, generator: generator}
}

// SuggestClause degrades gracefully when the embedding provider is
// down: the rewrite still runs, just without the similar-clause panel.
// A generation failure is a hard error.
func (s *SuggestService) SuggestClause(ctx context.Context, tenantID, clauseText, instruction string) (*SuggestResult, error) {
	clauseText = strings.TrimSpace(clauseText)
	if clauseText == "" {
		return nil, appErr.ErrInvalid
	}
	if strings.TrimSpace(instruction) == "" {
		instruction = defaultSuggestInstruction
	}
	logger := logutil.GetLogger(ctx).With(zap.String("tenant_id", tenantID))

	similar, err := s.retrieval.Search(ctx, tenantID, clauseText, SearchOptions{TopK: suggestTopK})
	if err != nil {
		if !errors.Is(err, ErrEmbeddingUnavailable) {
			return nil, err
		}
		logger.Warn("similar-clause retrieval degraded, continuing without context", zap.Error(err))
		similar = nil
	}

	prompt := buildSuggestPrompt(clauseText, instruction, similar)
	suggested, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		logger.Error("clause suggestion generation failed", zap.Error(err))
		return nil, err
	}
	return &SuggestResult{Suggested: suggested, Similar: similar}, nil
}

func buildSuggestPrompt(clauseText, instruction string, similar []model.RankedResult) string {
	var sb strings.Builder
	sb.WriteString("You are a legal drafting assistant. Rewrite the contract clause below.\n")
	sb.WriteString("Instruction: " + instruction + "\n")
	sb.WriteString("- Keep defined terms and party references intact.\n")
	sb.WriteString("- Output ONLY the rewritten clause.\n\n")
	sb.WriteString("CLAUSE:\n" + clauseText + "\n")
	if len(similar) > 0 {
		sb.WriteString("\nSimilar clauses from this organization's repository, for style reference:\n")
		for i, item := range similar {
			sb.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, item.Text))
		}
	}
	return sb.String()
}
