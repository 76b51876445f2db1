package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/clausewise/clausewise/internal/model"
	appErr "github.com/clausewise/clausewise/internal/pkg/errors"
)

const (
	draftContextTopK  = 5
	draftMaxAttempts  = 3
	draftClaimBatch   = 4
	draftExcerptChars = 500
)

type DraftTaskStore interface {
	Create(ctx context.Context, task *model.DraftTask) error
	Get(ctx context.Context, tenantID, taskID string) (*model.DraftTask, error)
	ClaimPending(ctx context.Context, limit int, now int64) ([]model.DraftTask, error)
	Complete(ctx context.Context, taskID, generatedText string, citations []model.Citation, now int64) error
	Fail(ctx context.Context, taskID, reason string, now int64) error
	Requeue(ctx context.Context, taskID string, now int64) error
}

// DraftService queues contract draft generation and runs it in the
// background: retrieval-augmented context from the tenant's repository,
// then one generation call, with citations persisted next to the text.
type DraftService struct {
	tasks         DraftTaskStore
	retrieval     *RetrievalService
	generator     Generator
	minSimilarity float64
}

func NewDraftService(tasks DraftTaskStore, retrieval *RetrievalService, generator Generator, minSimilarity float64) *DraftService {
	if minSimilarity <= 0 {
		minSimilarity = 0.3
	}
	return &DraftService{
		tasks:         tasks,
		retrieval:     retrieval,
		generator:     generator,
		minSimilarity: minSimilarity,
	}
}

func (s *DraftService) CreateTask(ctx context.Context, tenantID, contractType string, params map[string]string) (*model.DraftTask, error) {
	tenantID = strings.TrimSpace(tenantID)
	contractType = strings.TrimSpace(contractType)
	if tenantID == "" || contractType == "" {
		return nil, appErr.ErrInvalid
	}
	if params == nil {
		params = map[string]string{}
	}
	now := time.Now().UnixMilli()
	task := &model.DraftTask{
		ID:           newID(),
		TenantID:     tenantID,
		ContractType: contractType,
		InputParams:  params,
		Status:       model.DraftTaskStatusPending,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("draft task queued",
		zap.String("task_id", task.ID),
		zap.String("tenant_id", tenantID),
		zap.String("contract_type", contractType),
	)
	return task, nil
}

func (s *DraftService) GetTask(ctx context.Context, tenantID, taskID string) (*model.DraftTask, error) {
	if strings.TrimSpace(tenantID) == "" || strings.TrimSpace(taskID) == "" {
		return nil, appErr.ErrInvalid
	}
	return s.tasks.Get(ctx, tenantID, taskID)
}

// ProcessPending claims a batch of queued tasks and runs each to
// completion. A transient embedding/generation outage requeues the task
// until the attempt budget runs out; anything else fails it.
func (s *DraftService) ProcessPending(ctx context.Context) error {
	tasks, err := s.tasks.ClaimPending(ctx, draftClaimBatch, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	for i := range tasks {
		s.runTask(ctx, &tasks[i])
	}
	return nil
}

func (s *DraftService) runTask(ctx context.Context, task *model.DraftTask) {
	logger := logutil.GetLogger(ctx).With(
		zap.String("task_id", task.ID),
		zap.String("tenant_id", task.TenantID),
	)

	searchQuery := buildDraftQuery(task)
	results, err := s.retrieval.Search(ctx, task.TenantID, searchQuery, SearchOptions{
		TopK:          draftContextTopK,
		MinSimilarity: s.minSimilarity,
	})
	if err != nil {
		s.handleTaskError(ctx, task, err, logger)
		return
	}

	citations := make([]model.Citation, 0, len(results))
	for _, item := range results {
		citations = append(citations, model.Citation{
			ChunkID:    item.ChunkID,
			DocumentID: item.SourceDocumentID,
			Filename:   item.SourceLabel,
			Similarity: item.SimilarityScore,
		})
	}

	prompt := buildDraftPrompt(task, results)
	generated, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.handleTaskError(ctx, task, err, logger)
		return
	}

	if err := s.tasks.Complete(ctx, task.ID, generated, citations, time.Now().UnixMilli()); err != nil {
		logger.Error("failed to store draft result", zap.Error(err))
		return
	}
	logger.Info("draft task completed",
		zap.Int("generated_chars", len(generated)),
		zap.Int("citations", len(citations)),
	)
}

func (s *DraftService) handleTaskError(ctx context.Context, task *model.DraftTask, cause error, logger *zap.Logger) {
	now := time.Now().UnixMilli()
	if errors.Is(cause, ErrEmbeddingUnavailable) && task.Attempts+1 < draftMaxAttempts {
		logger.Warn("draft task requeued after upstream failure",
			zap.Int("attempts", task.Attempts+1),
			zap.Error(cause),
		)
		if err := s.tasks.Requeue(ctx, task.ID, now); err != nil {
			logger.Error("failed to requeue draft task", zap.Error(err))
		}
		return
	}
	logger.Error("draft task failed", zap.Error(cause))
	if err := s.tasks.Fail(ctx, task.ID, cause.Error(), now); err != nil {
		logger.Error("failed to mark draft task failed", zap.Error(err))
	}
}

func buildDraftQuery(task *model.DraftTask) string {
	keys := make([]string, 0, len(task.InputParams))
	for k := range task.InputParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := []string{task.ContractType}
	for _, k := range keys {
		parts = append(parts, task.InputParams[k])
	}
	return strings.Join(parts, " ")
}

func buildDraftPrompt(task *model.DraftTask, clauses []model.RankedResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are a legal AI assistant generating a %s contract draft.\n", task.ContractType))
	sb.WriteString(fmt.Sprintf("\nContract Type: %s\n", task.ContractType))
	if len(task.InputParams) > 0 {
		sb.WriteString("\nParameters:\n")
		keys := make([]string, 0, len(task.InputParams))
		for k := range task.InputParams {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", k, task.InputParams[k]))
		}
	}
	if len(clauses) > 0 {
		sb.WriteString("\nRelevant clauses from similar contracts:\n")
		for i, item := range clauses {
			sb.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, excerpt(item.Text, draftExcerptChars)))
		}
	}
	sb.WriteString("\nGenerate a comprehensive, professional contract draft. ")
	sb.WriteString("Include all standard sections: parties, definitions, obligations, ")
	sb.WriteString("termination, dispute resolution, and signatures.")
	return sb.String()
}
