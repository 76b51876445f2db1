package job

import (
	"context"

	"github.com/clausewise/clausewise/internal/service"
)

type DraftGenerationJob struct {
	drafts *service.DraftService
}

func NewDraftGenerationJob(drafts *service.DraftService) *DraftGenerationJob {
	return &DraftGenerationJob{drafts: drafts}
}

func (j *DraftGenerationJob) Name() string {
	return "draft_generation"
}

func (j *DraftGenerationJob) Run(ctx context.Context) error {
	if j.drafts == nil {
		return nil
	}
	return j.drafts.ProcessPending(ctx)
}
