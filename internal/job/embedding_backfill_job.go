package job

import (
	"context"

	"github.com/clausewise/clausewise/internal/service"
)

type EmbeddingBackfillJob struct {
	ingest    *service.IngestService
	batchSize int
}

func NewEmbeddingBackfillJob(ingest *service.IngestService, batchSize int) *EmbeddingBackfillJob {
	return &EmbeddingBackfillJob{ingest: ingest, batchSize: batchSize}
}

func (j *EmbeddingBackfillJob) Name() string {
	return "embedding_backfill"
}

func (j *EmbeddingBackfillJob) Run(ctx context.Context) error {
	if j.ingest == nil {
		return nil
	}
	return j.ingest.ProcessPendingEmbeddings(ctx, j.batchSize)
}
