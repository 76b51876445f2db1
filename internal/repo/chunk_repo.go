package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/clausewise/clausewise/internal/model"
	"github.com/clausewise/clausewise/internal/pkg/dbutil"
)

// CandidateQuery is the only way to read chunks for retrieval. Tenant
// scoping is a required field here rather than an ad hoc predicate at
// call sites.
type CandidateQuery struct {
	TenantID string
	Limit    int
}

type ChunkRepo struct {
	db  *sql.DB
	dim int
}

func NewChunkRepo(db *sql.DB, dim int) *ChunkRepo {
	return &ChunkRepo{db: db, dim: dim}
}

// ListCandidates returns up to q.Limit processed chunks of the tenant,
// most recent first, joined with the owning document for provenance.
// Rows whose stored vector does not match the configured dimension are
// skipped so they cannot corrupt the distance computation.
func (r *ChunkRepo) ListCandidates(ctx context.Context, q CandidateQuery) ([]model.ChunkCandidate, error) {
	const query = `
		SELECT c.id, c.document_id, c.tenant_id, c.chunk_number, c.content, c.embedding, d.filename
		FROM document_chunks c
		JOIN documents d ON c.document_id = d.id
		WHERE c.tenant_id = $1
			AND c.processed
			AND c.embedding IS NOT NULL
			AND d.state = $2
		ORDER BY c.ctime DESC, c.id DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, q.TenantID, model.DocumentStateNormal, q.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.ChunkCandidate
	for rows.Next() {
		var item model.ChunkCandidate
		var vec pgvector.Vector
		if err := rows.Scan(&item.ChunkID, &item.DocumentID, &item.TenantID, &item.ChunkNumber, &item.Text, &vec, &item.Filename); err != nil {
			return nil, err
		}
		item.Embedding = vec.Slice()
		if r.dim > 0 && len(item.Embedding) != r.dim {
			logutil.GetLogger(ctx).Warn("skipping chunk with mismatched embedding dimension",
				zap.String("chunk_id", item.ChunkID),
				zap.Int("got", len(item.Embedding)),
				zap.Int("want", r.dim),
			)
			continue
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func (r *ChunkRepo) InsertBatch(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	data := make([]map[string]interface{}, 0, len(chunks))
	for _, chunk := range chunks {
		data = append(data, map[string]interface{}{
			"id":           chunk.ID,
			"document_id":  chunk.DocumentID,
			"tenant_id":    chunk.TenantID,
			"chunk_number": chunk.ChunkNumber,
			"content":      chunk.Text,
			"processed":    chunk.Processed,
			"ctime":        chunk.Ctime,
		})
	}
	sqlStr, args, err := builder.BuildInsert("document_chunks", data)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// ListPending returns chunks awaiting embedding, oldest first.
func (r *ChunkRepo) ListPending(ctx context.Context, limit int) ([]model.Chunk, error) {
	const query = `
		SELECT id, document_id, tenant_id, chunk_number, content, ctime
		FROM document_chunks
		WHERE NOT processed
		ORDER BY ctime ASC, id ASC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []model.Chunk
	for rows.Next() {
		var chunk model.Chunk
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.TenantID, &chunk.ChunkNumber, &chunk.Text, &chunk.Ctime); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepo) SaveEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	const query = `
		UPDATE document_chunks
		SET embedding = $1, processed = TRUE
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, pgvector.NewVector(embedding), chunkID)
	return err
}

func (r *ChunkRepo) DeleteByDocument(ctx context.Context, tenantID, documentID string) error {
	const query = `DELETE FROM document_chunks WHERE tenant_id = $1 AND document_id = $2`
	_, err := r.db.ExecContext(ctx, query, tenantID, documentID)
	return err
}
