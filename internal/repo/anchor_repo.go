package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/clausewise/clausewise/internal/model"
)

type AnchorRepo struct {
	db  *sql.DB
	dim int
}

func NewAnchorRepo(db *sql.DB, dim int) *AnchorRepo {
	return &AnchorRepo{db: db, dim: dim}
}

// ListActive returns every active anchor with an embedding. Anchors are
// a shared reference set, not tenant data. Mismatched dimensions are
// skipped the same way ChunkRepo skips them.
func (r *AnchorRepo) ListActive(ctx context.Context) ([]model.Anchor, error) {
	const query = `
		SELECT id, label, category, content, embedding, ctime
		FROM clause_anchors
		WHERE active AND embedding IS NOT NULL
		ORDER BY ctime ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var anchors []model.Anchor
	for rows.Next() {
		var anchor model.Anchor
		var vec pgvector.Vector
		if err := rows.Scan(&anchor.ID, &anchor.Label, &anchor.Category, &anchor.Text, &vec, &anchor.Ctime); err != nil {
			return nil, err
		}
		anchor.Active = true
		anchor.Embedding = vec.Slice()
		if r.dim > 0 && len(anchor.Embedding) != r.dim {
			logutil.GetLogger(ctx).Warn("skipping anchor with mismatched embedding dimension",
				zap.String("anchor_id", anchor.ID),
				zap.Int("got", len(anchor.Embedding)),
				zap.Int("want", r.dim),
			)
			continue
		}
		anchors = append(anchors, anchor)
	}
	return anchors, rows.Err()
}

func (r *AnchorRepo) Upsert(ctx context.Context, anchor *model.Anchor) error {
	const query = `
		INSERT INTO clause_anchors (id, label, category, content, embedding, active, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (label, category) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			active = EXCLUDED.active,
			ctime = EXCLUDED.ctime
	`
	_, err := r.db.ExecContext(ctx, query,
		anchor.ID,
		anchor.Label,
		anchor.Category,
		anchor.Text,
		pgvector.NewVector(anchor.Embedding),
		anchor.Active,
		anchor.Ctime,
	)
	return err
}
