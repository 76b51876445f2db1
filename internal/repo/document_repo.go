package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/clausewise/clausewise/internal/model"
	"github.com/clausewise/clausewise/internal/pkg/dbutil"
	appErr "github.com/clausewise/clausewise/internal/pkg/errors"
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":            doc.ID,
		"tenant_id":     doc.TenantID,
		"filename":      doc.Filename,
		"contract_type": doc.ContractType,
		"storage_key":   doc.StorageKey,
		"chunk_count":   doc.ChunkCount,
		"state":         doc.State,
		"ctime":         doc.Ctime,
		"mtime":         doc.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil && dbutil.IsConflict(err) {
		return appErr.ErrConflict
	}
	return err
}

func (r *DocumentRepo) Get(ctx context.Context, tenantID, docID string) (*model.Document, error) {
	const query = `
		SELECT id, tenant_id, filename, contract_type, storage_key, chunk_count, state, ctime, mtime
		FROM documents
		WHERE id = $1 AND tenant_id = $2 AND state = $3
	`
	row := r.db.QueryRowContext(ctx, query, docID, tenantID, model.DocumentStateNormal)
	var doc model.Document
	if err := row.Scan(&doc.ID, &doc.TenantID, &doc.Filename, &doc.ContractType, &doc.StorageKey, &doc.ChunkCount, &doc.State, &doc.Ctime, &doc.Mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepo) List(ctx context.Context, tenantID string, limit int) ([]model.Document, error) {
	const query = `
		SELECT id, tenant_id, filename, contract_type, storage_key, chunk_count, state, ctime, mtime
		FROM documents
		WHERE tenant_id = $1 AND state = $2
		ORDER BY ctime DESC, id DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, model.DocumentStateNormal, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.ID, &doc.TenantID, &doc.Filename, &doc.ContractType, &doc.StorageKey, &doc.ChunkCount, &doc.State, &doc.Ctime, &doc.Mtime); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) MarkDeleted(ctx context.Context, tenantID, docID string, now int64) error {
	const query = `
		UPDATE documents SET state = $1, mtime = $2
		WHERE id = $3 AND tenant_id = $4 AND state = $5
	`
	res, err := r.db.ExecContext(ctx, query, model.DocumentStateDeleted, now, docID, tenantID, model.DocumentStateNormal)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
