package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/clausewise/clausewise/internal/model"
	"github.com/clausewise/clausewise/internal/pkg/dbutil"
	appErr "github.com/clausewise/clausewise/internal/pkg/errors"
)

type TenantRepo struct {
	db *sql.DB
}

func NewTenantRepo(db *sql.DB) *TenantRepo {
	return &TenantRepo{db: db}
}

func (r *TenantRepo) Create(ctx context.Context, tenant *model.Tenant) error {
	data := map[string]interface{}{
		"id":           tenant.ID,
		"name":         tenant.Name,
		"api_key_hash": tenant.APIKeyHash,
		"state":        tenant.State,
		"ctime":        tenant.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("tenants", []map[string]interface{}{data})
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

func (r *TenantRepo) Get(ctx context.Context, tenantID string) (*model.Tenant, error) {
	const query = `SELECT id, name, api_key_hash, state, ctime FROM tenants WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tenantID))
}

func (r *TenantRepo) GetByName(ctx context.Context, name string) (*model.Tenant, error) {
	const query = `SELECT id, name, api_key_hash, state, ctime FROM tenants WHERE name = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, name))
}

func (r *TenantRepo) scanOne(row *sql.Row) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := row.Scan(&tenant.ID, &tenant.Name, &tenant.APIKeyHash, &tenant.State, &tenant.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &tenant, nil
}
