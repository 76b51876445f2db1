package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"github.com/clausewise/clausewise/internal/model"
	appErr "github.com/clausewise/clausewise/internal/pkg/errors"
)

type DraftTaskRepo struct {
	db *sql.DB
}

func NewDraftTaskRepo(db *sql.DB) *DraftTaskRepo {
	return &DraftTaskRepo{db: db}
}

func (r *DraftTaskRepo) Create(ctx context.Context, task *model.DraftTask) error {
	params, err := json.Marshal(task.InputParams)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO draft_tasks (id, tenant_id, contract_type, input_params, status, attempts, ctime, mtime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, query,
		task.ID,
		task.TenantID,
		task.ContractType,
		string(params),
		task.Status,
		task.Attempts,
		task.Ctime,
		task.Mtime,
	)
	return err
}

func (r *DraftTaskRepo) Get(ctx context.Context, tenantID, taskID string) (*model.DraftTask, error) {
	const query = `
		SELECT id, tenant_id, contract_type, input_params, status, generated_text, citations, error, attempts, ctime, mtime
		FROM draft_tasks
		WHERE id = $1 AND tenant_id = $2
	`
	row := r.db.QueryRowContext(ctx, query, taskID, tenantID)
	task, err := scanDraftTask(row.Scan)
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	return task, err
}

// ClaimPending flips up to limit pending tasks to processing and
// returns them. The UPDATE ... RETURNING keeps concurrent workers from
// picking up the same task twice.
func (r *DraftTaskRepo) ClaimPending(ctx context.Context, limit int, now int64) ([]model.DraftTask, error) {
	const query = `
		UPDATE draft_tasks
		SET status = $1, mtime = $2
		WHERE id IN (
			SELECT id FROM draft_tasks
			WHERE status = $3
			ORDER BY ctime ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, tenant_id, contract_type, input_params, status, generated_text, citations, error, attempts, ctime, mtime
	`
	rows, err := r.db.QueryContext(ctx, query, model.DraftTaskStatusProcessing, now, model.DraftTaskStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []model.DraftTask
	for rows.Next() {
		task, err := scanDraftTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *DraftTaskRepo) Complete(ctx context.Context, taskID, generatedText string, citations []model.Citation, now int64) error {
	blob, err := json.Marshal(citations)
	if err != nil {
		return err
	}
	const query = `
		UPDATE draft_tasks
		SET status = $1, generated_text = $2, citations = $3, error = '', mtime = $4
		WHERE id = $5
	`
	_, err = r.db.ExecContext(ctx, query, model.DraftTaskStatusCompleted, generatedText, string(blob), now, taskID)
	return err
}

func (r *DraftTaskRepo) Fail(ctx context.Context, taskID, reason string, now int64) error {
	const query = `
		UPDATE draft_tasks
		SET status = $1, error = $2, mtime = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, model.DraftTaskStatusFailed, reason, now, taskID)
	return err
}

// Requeue puts a claimed task back to pending with its attempt counter
// bumped, for transient upstream failures.
func (r *DraftTaskRepo) Requeue(ctx context.Context, taskID string, now int64) error {
	const query = `
		UPDATE draft_tasks
		SET status = $1, attempts = attempts + 1, mtime = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, model.DraftTaskStatusPending, now, taskID)
	return err
}

func (r *DraftTaskRepo) ListByIDs(ctx context.Context, tenantID string, taskIDs []string) ([]model.DraftTask, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, tenant_id, contract_type, input_params, status, generated_text, citations, error, attempts, ctime, mtime
		FROM draft_tasks
		WHERE tenant_id = ? AND id IN (?)
	`
	query, args, err := sqlx.In(query, tenantID, taskIDs)
	if err != nil {
		return nil, err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []model.DraftTask
	for rows.Next() {
		task, err := scanDraftTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanDraftTask(scan func(dest ...interface{}) error) (*model.DraftTask, error) {
	var task model.DraftTask
	var params, citations string
	if err := scan(&task.ID, &task.TenantID, &task.ContractType, &params, &task.Status,
		&task.GeneratedText, &citations, &task.Error, &task.Attempts, &task.Ctime, &task.Mtime); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(params), &task.InputParams); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(citations), &task.Citations); err != nil {
		return nil, err
	}
	return &task, nil
}
