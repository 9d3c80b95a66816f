package repository

import (
	"context"
	"time"

	"leadngn_backend/internal/leads/domain"
	"leadngn_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, lead_id, tier, status, due_at, attempts, last_error, last_run_at, created_at, updated_at`

// UpsertTask creates or reschedules the lead's single task row inside the
// current transaction.
func (o *txOps) UpsertTask(ctx context.Context, task *domain.RevalidationTask) error {
	_, err := o.tx.Exec(ctx, `
		INSERT INTO revalidation_tasks (id, lead_id, tier, status, due_at, attempts, last_error, last_run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (lead_id) DO UPDATE SET
			tier = EXCLUDED.tier,
			status = EXCLUDED.status,
			due_at = EXCLUDED.due_at,
			attempts = EXCLUDED.attempts,
			last_error = EXCLUDED.last_error,
			last_run_at = EXCLUDED.last_run_at,
			updated_at = EXCLUDED.updated_at`,
		task.ID, task.LeadID, task.Tier, task.Status, task.DueAt, task.Attempts,
		task.LastError, task.LastRunAt, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return apperr.Storage("upsert revalidation task", err)
	}
	return nil
}

// DeleteTaskByLead removes the lead's task row. Used when a lead reaches a
// terminal status.
func (o *txOps) DeleteTaskByLead(ctx context.Context, leadID uuid.UUID) error {
	_, err := o.tx.Exec(ctx,
		`DELETE FROM revalidation_tasks WHERE lead_id = $1`, leadID)
	if err != nil {
		return apperr.Storage("delete revalidation task", err)
	}
	return nil
}

// DeleteTask removes the lead's task row outside a transaction. Used by
// the runner when it finds the lead gone or terminal.
func (r *Repository) DeleteTask(ctx context.Context, leadID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM revalidation_tasks WHERE lead_id = $1`, leadID)
	if err != nil {
		return apperr.Storage("delete revalidation task", err)
	}
	return nil
}

// ClaimDueTasks atomically claims up to limit due tasks and marks them
// running. SKIP LOCKED lets multiple dispatcher instances share the table
// without double-claiming, and the running status keeps at most one run
// in flight per lead.
func (r *Repository) ClaimDueTasks(ctx context.Context, now time.Time, limit int) ([]*domain.RevalidationTask, error) {
	rows, err := r.pool.Query(ctx, `
		WITH due AS (
			SELECT id FROM revalidation_tasks
			WHERE status IN ('scheduled', 'due_again') AND due_at <= $1
			ORDER BY due_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE revalidation_tasks t
		SET status = 'running', updated_at = $1
		FROM due
		WHERE t.id = due.id
		RETURNING t.id, t.lead_id, t.tier, t.status, t.due_at, t.attempts,
			t.last_error, t.last_run_at, t.created_at, t.updated_at`,
		now, limit)
	if err != nil {
		return nil, apperr.Storage("claim due tasks", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// RescheduleTask completes a run: the task goes back to scheduled with a
// fresh tier, due time and a clean attempt counter.
func (r *Repository) RescheduleTask(ctx context.Context, leadID uuid.UUID, tier string, dueAt, ranAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE revalidation_tasks
		SET tier = $2, status = 'scheduled', due_at = $3, attempts = 0,
			last_error = NULL, last_run_at = $4, updated_at = $4
		WHERE lead_id = $1`,
		leadID, tier, dueAt, ranAt)
	if err != nil {
		return apperr.Storage("reschedule task", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("revalidation task not found")
	}
	return nil
}

// MarkTaskDueAgain records a failed run and pushes the task out by the
// retry interval.
func (r *Repository) MarkTaskDueAgain(ctx context.Context, leadID uuid.UUID, dueAt, ranAt time.Time, attempts int, lastErr string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE revalidation_tasks
		SET status = 'due_again', due_at = $2, attempts = $3,
			last_error = $4, last_run_at = $5, updated_at = $5
		WHERE lead_id = $1`,
		leadID, dueAt, attempts, lastErr, ranAt)
	if err != nil {
		return apperr.Storage("mark task due again", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("revalidation task not found")
	}
	return nil
}

// MarkTaskDueNow pulls the task forward so the next dispatcher poll picks
// it up. A task already running is left alone.
func (r *Repository) MarkTaskDueNow(ctx context.Context, leadID uuid.UUID, now time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE revalidation_tasks
		SET due_at = $2, updated_at = $2
		WHERE lead_id = $1 AND status <> 'running'`,
		leadID, now)
	if err != nil {
		return apperr.Storage("mark task due now", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("revalidation already in progress or not scheduled")
	}
	return nil
}

// GetTaskByLead fetches the lead's task row.
func (r *Repository) GetTaskByLead(ctx context.Context, leadID uuid.UUID) (*domain.RevalidationTask, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM revalidation_tasks WHERE lead_id = $1`, leadID)
	return scanTask(row)
}

// TaskStats summarizes the scheduler backlog.
type TaskStats struct {
	ByStatus map[string]int64 `json:"by_status"`
	Overdue  int64            `json:"overdue"`
}

// GetTaskStats counts tasks per status plus how many are past due.
func (r *Repository) GetTaskStats(ctx context.Context, now time.Time) (*TaskStats, error) {
	stats := &TaskStats{ByStatus: map[string]int64{}}

	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM revalidation_tasks GROUP BY status`)
	if err != nil {
		return nil, apperr.Storage("task stats", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, apperr.Storage("scan task stats", err)
		}
		stats.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate task stats", err)
	}

	row := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM revalidation_tasks
		WHERE status IN ('scheduled', 'due_again') AND due_at <= $1`, now)
	if err := row.Scan(&stats.Overdue); err != nil {
		return nil, apperr.Storage("count overdue tasks", err)
	}
	return stats, nil
}

func scanTask(row rowScanner) (*domain.RevalidationTask, error) {
	var task domain.RevalidationTask
	err := row.Scan(
		&task.ID, &task.LeadID, &task.Tier, &task.Status, &task.DueAt, &task.Attempts,
		&task.LastError, &task.LastRunAt, &task.CreatedAt, &task.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("revalidation task not found")
	}
	if err != nil {
		return nil, apperr.Storage("scan revalidation task", err)
	}
	return &task, nil
}

func scanTasks(rows pgx.Rows) ([]*domain.RevalidationTask, error) {
	var tasks []*domain.RevalidationTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate revalidation tasks", err)
	}
	return tasks, nil
}
