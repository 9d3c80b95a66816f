// Package repository persists leads, their audit log and their
// revalidation tasks in Postgres.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leadngn_backend/internal/leads/domain"
	"leadngn_backend/platform/apperr"
	"leadngn_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadColumns = `id, company_name, industry, website, location, contact_name, email, phone,
	tags, status, quality_score, confidence, validation_status, website_status, email_score,
	phone_valid, validation_score, decision_maker, pain_point_count, interaction_count,
	last_validated_at, created_at, updated_at`

// TxOps is the set of writes available inside one transaction. Callers
// get an instance from Atomically; everything executed through it commits
// or rolls back as a unit.
type TxOps interface {
	CreateLead(ctx context.Context, lead *domain.Lead) error
	GetLeadForUpdate(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	UpdateLead(ctx context.Context, lead *domain.Lead) error
	InsertAuditEntry(ctx context.Context, entry *domain.AuditEntry) error
	UpsertTask(ctx context.Context, task *domain.RevalidationTask) error
	DeleteTaskByLead(ctx context.Context, leadID uuid.UUID) error
}

// Repository provides Postgres-backed lead storage.
type Repository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// New creates a lead repository.
func New(pool *pgxpool.Pool, log *logger.Logger) *Repository {
	return &Repository{pool: pool, log: log}
}

// Atomically runs fn inside a single transaction. Any error from fn rolls
// the whole batch back.
func (r *Repository) Atomically(ctx context.Context, fn func(ops TxOps) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Storage("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txOps{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Storage("commit transaction", err)
	}
	return nil
}

type txOps struct {
	tx pgx.Tx
}

func (o *txOps) CreateLead(ctx context.Context, lead *domain.Lead) error {
	_, err := o.tx.Exec(ctx, `
		INSERT INTO leads (
			id, company_name, industry, website, location, contact_name, email, phone,
			tags, status, quality_score, confidence, validation_status, website_status,
			email_score, phone_valid, validation_score, decision_maker, pain_point_count,
			interaction_count, last_validated_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		lead.ID, lead.CompanyName, lead.Industry, lead.Website, lead.Location,
		lead.ContactName, lead.Email, lead.Phone, lead.Tags, lead.Status,
		lead.QualityScore, lead.Confidence, lead.ValidationStatus, lead.WebsiteStatus,
		lead.EmailScore, lead.PhoneValid, lead.ValidationScore, lead.DecisionMaker,
		lead.PainPointCount, lead.InteractionCount, lead.LastValidatedAt, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return apperr.Storage("insert lead", err)
	}
	return nil
}

// GetLeadForUpdate locks the lead row for the remainder of the transaction
// so concurrent batches against the same lead serialize.
func (o *txOps) GetLeadForUpdate(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	row := o.tx.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id)
	return scanLead(row)
}

func (o *txOps) UpdateLead(ctx context.Context, lead *domain.Lead) error {
	tag, err := o.tx.Exec(ctx, `
		UPDATE leads SET
			company_name = $2, industry = $3, website = $4, location = $5,
			contact_name = $6, email = $7, phone = $8, tags = $9, status = $10,
			quality_score = $11, confidence = $12, validation_status = $13,
			website_status = $14, email_score = $15, phone_valid = $16,
			validation_score = $17, decision_maker = $18, pain_point_count = $19,
			interaction_count = $20, last_validated_at = $21, updated_at = $22
		WHERE id = $1`,
		lead.ID, lead.CompanyName, lead.Industry, lead.Website, lead.Location,
		lead.ContactName, lead.Email, lead.Phone, lead.Tags, lead.Status,
		lead.QualityScore, lead.Confidence, lead.ValidationStatus, lead.WebsiteStatus,
		lead.EmailScore, lead.PhoneValid, lead.ValidationScore, lead.DecisionMaker,
		lead.PainPointCount, lead.InteractionCount, lead.LastValidatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return apperr.Storage("update lead", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("lead not found")
	}
	return nil
}

// GetByID fetches a single lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	Status   string
	Industry string
	MinScore int
	Limit    int
	Offset   int
}

// List returns leads matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]*domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads`
	var conds []string
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Industry != "" {
		args = append(args, filter.Industry)
		conds = append(conds, fmt.Sprintf("industry = $%d", len(args)))
	}
	if filter.MinScore > 0 {
		args = append(args, filter.MinScore)
		conds = append(conds, fmt.Sprintf("quality_score >= $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("list leads", err)
	}
	defer rows.Close()
	return scanLeads(rows)
}

// ListWithEmail returns every non-terminal lead that has an email address.
// Account grouping starts from this set.
func (r *Repository) ListWithEmail(ctx context.Context) ([]*domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE email IS NOT NULL
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, apperr.Storage("list leads with email", err)
	}
	defer rows.Close()
	return scanLeads(rows)
}

// Stats is the aggregate quality distribution of the lead base.
type Stats struct {
	Total         int64            `json:"total"`
	ByCategory    map[string]int64 `json:"by_category"`
	ByStatus      map[string]int64 `json:"by_status"`
	AverageScore  float64          `json:"average_score"`
	AvgConfidence float64          `json:"average_confidence"`
}

// GetStats aggregates score distribution and status counts.
func (r *Repository) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByCategory: map[string]int64{},
		ByStatus:   map[string]int64{},
	}

	row := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(quality_score), 0), COALESCE(AVG(confidence), 0)
		FROM leads`)
	if err := row.Scan(&stats.Total, &stats.AverageScore, &stats.AvgConfidence); err != nil {
		return nil, apperr.Storage("lead stats", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT
			CASE
				WHEN quality_score >= 80 THEN 'high'
				WHEN quality_score >= 60 THEN 'medium'
				WHEN quality_score >= 40 THEN 'low'
				ELSE 'very_low'
			END AS category,
			COUNT(*)
		FROM leads GROUP BY 1`)
	if err != nil {
		return nil, apperr.Storage("lead score distribution", err)
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var count int64
		if err := rows.Scan(&category, &count); err != nil {
			return nil, apperr.Storage("scan score distribution", err)
		}
		stats.ByCategory[category] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate score distribution", err)
	}

	statusRows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, apperr.Storage("lead status distribution", err)
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var status string
		var count int64
		if err := statusRows.Scan(&status, &count); err != nil {
			return nil, apperr.Storage("scan status distribution", err)
		}
		stats.ByStatus[status] = count
	}
	if err := statusRows.Err(); err != nil {
		return nil, apperr.Storage("iterate status distribution", err)
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*domain.Lead, error) {
	var lead domain.Lead
	err := row.Scan(
		&lead.ID, &lead.CompanyName, &lead.Industry, &lead.Website, &lead.Location,
		&lead.ContactName, &lead.Email, &lead.Phone, &lead.Tags, &lead.Status,
		&lead.QualityScore, &lead.Confidence, &lead.ValidationStatus, &lead.WebsiteStatus,
		&lead.EmailScore, &lead.PhoneValid, &lead.ValidationScore, &lead.DecisionMaker,
		&lead.PainPointCount, &lead.InteractionCount, &lead.LastValidatedAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("lead not found")
	}
	if err != nil {
		return nil, apperr.Storage("scan lead", err)
	}
	return &lead, nil
}

func scanLeads(rows pgx.Rows) ([]*domain.Lead, error) {
	var leads []*domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate leads", err)
	}
	return leads, nil
}
