package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"leadngn_backend/internal/leads/domain"
	"leadngn_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const auditColumns = `id, lead_id, field, old_value, new_value, reason, actor, metadata, created_at`

// InsertAuditEntry appends one entry inside the current transaction.
// The audit log is append-only; there is no update or delete path.
func (o *txOps) InsertAuditEntry(ctx context.Context, entry *domain.AuditEntry) error {
	metadata, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return err
	}
	_, err = o.tx.Exec(ctx, `
		INSERT INTO lead_audit_log (id, lead_id, field, old_value, new_value, reason, actor, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.LeadID, entry.Field, entry.OldValue, entry.NewValue,
		entry.Reason, entry.Actor, metadata, entry.CreatedAt,
	)
	if err != nil {
		return apperr.Storage("insert audit entry", err)
	}
	return nil
}

// HistoryFilter narrows audit history queries.
type HistoryFilter struct {
	Field string
	Limit int
}

// History returns the audit entries for a lead ordered oldest first,
// optionally restricted to one field.
func (r *Repository) History(ctx context.Context, leadID uuid.UUID, filter HistoryFilter) ([]*domain.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM lead_audit_log WHERE lead_id = $1`
	args := []any{leadID}
	if filter.Field != "" {
		args = append(args, filter.Field)
		query += fmt.Sprintf(" AND field = $%d", len(args))
	}
	query += " ORDER BY created_at ASC, id ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("query audit history", err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate audit history", err)
	}
	return entries, nil
}

// LatestEntryForField returns the most recent audit entry for one field,
// or a not found error when the field was never changed.
func (r *Repository) LatestEntryForField(ctx context.Context, leadID uuid.UUID, field string) (*domain.AuditEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+auditColumns+` FROM lead_audit_log
		WHERE lead_id = $1 AND field = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, leadID, field)
	entry, err := scanAuditEntry(row)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.NoPriorValue(fmt.Sprintf("no recorded change for field %q", field))
	}
	return entry, err
}

// EntryCurrentAt returns the entry whose new_value was current for the
// field at the given instant, or a no prior value error when the field
// had not been changed by then.
func (r *Repository) EntryCurrentAt(ctx context.Context, leadID uuid.UUID, field string, asOf time.Time) (*domain.AuditEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+auditColumns+` FROM lead_audit_log
		WHERE lead_id = $1 AND field = $2 AND created_at <= $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, leadID, field, asOf)
	entry, err := scanAuditEntry(row)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.NoPriorValue(fmt.Sprintf("no recorded change for field %q at or before %s", field, asOf.UTC().Format(time.RFC3339)))
	}
	return entry, err
}

func scanAuditEntry(row rowScanner) (*domain.AuditEntry, error) {
	var entry domain.AuditEntry
	var metadata []byte
	err := row.Scan(
		&entry.ID, &entry.LeadID, &entry.Field, &entry.OldValue, &entry.NewValue,
		&entry.Reason, &entry.Actor, &metadata, &entry.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("audit entry not found")
	}
	if err != nil {
		return nil, apperr.Storage("scan audit entry", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return nil, apperr.Storage("decode audit metadata", err)
		}
	}
	return &entry, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperr.Storage("encode audit metadata", err)
	}
	return raw, nil
}
