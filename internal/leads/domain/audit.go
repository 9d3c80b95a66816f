package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChangeReason classifies why a field changed.
type ChangeReason string

const (
	ReasonManualEdit            ChangeReason = "manual_edit"
	ReasonScheduledRevalidation ChangeReason = "scheduled_revalidation"
	ReasonAIEnrichment          ChangeReason = "ai_enrichment"
	ReasonReversion             ChangeReason = "reversion"
)

// Valid reports whether r is a known change reason.
func (r ChangeReason) Valid() bool {
	switch r {
	case ReasonManualEdit, ReasonScheduledRevalidation, ReasonAIEnrichment, ReasonReversion:
		return true
	}
	return false
}

// AuditEntry is one recorded field change. Entries are append-only and
// never mutated after insert; a revert produces a new entry.
type AuditEntry struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	Field     string
	OldValue  *string
	NewValue  *string
	Reason    ChangeReason
	Actor     string
	Metadata  map[string]any
	CreatedAt time.Time
}

// FieldChange is a pending mutation applied and audited atomically with
// the rest of its batch.
type FieldChange struct {
	Field    string
	NewValue *string
}

// ScorePoint is one step in a lead's score history.
type ScorePoint struct {
	Score      int       `json:"score"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ScoreTrend classifies the direction of a score series.
type ScoreTrend string

const (
	TrendImproving ScoreTrend = "improving"
	TrendDeclining ScoreTrend = "declining"
	TrendStable    ScoreTrend = "stable"
)

// ScoreEvolution is the full scoring history of a lead with its trend.
type ScoreEvolution struct {
	LeadID  uuid.UUID    `json:"lead_id"`
	Points  []ScorePoint `json:"points"`
	Trend   ScoreTrend   `json:"trend"`
	Current int          `json:"current"`
}

// ScoreCategory buckets a score for reporting.
func ScoreCategory(score int) string {
	switch {
	case score >= 80:
		return "high"
	case score >= 60:
		return "medium"
	case score >= 40:
		return "low"
	default:
		return "very_low"
	}
}
