// Package audit implements the append-only change history for leads:
// recording mutations, reverting fields and reconstructing score history.
package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	domainevents "leadngn_backend/internal/events"
	"leadngn_backend/internal/leads/domain"
	"leadngn_backend/internal/leads/repository"
	"leadngn_backend/internal/leads/scoring"
	"leadngn_backend/platform/apperr"
	"leadngn_backend/platform/clock"
	"leadngn_backend/platform/events"
	"leadngn_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence surface the audit service needs.
type Store interface {
	Atomically(ctx context.Context, fn func(ops repository.TxOps) error) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	History(ctx context.Context, leadID uuid.UUID, filter repository.HistoryFilter) ([]*domain.AuditEntry, error)
	LatestEntryForField(ctx context.Context, leadID uuid.UUID, field string) (*domain.AuditEntry, error)
	EntryCurrentAt(ctx context.Context, leadID uuid.UUID, field string, asOf time.Time) (*domain.AuditEntry, error)
}

// Scorer recomputes the quality score after every applied batch.
type Scorer interface {
	Score(snap domain.Snapshot) (scoring.Result, error)
}

// TaskPlanner decides the next revalidation task for a lead. A nil task
// means the lead should not be revalidated (terminal status).
type TaskPlanner interface {
	PlanTask(lead *domain.Lead, now time.Time) *domain.RevalidationTask
}

// Service records, reverts and reports lead field changes.
type Service struct {
	store   Store
	scorer  Scorer
	planner TaskPlanner
	bus     events.Bus
	clock   clock.Clock
	log     *logger.Logger
}

// NewService creates an audit service.
func NewService(store Store, scorer Scorer, planner TaskPlanner, bus events.Bus, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{store: store, scorer: scorer, planner: planner, bus: bus, clock: clk, log: log}
}

// Record applies a batch of field changes to a lead, appends one audit
// entry per actual change, recomputes the quality score and reschedules
// revalidation, all in one transaction. Values equal to the current value
// produce no entry. The updated lead and the appended entries are returned.
func (s *Service) Record(ctx context.Context, leadID uuid.UUID, changes []domain.FieldChange, actor string, reason domain.ChangeReason) (*domain.Lead, []*domain.AuditEntry, error) {
	if len(changes) == 0 {
		return nil, nil, apperr.InvalidInput("no changes supplied")
	}
	if !reason.Valid() {
		return nil, nil, apperr.InvalidInput(fmt.Sprintf("unknown change reason %q", reason))
	}
	for _, change := range changes {
		if !domain.IsEditableField(change.Field) {
			return nil, nil, apperr.InvalidInput(fmt.Sprintf("field %q cannot be edited directly", change.Field))
		}
	}

	var (
		lead     *domain.Lead
		entries  []*domain.AuditEntry
		oldScore int
		rescored bool
	)
	err := s.store.Atomically(ctx, func(ops repository.TxOps) error {
		var err error
		lead, err = ops.GetLeadForUpdate(ctx, leadID)
		if err != nil {
			return err
		}
		oldScore = lead.QualityScore

		now := s.clock.Now()
		entries = entries[:0]
		for _, change := range changes {
			entry, err := s.applyChange(lead, change, actor, reason, now)
			if err != nil {
				return err
			}
			if entry != nil {
				entries = append(entries, entry)
			}
		}
		if len(entries) == 0 {
			return nil
		}

		scoreEntries, err := s.rescore(lead, actor, reason, now)
		if err != nil {
			return err
		}
		rescored = len(scoreEntries) > 0
		entries = append(entries, scoreEntries...)

		for _, entry := range entries {
			if err := ops.InsertAuditEntry(ctx, entry); err != nil {
				return err
			}
		}

		lead.UpdatedAt = now
		if err := ops.UpdateLead(ctx, lead); err != nil {
			return err
		}
		return s.replanTask(ctx, ops, lead, now)
	})
	if err != nil {
		return nil, nil, err
	}

	if rescored {
		s.log.ScoreChange(lead.ID.String(), oldScore, lead.QualityScore, lead.Confidence, string(reason))
		s.bus.Publish(ctx, domainevents.LeadRescored{
			BaseEvent:   events.NewBaseEvent(),
			LeadID:      lead.ID,
			EmailDomain: lead.EmailDomain(),
			OldScore:    oldScore,
			NewScore:    lead.QualityScore,
			Confidence:  lead.Confidence,
			Reason:      string(reason),
		})
	}
	return lead, entries, nil
}

// Revert restores a field to the value it held at the given instant. The
// revert itself is a new audit entry; history is never rewritten. If the
// field is mutated between the pre-revert read and the write, the revert
// fails with a conflict and the caller must re-read and retry.
func (s *Service) Revert(ctx context.Context, leadID uuid.UUID, field string, asOf time.Time, actor string) (*domain.AuditEntry, error) {
	if !domain.IsAuditableField(field) {
		return nil, apperr.InvalidInput(fmt.Sprintf("unknown field %q", field))
	}
	if !domain.IsEditableField(field) {
		return nil, apperr.InvalidInput(fmt.Sprintf("field %q is derived and cannot be reverted directly", field))
	}

	target, err := s.store.EntryCurrentAt(ctx, leadID, field, asOf)
	if err != nil {
		return nil, err
	}
	latest, err := s.store.LatestEntryForField(ctx, leadID, field)
	if err != nil {
		return nil, err
	}

	var (
		lead     *domain.Lead
		reverted *domain.AuditEntry
		oldScore int
	)
	err = s.store.Atomically(ctx, func(ops repository.TxOps) error {
		var err error
		lead, err = ops.GetLeadForUpdate(ctx, leadID)
		if err != nil {
			return err
		}
		oldScore = lead.QualityScore

		current, _ := lead.FieldValue(field)
		if !valueEqual(current, latest.NewValue) {
			return apperr.Conflict(fmt.Sprintf("field %q was modified concurrently", field))
		}

		now := s.clock.Now()
		if err := lead.SetField(field, target.NewValue); err != nil {
			return err
		}
		reverted = &domain.AuditEntry{
			ID:       uuid.New(),
			LeadID:   lead.ID,
			Field:    field,
			OldValue: current,
			NewValue: target.NewValue,
			Reason:   domain.ReasonReversion,
			Actor:    actor,
			Metadata: map[string]any{
				"reverted_to_entry_id": target.ID.String(),
				"as_of":                asOf.UTC().Format(time.RFC3339),
			},
			CreatedAt: now,
		}
		if err := ops.InsertAuditEntry(ctx, reverted); err != nil {
			return err
		}

		scoreEntries, err := s.rescore(lead, actor, domain.ReasonReversion, now)
		if err != nil {
			return err
		}
		for _, entry := range scoreEntries {
			if err := ops.InsertAuditEntry(ctx, entry); err != nil {
				return err
			}
		}

		lead.UpdatedAt = now
		if err := ops.UpdateLead(ctx, lead); err != nil {
			return err
		}
		return s.replanTask(ctx, ops, lead, now)
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, domainevents.LeadFieldReverted{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		EmailDomain: lead.EmailDomain(),
		Field:       field,
	})
	if lead.QualityScore != oldScore {
		s.log.ScoreChange(lead.ID.String(), oldScore, lead.QualityScore, lead.Confidence, string(domain.ReasonReversion))
	}
	return reverted, nil
}

// History returns the lead's audit entries ordered oldest first.
func (s *Service) History(ctx context.Context, leadID uuid.UUID, field string, limit int) ([]*domain.AuditEntry, error) {
	if field != "" && !domain.IsAuditableField(field) {
		return nil, apperr.InvalidInput(fmt.Sprintf("unknown field %q", field))
	}
	if _, err := s.store.GetByID(ctx, leadID); err != nil {
		return nil, err
	}
	return s.store.History(ctx, leadID, repository.HistoryFilter{Field: field, Limit: limit})
}

// Score evolution trend is judged on the first-to-last delta. Small
// wobbles inside this band count as stable.
const trendThreshold = 5

// ScoreEvolution reconstructs the lead's score history from the audit log
// and classifies its trend.
func (s *Service) ScoreEvolution(ctx context.Context, leadID uuid.UUID) (*domain.ScoreEvolution, error) {
	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.History(ctx, leadID, repository.HistoryFilter{Field: domain.FieldQualityScore})
	if err != nil {
		return nil, err
	}

	evolution := &domain.ScoreEvolution{
		LeadID:  leadID,
		Trend:   domain.TrendStable,
		Current: lead.QualityScore,
	}
	for _, entry := range entries {
		if entry.NewValue == nil {
			continue
		}
		score, err := strconv.Atoi(*entry.NewValue)
		if err != nil {
			continue
		}
		point := domain.ScorePoint{
			Score:      score,
			Reason:     string(entry.Reason),
			RecordedAt: entry.CreatedAt,
		}
		if c, ok := entry.Metadata["confidence"].(float64); ok {
			point.Confidence = c
		}
		evolution.Points = append(evolution.Points, point)
	}

	if len(evolution.Points) >= 2 {
		delta := evolution.Points[len(evolution.Points)-1].Score - evolution.Points[0].Score
		switch {
		case delta > trendThreshold:
			evolution.Trend = domain.TrendImproving
		case delta < -trendThreshold:
			evolution.Trend = domain.TrendDeclining
		}
	}
	return evolution, nil
}

// applyChange mutates one field and returns its audit entry, or nil when
// the new value equals the current one.
func (s *Service) applyChange(lead *domain.Lead, change domain.FieldChange, actor string, reason domain.ChangeReason, now time.Time) (*domain.AuditEntry, error) {
	old, ok := lead.FieldValue(change.Field)
	if !ok {
		return nil, apperr.InvalidInput(fmt.Sprintf("unknown field %q", change.Field))
	}
	if valueEqual(old, change.NewValue) {
		return nil, nil
	}
	if err := lead.SetField(change.Field, change.NewValue); err != nil {
		return nil, err
	}
	applied, _ := lead.FieldValue(change.Field)
	return &domain.AuditEntry{
		ID:        uuid.New(),
		LeadID:    lead.ID,
		Field:     change.Field,
		OldValue:  old,
		NewValue:  applied,
		Reason:    reason,
		Actor:     actor,
		CreatedAt: now,
	}, nil
}

// rescore recomputes the score from the lead's current attributes and
// returns score and confidence entries when either moved.
func (s *Service) rescore(lead *domain.Lead, actor string, reason domain.ChangeReason, now time.Time) ([]*domain.AuditEntry, error) {
	result, err := s.scorer.Score(lead.Snapshot(now))
	if err != nil {
		return nil, err
	}

	var entries []*domain.AuditEntry
	if result.Score != lead.QualityScore {
		old, _ := lead.FieldValue(domain.FieldQualityScore)
		lead.QualityScore = result.Score
		newValue, _ := lead.FieldValue(domain.FieldQualityScore)
		entries = append(entries, &domain.AuditEntry{
			ID:       uuid.New(),
			LeadID:   lead.ID,
			Field:    domain.FieldQualityScore,
			OldValue: old,
			NewValue: newValue,
			Reason:   reason,
			Actor:    actor,
			Metadata: map[string]any{
				"confidence":     result.Confidence,
				"engine_version": result.Version,
				"category":       domain.ScoreCategory(result.Score),
				"factors":        result.Factors,
			},
			CreatedAt: now,
		})
	}
	if result.Confidence != lead.Confidence {
		old, _ := lead.FieldValue(domain.FieldConfidence)
		lead.Confidence = result.Confidence
		newValue, _ := lead.FieldValue(domain.FieldConfidence)
		entries = append(entries, &domain.AuditEntry{
			ID:        uuid.New(),
			LeadID:    lead.ID,
			Field:     domain.FieldConfidence,
			OldValue:  old,
			NewValue:  newValue,
			Reason:    reason,
			Actor:     actor,
			CreatedAt: now,
		})
	}
	return entries, nil
}

// replanTask keeps the revalidation schedule in step with the lead: a
// terminal lead loses its task, everything else gets its tier and due
// time refreshed from the data just written.
func (s *Service) replanTask(ctx context.Context, ops repository.TxOps, lead *domain.Lead, now time.Time) error {
	if lead.Status.IsTerminal() {
		return ops.DeleteTaskByLead(ctx, lead.ID)
	}
	task := s.planner.PlanTask(lead, now)
	if task == nil {
		return nil
	}
	return ops.UpsertTask(ctx, task)
}

func valueEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
