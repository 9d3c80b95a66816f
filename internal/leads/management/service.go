// Package management implements the lead lifecycle service: intake,
// queries, edits and score reporting. All mutations flow through the
// audit service so every change leaves a trail.
package management

import (
	"context"
	"sort"
	"time"

	domainevents "leadngn_backend/internal/events"
	"leadngn_backend/internal/leads/domain"
	"leadngn_backend/internal/leads/repository"
	"leadngn_backend/internal/leads/scoring"
	"leadngn_backend/platform/apperr"
	"leadngn_backend/platform/clock"
	"leadngn_backend/platform/events"
	"leadngn_backend/platform/logger"
	"leadngn_backend/platform/phone"

	"github.com/google/uuid"
)

// Store is the persistence surface for lifecycle operations.
type Store interface {
	Atomically(ctx context.Context, fn func(ops repository.TxOps) error) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	List(ctx context.Context, filter repository.ListFilter) ([]*domain.Lead, error)
	GetStats(ctx context.Context) (*repository.Stats, error)
}

// Auditor records and reverts field changes with full history.
type Auditor interface {
	Record(ctx context.Context, leadID uuid.UUID, changes []domain.FieldChange, actor string, reason domain.ChangeReason) (*domain.Lead, []*domain.AuditEntry, error)
	Revert(ctx context.Context, leadID uuid.UUID, field string, asOf time.Time, actor string) (*domain.AuditEntry, error)
	History(ctx context.Context, leadID uuid.UUID, field string, limit int) ([]*domain.AuditEntry, error)
	ScoreEvolution(ctx context.Context, leadID uuid.UUID) (*domain.ScoreEvolution, error)
}

// Scorer computes quality scores from snapshots.
type Scorer interface {
	Score(snap domain.Snapshot) (scoring.Result, error)
}

// TaskPlanner schedules the first revalidation for new leads.
type TaskPlanner interface {
	PlanTask(lead *domain.Lead, now time.Time) *domain.RevalidationTask
}

// Service is the lead lifecycle service.
type Service struct {
	store   Store
	auditor Auditor
	scorer  Scorer
	planner TaskPlanner
	bus     events.Bus
	clock   clock.Clock
	log     *logger.Logger
}

// NewService creates a lead management service.
func NewService(store Store, auditor Auditor, scorer Scorer, planner TaskPlanner, bus events.Bus, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		auditor: auditor,
		scorer:  scorer,
		planner: planner,
		bus:     bus,
		clock:   clk,
		log:     log,
	}
}

// CreateInput is the intake payload for a new lead.
type CreateInput struct {
	CompanyName string
	Industry    string
	Website     *string
	Location    *string
	ContactName *string
	Email       *string
	Phone       *string
	Tags        []string
}

// Create scores and persists a new lead, records its initial score in the
// audit log and schedules its first revalidation.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Lead, error) {
	now := s.clock.Now()
	lead := &domain.Lead{
		ID:        uuid.New(),
		Status:    domain.StatusNew,
		Tags:      input.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	seed := []domain.FieldChange{
		{Field: domain.FieldCompanyName, NewValue: &input.CompanyName},
		{Field: domain.FieldIndustry, NewValue: &input.Industry},
		{Field: domain.FieldWebsite, NewValue: input.Website},
		{Field: domain.FieldLocation, NewValue: input.Location},
		{Field: domain.FieldContactName, NewValue: input.ContactName},
		{Field: domain.FieldEmail, NewValue: input.Email},
		{Field: domain.FieldPhone, NewValue: normalizePhone(input.Phone)},
	}
	for _, change := range seed {
		if change.NewValue == nil {
			continue
		}
		if err := lead.SetField(change.Field, change.NewValue); err != nil {
			return nil, err
		}
	}
	if lead.CompanyName == "" {
		return nil, apperr.InvalidInput("company name is mandatory")
	}
	if lead.Industry == "" {
		return nil, apperr.InvalidInput("industry is mandatory")
	}

	result, err := s.scorer.Score(lead.Snapshot(now))
	if err != nil {
		return nil, err
	}
	lead.QualityScore = result.Score
	lead.Confidence = result.Confidence

	scoreValue, _ := lead.FieldValue(domain.FieldQualityScore)
	err = s.store.Atomically(ctx, func(ops repository.TxOps) error {
		if err := ops.CreateLead(ctx, lead); err != nil {
			return err
		}
		entry := &domain.AuditEntry{
			ID:       uuid.New(),
			LeadID:   lead.ID,
			Field:    domain.FieldQualityScore,
			NewValue: scoreValue,
			Reason:   domain.ReasonManualEdit,
			Actor:    actorFrom(ctx),
			Metadata: map[string]any{
				"confidence":     result.Confidence,
				"engine_version": result.Version,
				"category":       domain.ScoreCategory(result.Score),
				"factors":        result.Factors,
			},
			CreatedAt: now,
		}
		if err := ops.InsertAuditEntry(ctx, entry); err != nil {
			return err
		}
		if task := s.planner.PlanTask(lead, now); task != nil {
			return ops.UpsertTask(ctx, task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.ScoreChange(lead.ID.String(), 0, lead.QualityScore, lead.Confidence, "created")
	s.bus.Publish(ctx, domainevents.LeadCreated{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       lead.ID,
		EmailDomain:  lead.EmailDomain(),
		QualityScore: lead.QualityScore,
	})
	return lead, nil
}

// Get fetches a single lead.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	return s.store.GetByID(ctx, id)
}

// List returns leads matching the filter.
func (s *Service) List(ctx context.Context, filter repository.ListFilter) ([]*domain.Lead, error) {
	return s.store.List(ctx, filter)
}

// Update applies field edits through the audit service. The changes map
// is sorted by field name so a given request always applies in the same
// order. A nil value clears an optional field.
func (s *Service) Update(ctx context.Context, id uuid.UUID, fields map[string]*string, actor string, reason domain.ChangeReason) (*domain.Lead, []*domain.AuditEntry, error) {
	if len(fields) == 0 {
		return nil, nil, apperr.InvalidInput("no changes supplied")
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	changes := make([]domain.FieldChange, 0, len(names))
	for _, name := range names {
		value := fields[name]
		if name == domain.FieldPhone {
			value = normalizePhone(value)
		}
		changes = append(changes, domain.FieldChange{Field: name, NewValue: value})
	}
	return s.auditor.Record(ctx, id, changes, actor, reason)
}

// History returns the lead's audit trail.
func (s *Service) History(ctx context.Context, id uuid.UUID, field string, limit int) ([]*domain.AuditEntry, error) {
	return s.auditor.History(ctx, id, field, limit)
}

// Revert restores a field to the value it held at the given instant.
func (s *Service) Revert(ctx context.Context, id uuid.UUID, field string, asOf time.Time, actor string) (*domain.AuditEntry, error) {
	return s.auditor.Revert(ctx, id, field, asOf, actor)
}

// ScoreEvolution returns the lead's scoring history with trend.
func (s *Service) ScoreEvolution(ctx context.Context, id uuid.UUID) (*domain.ScoreEvolution, error) {
	return s.auditor.ScoreEvolution(ctx, id)
}

// ScoreBreakdown recomputes the lead's score without persisting anything.
// Useful for inspecting which factors drive the current score.
func (s *Service) ScoreBreakdown(ctx context.Context, id uuid.UUID) (*scoring.Result, error) {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.scorer.Score(lead.Snapshot(s.clock.Now()))
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats returns the aggregate quality distribution.
func (s *Service) Stats(ctx context.Context) (*repository.Stats, error) {
	return s.store.GetStats(ctx)
}

// normalizePhone converts a phone value to E.164 when it parses; raw
// input is kept otherwise so validation can flag it later.
func normalizePhone(value *string) *string {
	if value == nil || *value == "" {
		return value
	}
	normalized := phone.NormalizeE164(*value)
	return &normalized
}

func actorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(logger.ActorKey).(string); ok && actor != "" {
		return actor
	}
	return "system"
}
