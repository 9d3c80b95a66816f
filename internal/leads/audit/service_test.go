package audit

import (
	"context"
	"strconv"
	"testing"
	"time"

	"leadngn_backend/internal/leads/domain"
	"leadngn_backend/internal/leads/repository"
	"leadngn_backend/internal/leads/scoring"
	"leadngn_backend/platform/apperr"
	"leadngn_backend/platform/clock"
	"leadngn_backend/platform/events"
	"leadngn_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store holding a single lead.
type fakeStore struct {
	lead        *domain.Lead
	entries     []*domain.AuditEntry
	task        *domain.RevalidationTask
	taskDeleted bool
}

func (f *fakeStore) Atomically(ctx context.Context, fn func(ops repository.TxOps) error) error {
	backup := *f.lead
	backupEntries := len(f.entries)
	if err := fn(&fakeOps{store: f}); err != nil {
		*f.lead = backup
		f.entries = f.entries[:backupEntries]
		return err
	}
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	if f.lead == nil || f.lead.ID != id {
		return nil, apperr.NotFound("lead not found")
	}
	return f.lead, nil
}

func (f *fakeStore) History(ctx context.Context, leadID uuid.UUID, filter repository.HistoryFilter) ([]*domain.AuditEntry, error) {
	var out []*domain.AuditEntry
	for _, e := range f.entries {
		if e.LeadID != leadID {
			continue
		}
		if filter.Field != "" && e.Field != filter.Field {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) LatestEntryForField(ctx context.Context, leadID uuid.UUID, field string) (*domain.AuditEntry, error) {
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].LeadID == leadID && f.entries[i].Field == field {
			return f.entries[i], nil
		}
	}
	return nil, apperr.NoPriorValue("no recorded change")
}

func (f *fakeStore) EntryCurrentAt(ctx context.Context, leadID uuid.UUID, field string, asOf time.Time) (*domain.AuditEntry, error) {
	for i := len(f.entries) - 1; i >= 0; i-- {
		e := f.entries[i]
		if e.LeadID == leadID && e.Field == field && !e.CreatedAt.After(asOf) {
			return e, nil
		}
	}
	return nil, apperr.NoPriorValue("no recorded change")
}

type fakeOps struct {
	store *fakeStore
}

func (o *fakeOps) CreateLead(ctx context.Context, lead *domain.Lead) error {
	o.store.lead = lead
	return nil
}

func (o *fakeOps) GetLeadForUpdate(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	return o.store.GetByID(ctx, id)
}

func (o *fakeOps) UpdateLead(ctx context.Context, lead *domain.Lead) error {
	o.store.lead = lead
	return nil
}

func (o *fakeOps) InsertAuditEntry(ctx context.Context, entry *domain.AuditEntry) error {
	o.store.entries = append(o.store.entries, entry)
	return nil
}

func (o *fakeOps) UpsertTask(ctx context.Context, task *domain.RevalidationTask) error {
	o.store.task = task
	return nil
}

func (o *fakeOps) DeleteTaskByLead(ctx context.Context, leadID uuid.UUID) error {
	o.store.task = nil
	o.store.taskDeleted = true
	return nil
}

// fakePlanner schedules every lead one day out.
type fakePlanner struct{}

func (fakePlanner) PlanTask(lead *domain.Lead, now time.Time) *domain.RevalidationTask {
	return &domain.RevalidationTask{
		ID:     uuid.New(),
		LeadID: lead.ID,
		Tier:   "low",
		Status: domain.TaskScheduled,
		DueAt:  now.Add(24 * time.Hour),
	}
}

type fakeBus struct {
	published []events.Event
}

func (b *fakeBus) Publish(ctx context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *fakeBus) PublishSync(ctx context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *fakeBus) Subscribe(eventName string, handler events.Handler) {}

func strPtr(s string) *string { return &s }

func newTestLead() *domain.Lead {
	return &domain.Lead{
		ID:          uuid.New(),
		CompanyName: "Acme Manufacturing",
		Industry:    "manufacturing",
		Status:      domain.StatusNew,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestService(store *fakeStore) (*Service, *fakeBus, *clock.Fake) {
	bus := &fakeBus{}
	clk := clock.NewFake(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService(store, scoring.NewEngine(), fakePlanner{}, bus, clk, logger.New("development"))
	return svc, bus, clk
}

func TestRecordAppendsEntriesAndRescored(t *testing.T) {
	store := &fakeStore{lead: newTestLead()}
	svc, bus, _ := newTestService(store)

	lead, entries, err := svc.Record(context.Background(), store.lead.ID,
		[]domain.FieldChange{{Field: domain.FieldEmail, NewValue: strPtr("jane@acme.com")}},
		"tester", domain.ReasonManualEdit)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if lead.Email == nil || *lead.Email != "jane@acme.com" {
		t.Errorf("email not applied: %v", lead.Email)
	}

	fields := map[string]bool{}
	for _, e := range entries {
		fields[e.Field] = true
	}
	if !fields[domain.FieldEmail] {
		t.Error("missing audit entry for email change")
	}
	if !fields[domain.FieldQualityScore] {
		t.Error("missing audit entry for score change")
	}
	if !fields[domain.FieldConfidence] {
		t.Error("missing audit entry for confidence change")
	}
	if store.task == nil {
		t.Error("revalidation task not replanned")
	}
	if len(bus.published) == 0 {
		t.Error("no rescore event published")
	}
}

func TestRecordSkipsNoOpChanges(t *testing.T) {
	lead := newTestLead()
	store := &fakeStore{lead: lead}
	svc, bus, _ := newTestService(store)

	_, entries, err := svc.Record(context.Background(), lead.ID,
		[]domain.FieldChange{{Field: domain.FieldCompanyName, NewValue: strPtr("Acme Manufacturing")}},
		"tester", domain.ReasonManualEdit)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("no-op change produced %d entries", len(entries))
	}
	if len(bus.published) != 0 {
		t.Error("no-op change published an event")
	}
}

func TestRecordRejectsDerivedFields(t *testing.T) {
	store := &fakeStore{lead: newTestLead()}
	svc, _, _ := newTestService(store)

	for _, field := range []string{domain.FieldQualityScore, domain.FieldConfidence} {
		_, _, err := svc.Record(context.Background(), store.lead.ID,
			[]domain.FieldChange{{Field: field, NewValue: strPtr("90")}},
			"tester", domain.ReasonManualEdit)
		if !apperr.Is(err, apperr.KindInvalidInput) {
			t.Errorf("direct edit of %s: got %v, want invalid input", field, err)
		}
	}
}

func TestRecordMandatoryFieldCannotBeCleared(t *testing.T) {
	store := &fakeStore{lead: newTestLead()}
	svc, _, _ := newTestService(store)

	_, _, err := svc.Record(context.Background(), store.lead.ID,
		[]domain.FieldChange{{Field: domain.FieldCompanyName, NewValue: nil}},
		"tester", domain.ReasonManualEdit)
	if !apperr.Is(err, apperr.KindInvalidInput) {
		t.Fatalf("clearing company_name: got %v, want invalid input", err)
	}
	if store.lead.CompanyName != "Acme Manufacturing" {
		t.Error("failed batch leaked a partial write")
	}
}

func TestRecordTerminalStatusRemovesTask(t *testing.T) {
	store := &fakeStore{lead: newTestLead(), task: &domain.RevalidationTask{}}
	svc, _, _ := newTestService(store)

	_, _, err := svc.Record(context.Background(), store.lead.ID,
		[]domain.FieldChange{{Field: domain.FieldStatus, NewValue: strPtr("converted")}},
		"tester", domain.ReasonManualEdit)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !store.taskDeleted {
		t.Error("terminal status should delete the revalidation task")
	}
}

// seedEmailHistory writes two email changes: nil -> old@acme.com on
// Jan 10 and old@acme.com -> new@acme.com on Jan 20.
func seedEmailHistory(store *fakeStore, lead *domain.Lead) {
	store.entries = append(store.entries,
		&domain.AuditEntry{
			ID:        uuid.New(),
			LeadID:    lead.ID,
			Field:     domain.FieldEmail,
			NewValue:  strPtr("old@acme.com"),
			Reason:    domain.ReasonManualEdit,
			Actor:     "tester",
			CreatedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		},
		&domain.AuditEntry{
			ID:        uuid.New(),
			LeadID:    lead.ID,
			Field:     domain.FieldEmail,
			OldValue:  strPtr("old@acme.com"),
			NewValue:  strPtr("new@acme.com"),
			Reason:    domain.ReasonManualEdit,
			Actor:     "tester",
			CreatedAt: time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC),
		},
	)
}

func TestRevertRestoresValueCurrentAtInstant(t *testing.T) {
	lead := newTestLead()
	email := "new@acme.com"
	lead.Email = &email
	store := &fakeStore{lead: lead}
	seedEmailHistory(store, lead)
	svc, _, _ := newTestService(store)

	asOf := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	entry, err := svc.Revert(context.Background(), lead.ID, domain.FieldEmail, asOf, "tester")
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if store.lead.Email == nil || *store.lead.Email != "old@acme.com" {
		t.Errorf("email not restored: %v", store.lead.Email)
	}
	if entry.Reason != domain.ReasonReversion {
		t.Errorf("reason = %s, want %s", entry.Reason, domain.ReasonReversion)
	}
	if entry.Metadata["reverted_to_entry_id"] == nil {
		t.Error("revert entry should reference the restored entry")
	}

	// Repeating the revert to the same instant leaves the value intact.
	if _, err := svc.Revert(context.Background(), lead.ID, domain.FieldEmail, asOf, "tester"); err != nil {
		t.Fatalf("repeated revert: %v", err)
	}
	if *store.lead.Email != "old@acme.com" {
		t.Errorf("repeated revert moved the value: %v", store.lead.Email)
	}
}

func TestRevertConflictsWhenFieldMovedOn(t *testing.T) {
	lead := newTestLead()
	email := "third@acme.com"
	lead.Email = &email
	store := &fakeStore{lead: lead}
	seedEmailHistory(store, lead)
	svc, _, _ := newTestService(store)

	asOf := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	_, err := svc.Revert(context.Background(), lead.ID, domain.FieldEmail, asOf, "tester")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("got %v, want conflict", err)
	}
	if *store.lead.Email != "third@acme.com" {
		t.Error("conflicting revert must not change the lead")
	}
}

func TestRevertWithoutPriorValue(t *testing.T) {
	t.Run("no entries at all", func(t *testing.T) {
		store := &fakeStore{lead: newTestLead()}
		svc, _, _ := newTestService(store)

		_, err := svc.Revert(context.Background(), store.lead.ID, domain.FieldEmail,
			time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "tester")
		if !apperr.Is(err, apperr.KindNoPriorValue) {
			t.Fatalf("got %v, want no prior value", err)
		}
	})

	t.Run("instant before first change", func(t *testing.T) {
		lead := newTestLead()
		email := "new@acme.com"
		lead.Email = &email
		store := &fakeStore{lead: lead}
		seedEmailHistory(store, lead)
		svc, _, _ := newTestService(store)

		_, err := svc.Revert(context.Background(), lead.ID, domain.FieldEmail,
			time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), "tester")
		if !apperr.Is(err, apperr.KindNoPriorValue) {
			t.Fatalf("got %v, want no prior value", err)
		}
	})
}

func TestScoreEvolutionTrend(t *testing.T) {
	lead := newTestLead()
	lead.QualityScore = 62
	store := &fakeStore{lead: lead}

	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	for i, score := range []int{40, 51, 62} {
		value := strconv.Itoa(score)
		store.entries = append(store.entries, &domain.AuditEntry{
			ID:        uuid.New(),
			LeadID:    lead.ID,
			Field:     domain.FieldQualityScore,
			NewValue:  &value,
			Reason:    domain.ReasonScheduledRevalidation,
			Metadata:  map[string]any{"confidence": 0.5 + float64(i)*0.1},
			CreatedAt: base.AddDate(0, 0, i*7),
		})
	}
	svc, _, _ := newTestService(store)

	evolution, err := svc.ScoreEvolution(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("score evolution: %v", err)
	}
	if len(evolution.Points) != 3 {
		t.Fatalf("got %d points, want 3", len(evolution.Points))
	}
	if evolution.Trend != domain.TrendImproving {
		t.Errorf("trend = %s, want improving", evolution.Trend)
	}
	if evolution.Current != 62 {
		t.Errorf("current = %d, want 62", evolution.Current)
	}
	if evolution.Points[1].Confidence != 0.6 {
		t.Errorf("confidence not carried from metadata: %v", evolution.Points[1].Confidence)
	}
}

func TestScoreEvolutionStableAndDeclining(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   domain.ScoreTrend
	}{
		{"single point", []int{50}, domain.TrendStable},
		{"small wobble", []int{50, 53}, domain.TrendStable},
		{"declining", []int{70, 55, 40}, domain.TrendDeclining},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := newTestLead()
			store := &fakeStore{lead: lead}
			for i, score := range tt.scores {
				value := strconv.Itoa(score)
				store.entries = append(store.entries, &domain.AuditEntry{
					ID:        uuid.New(),
					LeadID:    lead.ID,
					Field:     domain.FieldQualityScore,
					NewValue:  &value,
					CreatedAt: time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC),
				})
			}
			svc, _, _ := newTestService(store)

			evolution, err := svc.ScoreEvolution(context.Background(), lead.ID)
			if err != nil {
				t.Fatalf("score evolution: %v", err)
			}
			if evolution.Trend != tt.want {
				t.Errorf("trend = %s, want %s", evolution.Trend, tt.want)
			}
		})
	}
}
