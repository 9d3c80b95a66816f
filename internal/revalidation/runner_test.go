package revalidation

import (
	"context"
	"testing"
	"time"

	"leadngn_backend/internal/leads/domain"
	"leadngn_backend/platform/apperr"
	"leadngn_backend/platform/clock"
	"leadngn_backend/platform/events"
	"leadngn_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeLeadSource struct {
	lead *domain.Lead
}

func (f *fakeLeadSource) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	if f.lead == nil || f.lead.ID != id {
		return nil, apperr.NotFound("lead not found")
	}
	return f.lead, nil
}

type recorded struct {
	changes []domain.FieldChange
	reason  domain.ChangeReason
}

type fakeRecorder struct {
	calls  []recorded
	result *domain.Lead
	err    error
}

func (f *fakeRecorder) Record(ctx context.Context, leadID uuid.UUID, changes []domain.FieldChange, actor string, reason domain.ChangeReason) (*domain.Lead, []*domain.AuditEntry, error) {
	f.calls = append(f.calls, recorded{changes: changes, reason: reason})
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.result, nil, nil
}

type fakeTaskStore struct {
	rescheduled bool
	tier        string
	dueAt       time.Time
	dueAgain    bool
	dueAgainAt  time.Time
	attempts    int
	lastErr     string
	deleted     bool
}

func (f *fakeTaskStore) RescheduleTask(ctx context.Context, leadID uuid.UUID, tier string, dueAt, ranAt time.Time) error {
	f.rescheduled = true
	f.tier = tier
	f.dueAt = dueAt
	return nil
}

func (f *fakeTaskStore) MarkTaskDueAgain(ctx context.Context, leadID uuid.UUID, dueAt, ranAt time.Time, attempts int, lastErr string) error {
	f.dueAgain = true
	f.dueAgainAt = dueAt
	f.attempts = attempts
	f.lastErr = lastErr
	return nil
}

func (f *fakeTaskStore) DeleteTask(ctx context.Context, leadID uuid.UUID) error {
	f.deleted = true
	return nil
}

// flakyEmailValidator fails with Unavailable a set number of times before
// succeeding.
type flakyEmailValidator struct {
	failures int
	calls    int
}

func (f *flakyEmailValidator) CheckEmail(ctx context.Context, email string) (EmailResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return EmailResult{}, apperr.Unavailable("validator down", nil)
	}
	return EmailResult{Score: 85, Deliverable: true}, nil
}

type okPhoneValidator struct{}

func (okPhoneValidator) CheckPhone(ctx context.Context, number string) (PhoneResult, error) {
	return PhoneResult{Normalized: "+14155550100", Valid: true}, nil
}

type okWebsiteChecker struct{}

func (okWebsiteChecker) CheckWebsite(ctx context.Context, url string) (string, error) {
	return "active", nil
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

func testLead() *domain.Lead {
	return &domain.Lead{
		ID:           uuid.New(),
		CompanyName:  "Acme Manufacturing",
		Industry:     "manufacturing",
		Email:        strPtr("jane@acme.com"),
		Phone:        strPtr("415-555-0100"),
		Website:      strPtr("https://acme.com"),
		Status:       domain.StatusNew,
		QualityScore: 55,
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

type runnerFixture struct {
	runner   *Runner
	leads    *fakeLeadSource
	recorder *fakeRecorder
	tasks    *fakeTaskStore
	bus      *fakeBus
	clock    *clock.Fake
}

func newRunnerFixture(lead *domain.Lead, email EmailValidator) *runnerFixture {
	leads := &fakeLeadSource{lead: lead}
	recorder := &fakeRecorder{result: lead}
	tasks := &fakeTaskStore{}
	bus := &fakeBus{}
	clk := clock.NewFake(time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC))

	runner := NewRunner(
		leads, recorder, tasks, testPolicy(),
		email, okPhoneValidator{}, okWebsiteChecker{}, nil,
		bus, clk, logger.New("development"),
		RunnerConfig{
			MaxAttempts:      3,
			ValidatorTimeout: time.Second,
			RetryInterval:    24 * time.Hour,
			RetryBackoffBase: time.Millisecond,
		},
	)
	return &runnerFixture{runner: runner, leads: leads, recorder: recorder, tasks: tasks, bus: bus, clock: clk}
}

func changeValue(t *testing.T, changes []domain.FieldChange, field string) string {
	t.Helper()
	for _, c := range changes {
		if c.Field == field {
			if c.NewValue == nil {
				return ""
			}
			return *c.NewValue
		}
	}
	t.Fatalf("no change for field %q in %+v", field, changes)
	return ""
}

func TestRunAppliesValidationBatch(t *testing.T) {
	lead := testLead()
	fx := newRunnerFixture(lead, &flakyEmailValidator{failures: 0})

	if err := fx.runner.Run(context.Background(), lead.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(fx.recorder.calls) != 1 {
		t.Fatalf("expected one record call, got %d", len(fx.recorder.calls))
	}
	call := fx.recorder.calls[0]
	if call.reason != domain.ReasonScheduledRevalidation {
		t.Errorf("reason = %s", call.reason)
	}
	if got := changeValue(t, call.changes, domain.FieldEmailScore); got != "85" {
		t.Errorf("email score = %s, want 85", got)
	}
	if got := changeValue(t, call.changes, domain.FieldPhoneValid); got != "true" {
		t.Errorf("phone valid = %s, want true", got)
	}
	if got := changeValue(t, call.changes, domain.FieldWebsiteStatus); got != "active" {
		t.Errorf("website status = %s, want active", got)
	}
	// (85 + 100 + 100) / 3
	if got := changeValue(t, call.changes, domain.FieldValidationScore); got != "95" {
		t.Errorf("validation score = %s, want 95", got)
	}
	if got := changeValue(t, call.changes, domain.FieldValidationStatus); got != "ok" {
		t.Errorf("validation status = %s, want ok", got)
	}

	if !fx.tasks.rescheduled {
		t.Fatal("task not rescheduled")
	}
	// Post-run score 55 -> low tier, 14 days out.
	if fx.tasks.tier != string(TierLow) {
		t.Errorf("tier = %s, want low", fx.tasks.tier)
	}
	want := fx.clock.Now().Add(336 * time.Hour)
	if !fx.tasks.dueAt.Equal(want) {
		t.Errorf("due at = %v, want %v", fx.tasks.dueAt, want)
	}
	if len(fx.bus.published) != 1 {
		t.Errorf("expected one completion event, got %d", len(fx.bus.published))
	}
}

func TestRunRetriesThenSucceeds(t *testing.T) {
	lead := testLead()
	email := &flakyEmailValidator{failures: 2}
	fx := newRunnerFixture(lead, email)

	if err := fx.runner.Run(context.Background(), lead.ID); err != nil {
		t.Fatalf("run: %v", err)
	}
	if email.calls != 3 {
		t.Errorf("validator called %d times, want 3", email.calls)
	}
	if !fx.tasks.rescheduled || fx.tasks.dueAgain {
		t.Error("recovered run should reschedule normally")
	}
}

func TestRunExhaustedRetriesMarksDueAgain(t *testing.T) {
	lead := testLead()
	fx := newRunnerFixture(lead, &flakyEmailValidator{failures: 3})

	if err := fx.runner.Run(context.Background(), lead.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	if !fx.tasks.dueAgain {
		t.Fatal("task should be due again")
	}
	if fx.tasks.attempts != 3 {
		t.Errorf("attempts = %d, want 3", fx.tasks.attempts)
	}
	want := fx.clock.Now().Add(24 * time.Hour)
	if !fx.tasks.dueAgainAt.Equal(want) {
		t.Errorf("retry due at = %v, want %v", fx.tasks.dueAgainAt, want)
	}

	// The only recorded batch is the failure note; the score inputs are
	// untouched.
	if len(fx.recorder.calls) != 1 {
		t.Fatalf("expected one record call, got %d", len(fx.recorder.calls))
	}
	call := fx.recorder.calls[0]
	if len(call.changes) != 1 {
		t.Fatalf("failure note should be a single change, got %d", len(call.changes))
	}
	if got := changeValue(t, call.changes, domain.FieldValidationStatus); got != "revalidation_failed" {
		t.Errorf("validation status = %s, want revalidation_failed", got)
	}
	if fx.tasks.rescheduled {
		t.Error("failed run must not reschedule on the normal cadence")
	}
	if len(fx.bus.published) != 1 {
		t.Fatalf("expected one failure event, got %d", len(fx.bus.published))
	}
}

func TestRunTerminalLeadDropsTask(t *testing.T) {
	lead := testLead()
	lead.Status = domain.StatusConverted
	fx := newRunnerFixture(lead, &flakyEmailValidator{})

	if err := fx.runner.Run(context.Background(), lead.ID); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !fx.tasks.deleted {
		t.Error("terminal lead should lose its task")
	}
	if len(fx.recorder.calls) != 0 {
		t.Error("terminal lead must not be revalidated")
	}
}

func TestRunMissingLeadDropsTask(t *testing.T) {
	fx := newRunnerFixture(testLead(), &flakyEmailValidator{})

	if err := fx.runner.Run(context.Background(), uuid.New()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !fx.tasks.deleted {
		t.Error("missing lead should lose its task")
	}
}
