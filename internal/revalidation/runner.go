package revalidation

import (
	"context"
	"strconv"
	"time"

	domainevents "leadngn_backend/internal/events"
	"leadngn_backend/internal/leads/domain"
	"leadngn_backend/platform/apperr"
	"leadngn_backend/platform/clock"
	"leadngn_backend/platform/events"
	"leadngn_backend/platform/logger"

	"github.com/google/uuid"
)

// actorWorker identifies the revalidation worker in audit entries.
const actorWorker = "revalidation_worker"

// EmailResult is the outcome of an email deliverability check.
type EmailResult struct {
	Score       int
	Deliverable bool
}

// PhoneResult is the outcome of a phone validity check.
type PhoneResult struct {
	Normalized string
	Valid      bool
}

// Insights carries AI-derived enrichment signals.
type Insights struct {
	PainPointCount int
	DecisionMaker  *bool
}

// EmailValidator checks email deliverability. Transport failures surface
// as Unavailable errors.
type EmailValidator interface {
	CheckEmail(ctx context.Context, email string) (EmailResult, error)
}

// PhoneValidator checks and normalizes phone numbers.
type PhoneValidator interface {
	CheckPhone(ctx context.Context, number string) (PhoneResult, error)
}

// WebsiteChecker probes website liveness and returns a status string
// such as "active", "not_found", "unreachable" or "timeout".
type WebsiteChecker interface {
	CheckWebsite(ctx context.Context, url string) (string, error)
}

// InsightProvider extracts buying signals from lead data. Optional: a nil
// provider or an Unavailable error skips enrichment without failing the run.
type InsightProvider interface {
	EnrichLead(ctx context.Context, lead *domain.Lead) (*Insights, error)
}

// LeadSource fetches current lead state.
type LeadSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
}

// Recorder applies a revalidation pass as one atomic audited batch.
type Recorder interface {
	Record(ctx context.Context, leadID uuid.UUID, changes []domain.FieldChange, actor string, reason domain.ChangeReason) (*domain.Lead, []*domain.AuditEntry, error)
}

// TaskStore manages the lead's task row around a run.
type TaskStore interface {
	RescheduleTask(ctx context.Context, leadID uuid.UUID, tier string, dueAt, ranAt time.Time) error
	MarkTaskDueAgain(ctx context.Context, leadID uuid.UUID, dueAt, ranAt time.Time, attempts int, lastErr string) error
	DeleteTask(ctx context.Context, leadID uuid.UUID) error
}

// RunnerConfig bounds the runner's retry and timeout behavior.
type RunnerConfig struct {
	MaxAttempts      int
	ValidatorTimeout time.Duration
	RetryInterval    time.Duration
	RetryBackoffBase time.Duration
}

// Runner executes one revalidation pass per due lead: re-check contact
// data through external validators, apply the results as one audited
// batch (which re-scores the lead), then reschedule from the post-run tier.
type Runner struct {
	leads    LeadSource
	recorder Recorder
	tasks    TaskStore
	policy   *Policy
	email    EmailValidator
	phone    PhoneValidator
	website  WebsiteChecker
	insights InsightProvider
	bus      events.Bus
	clock    clock.Clock
	log      *logger.Logger
	cfg      RunnerConfig
}

// NewRunner creates a revalidation runner.
func NewRunner(
	leads LeadSource,
	recorder Recorder,
	tasks TaskStore,
	policy *Policy,
	email EmailValidator,
	phone PhoneValidator,
	website WebsiteChecker,
	insights InsightProvider,
	bus events.Bus,
	clk clock.Clock,
	log *logger.Logger,
	cfg RunnerConfig,
) *Runner {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ValidatorTimeout <= 0 {
		cfg.ValidatorTimeout = 5 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 24 * time.Hour
	}
	if cfg.RetryBackoffBase < 0 {
		cfg.RetryBackoffBase = 0
	}
	return &Runner{
		leads:    leads,
		recorder: recorder,
		tasks:    tasks,
		policy:   policy,
		email:    email,
		phone:    phone,
		website:  website,
		insights: insights,
		bus:      bus,
		clock:    clk,
		log:      log,
		cfg:      cfg,
	}
}

// Run revalidates one lead. A lead that disappeared or went terminal
// while queued just loses its task row.
func (r *Runner) Run(ctx context.Context, leadID uuid.UUID) error {
	lead, err := r.leads.GetByID(ctx, leadID)
	if apperr.Is(err, apperr.KindNotFound) {
		r.log.RevalidationEvent("lead_gone", leadID.String(), 0, nil)
		return r.tasks.DeleteTask(ctx, leadID)
	}
	if err != nil {
		return err
	}
	if lead.Status.IsTerminal() {
		r.log.RevalidationEvent("lead_terminal", leadID.String(), 0, nil)
		return r.tasks.DeleteTask(ctx, leadID)
	}

	changes, attempt, err := r.collectWithRetry(ctx, lead)
	if err != nil {
		return r.failRun(ctx, lead, attempt, err)
	}

	now := r.clock.Now()
	updated, _, err := r.recorder.Record(ctx, leadID, changes, actorWorker, domain.ReasonScheduledRevalidation)
	if err != nil {
		// Keep the task visible rather than stuck in running.
		markErr := r.tasks.MarkTaskDueAgain(ctx, leadID, now.Add(r.cfg.RetryInterval), now, attempt, err.Error())
		if markErr != nil {
			r.log.RevalidationEvent("task_release_failed", leadID.String(), attempt, markErr)
		}
		return err
	}
	if updated == nil {
		updated = lead
	}

	tier := r.policy.TierFor(updated, now)
	dueAt := now.Add(r.policy.Interval(tier))
	if err := r.tasks.RescheduleTask(ctx, leadID, string(tier), dueAt, now); err != nil {
		return err
	}

	r.log.RevalidationEvent("completed", leadID.String(), attempt, nil)
	r.bus.Publish(ctx, domainevents.RevalidationCompleted{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		NewScore:  updated.QualityScore,
		NextTier:  string(tier),
	})
	return nil
}

// collectWithRetry runs the validators, retrying the whole pass with
// exponential backoff while they are unavailable. Returns the attempt
// number that produced the result (or exhausted the budget).
func (r *Runner) collectWithRetry(ctx context.Context, lead *domain.Lead) ([]domain.FieldChange, int, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		changes, err := r.collect(ctx, lead)
		if err == nil {
			return changes, attempt, nil
		}
		if !apperr.Is(err, apperr.KindUnavailable) {
			return nil, attempt, err
		}
		lastErr = err
		r.log.RevalidationEvent("validator_unavailable", lead.ID.String(), attempt, err)

		if attempt < r.cfg.MaxAttempts {
			backoff := r.cfg.RetryBackoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, attempt, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return nil, r.cfg.MaxAttempts, lastErr
}

// collect runs every applicable validator once and assembles the change
// batch. Any Unavailable validator aborts the pass so it can be retried
// as a whole; a partial batch is never returned.
func (r *Runner) collect(ctx context.Context, lead *domain.Lead) ([]domain.FieldChange, error) {
	now := r.clock.Now()
	var changes []domain.FieldChange
	var scoreParts []int

	if lead.Email != nil && r.email != nil {
		result, err := r.checkEmail(ctx, *lead.Email)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change(domain.FieldEmailScore, strconv.Itoa(result.Score)))
		scoreParts = append(scoreParts, result.Score)
	}

	if lead.Phone != nil && r.phone != nil {
		result, err := r.checkPhone(ctx, *lead.Phone)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change(domain.FieldPhoneValid, strconv.FormatBool(result.Valid)))
		if result.Valid && result.Normalized != "" {
			changes = append(changes, change(domain.FieldPhone, result.Normalized))
		}
		if result.Valid {
			scoreParts = append(scoreParts, 100)
		} else {
			scoreParts = append(scoreParts, 0)
		}
	}

	if lead.Website != nil && r.website != nil {
		status, err := r.checkWebsite(ctx, *lead.Website)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change(domain.FieldWebsiteStatus, status))
		if status == "active" {
			scoreParts = append(scoreParts, 100)
		} else {
			scoreParts = append(scoreParts, 0)
		}
	}

	// Insight enrichment is best effort: an unavailable provider never
	// fails the pass.
	if r.insights != nil {
		if insights, err := r.insights.EnrichLead(ctx, lead); err == nil && insights != nil {
			changes = append(changes, change(domain.FieldPainPointCount, strconv.Itoa(insights.PainPointCount)))
			if insights.DecisionMaker != nil {
				changes = append(changes, change(domain.FieldDecisionMaker, strconv.FormatBool(*insights.DecisionMaker)))
			}
		} else if err != nil && !apperr.Is(err, apperr.KindUnavailable) {
			r.log.RevalidationEvent("insights_failed", lead.ID.String(), 0, err)
		}
	}

	if len(scoreParts) > 0 {
		total := 0
		for _, part := range scoreParts {
			total += part
		}
		changes = append(changes, change(domain.FieldValidationScore, strconv.Itoa(total/len(scoreParts))))
	}

	changes = append(changes,
		change(domain.FieldValidationStatus, "ok"),
		change(domain.FieldLastValidated, now.UTC().Format(time.RFC3339)),
	)
	return changes, nil
}

func (r *Runner) checkEmail(ctx context.Context, email string) (EmailResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ValidatorTimeout)
	defer cancel()
	return r.email.CheckEmail(ctx, email)
}

func (r *Runner) checkPhone(ctx context.Context, number string) (PhoneResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ValidatorTimeout)
	defer cancel()
	return r.phone.CheckPhone(ctx, number)
}

func (r *Runner) checkWebsite(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ValidatorTimeout)
	defer cancel()
	return r.website.CheckWebsite(ctx, url)
}

// failRun records the failure as an audit note, pushes the task out by
// the retry interval and leaves the score untouched.
func (r *Runner) failRun(ctx context.Context, lead *domain.Lead, attempts int, cause error) error {
	now := r.clock.Now()

	_, _, recordErr := r.recorder.Record(ctx, lead.ID,
		[]domain.FieldChange{change(domain.FieldValidationStatus, "revalidation_failed")},
		actorWorker, domain.ReasonScheduledRevalidation)
	if recordErr != nil {
		r.log.RevalidationEvent("failure_note_failed", lead.ID.String(), attempts, recordErr)
	}

	if err := r.tasks.MarkTaskDueAgain(ctx, lead.ID, now.Add(r.cfg.RetryInterval), now, attempts, cause.Error()); err != nil {
		return err
	}

	r.log.RevalidationEvent("due_again", lead.ID.String(), attempts, cause)
	r.bus.Publish(ctx, domainevents.RevalidationFailed{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Attempts:  attempts,
		Cause:     cause.Error(),
	})
	return nil
}

func change(field, value string) domain.FieldChange {
	return domain.FieldChange{Field: field, NewValue: &value}
}
