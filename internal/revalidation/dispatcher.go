package revalidation

import (
	"context"
	"time"

	"leadngn_backend/internal/leads/domain"
	"leadngn_backend/platform/clock"
	"leadngn_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskClaimer claims due task rows and releases ones that could not be
// handed to the queue.
type TaskClaimer interface {
	ClaimDueTasks(ctx context.Context, now time.Time, limit int) ([]*domain.RevalidationTask, error)
	MarkTaskDueAgain(ctx context.Context, leadID uuid.UUID, dueAt, ranAt time.Time, attempts int, lastErr string) error
}

// Dispatcher polls for due revalidation tasks and hands them to the
// worker queue. Claiming marks a task running, so a lead is never queued
// twice; multiple dispatcher instances can share the table safely.
type Dispatcher struct {
	repo         TaskClaimer
	client       *asynq.Client
	queue        string
	pollInterval time.Duration
	batchSize    int
	clock        clock.Clock
	log          *logger.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(repo TaskClaimer, client *asynq.Client, queue string, pollInterval time.Duration, batchSize int, clk clock.Clock, log *logger.Logger) *Dispatcher {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Dispatcher{
		repo:         repo,
		client:       client,
		queue:        queue,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		clock:        clk,
		log:          log,
	}
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	d.log.Info("revalidation dispatcher started", "poll_interval", d.pollInterval.String())
	for {
		select {
		case <-ctx.Done():
			d.log.Info("revalidation dispatcher stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := d.dispatchOnce(ctx); err != nil {
				d.log.Error("dispatch cycle failed", "error", err)
			}
		}
	}
}

func (d *Dispatcher) dispatchOnce(ctx context.Context) error {
	now := d.clock.Now()
	tasks, err := d.repo.ClaimDueTasks(ctx, now, d.batchSize)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	for _, task := range tasks {
		if err := d.enqueue(ctx, task); err != nil {
			d.log.RevalidationEvent("enqueue_failed", task.LeadID.String(), task.Attempts, err)
			// Release the claim so the next poll can retry.
			if releaseErr := d.repo.MarkTaskDueAgain(ctx, task.LeadID, now.Add(time.Minute), now, task.Attempts, err.Error()); releaseErr != nil {
				d.log.RevalidationEvent("release_failed", task.LeadID.String(), task.Attempts, releaseErr)
			}
			continue
		}
		d.log.RevalidationEvent("enqueued", task.LeadID.String(), task.Attempts, nil)
	}
	return nil
}

func (d *Dispatcher) enqueue(ctx context.Context, task *domain.RevalidationTask) error {
	queued, err := NewLeadTask(LeadTaskPayload{LeadID: task.LeadID.String(), Tier: task.Tier})
	if err != nil {
		return err
	}
	_, err = d.client.EnqueueContext(ctx, queued, asynq.Queue(d.queue))
	return err
}
