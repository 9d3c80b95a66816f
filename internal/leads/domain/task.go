package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the scheduling state of a revalidation task.
type TaskStatus string

const (
	// TaskScheduled means the task waits for its due time.
	TaskScheduled TaskStatus = "scheduled"
	// TaskRunning means a worker currently holds the task. At most one
	// run per lead is in flight.
	TaskRunning TaskStatus = "running"
	// TaskDueAgain means the last run exhausted its validator retries and
	// the task was pushed out by the retry interval.
	TaskDueAgain TaskStatus = "due_again"
)

// RevalidationTask tracks when a lead is next revalidated. Each lead has
// at most one task row; terminal leads have none.
type RevalidationTask struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	Tier      string
	Status    TaskStatus
	DueAt     time.Time
	Attempts  int
	LastError *string
	LastRunAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
