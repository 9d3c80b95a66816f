// Package events defines the domain events published between modules.
package events

import (
	"leadngn_backend/platform/events"

	"github.com/google/uuid"
)

// Event names.
const (
	LeadCreatedName           = "lead.created"
	LeadRescoredName          = "lead.rescored"
	LeadFieldRevertedName     = "lead.field_reverted"
	RevalidationCompletedName = "lead.revalidation_completed"
	RevalidationFailedName    = "lead.revalidation_failed"
)

// LeadCreated fires when a new lead enters the system.
type LeadCreated struct {
	events.BaseEvent
	LeadID       uuid.UUID
	EmailDomain  string
	QualityScore int
}

func (LeadCreated) EventName() string { return LeadCreatedName }

// LeadRescored fires whenever the scoring engine changes a lead's score.
type LeadRescored struct {
	events.BaseEvent
	LeadID      uuid.UUID
	EmailDomain string
	OldScore    int
	NewScore    int
	Confidence  float64
	Reason      string
}

func (LeadRescored) EventName() string { return LeadRescoredName }

// LeadFieldReverted fires when an audit revert restores a prior value.
type LeadFieldReverted struct {
	events.BaseEvent
	LeadID      uuid.UUID
	EmailDomain string
	Field       string
}

func (LeadFieldReverted) EventName() string { return LeadFieldRevertedName }

// RevalidationCompleted fires after a successful revalidation run.
type RevalidationCompleted struct {
	events.BaseEvent
	LeadID   uuid.UUID
	NewScore int
	NextTier string
}

func (RevalidationCompleted) EventName() string { return RevalidationCompletedName }

// RevalidationFailed fires when a run exhausts its validator retries.
type RevalidationFailed struct {
	events.BaseEvent
	LeadID   uuid.UUID
	Attempts int
	Cause    string
}

func (RevalidationFailed) EventName() string { return RevalidationFailedName }
