package revalidation

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TypeRevalidateLead is the asynq task type for one revalidation run.
const TypeRevalidateLead = "revalidation:lead"

// LeadTaskPayload identifies the lead a queued run belongs to.
type LeadTaskPayload struct {
	LeadID string `json:"lead_id"`
	Tier   string `json:"tier"`
}

// NewLeadTask builds the asynq task for a claimed revalidation row.
// Retries are handled inside the runner against its own attempt budget,
// so asynq-level retry is disabled.
func NewLeadTask(payload LeadTaskPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRevalidateLead, data, asynq.MaxRetry(0)), nil
}
