// Package revalidation keeps lead data fresh: a tier policy derives when
// each lead is next checked, a dispatcher claims due tasks, and a worker
// pool re-validates contact data and re-scores the lead.
package revalidation

import (
	"time"

	"leadngn_backend/internal/leads/domain"
	"leadngn_backend/platform/config"

	"github.com/google/uuid"
)

// Tier buckets a lead by how often its data should be re-checked.
type Tier string

const (
	// TierHigh covers leads scoring 80 or above.
	TierHigh Tier = "high"
	// TierMedium covers leads scoring 60 to 79.
	TierMedium Tier = "medium"
	// TierLow covers leads scoring below 60.
	TierLow Tier = "low"
	// TierContacted applies to actively contacted leads regardless of score.
	TierContacted Tier = "contacted"
	// TierNew applies to leads created less than three days ago.
	TierNew Tier = "new"
)

// freshLeadAge is how long a lead counts as newly created.
const freshLeadAge = 72 * time.Hour

// Policy derives revalidation tiers and intervals. Intervals come from
// configuration; tier selection rules are fixed.
type Policy struct {
	cfg config.RevalidationConfig
}

// NewPolicy creates a tier policy.
func NewPolicy(cfg config.RevalidationConfig) *Policy {
	return &Policy{cfg: cfg}
}

// TierFor picks the tier for a lead. Contacted leads are checked on the
// short contacted cadence regardless of score, fresh leads on the new
// cadence, and everything else by score bucket.
func (p *Policy) TierFor(lead *domain.Lead, now time.Time) Tier {
	if lead.Status == domain.StatusContacted {
		return TierContacted
	}
	if now.Sub(lead.CreatedAt) < freshLeadAge {
		return TierNew
	}
	switch {
	case lead.QualityScore >= 80:
		return TierHigh
	case lead.QualityScore >= 60:
		return TierMedium
	default:
		return TierLow
	}
}

// Interval returns the revalidation interval for a tier.
func (p *Policy) Interval(tier Tier) time.Duration {
	switch tier {
	case TierHigh:
		return p.cfg.GetTierIntervalHigh()
	case TierMedium:
		return p.cfg.GetTierIntervalMedium()
	case TierContacted:
		return p.cfg.GetTierIntervalContacted()
	case TierNew:
		return p.cfg.GetTierIntervalNew()
	default:
		return p.cfg.GetTierIntervalLow()
	}
}

// PlanTask builds the lead's next revalidation task. Terminal leads get
// nil: they are never revalidated again.
func (p *Policy) PlanTask(lead *domain.Lead, now time.Time) *domain.RevalidationTask {
	if lead.Status.IsTerminal() {
		return nil
	}
	tier := p.TierFor(lead, now)
	return &domain.RevalidationTask{
		ID:        uuid.New(),
		LeadID:    lead.ID,
		Tier:      string(tier),
		Status:    domain.TaskScheduled,
		DueAt:     now.Add(p.Interval(tier)),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
