package revalidation

import (
	"testing"
	"time"

	"leadngn_backend/internal/leads/domain"
	"leadngn_backend/platform/config"

	"github.com/google/uuid"
)

func testPolicy() *Policy {
	return NewPolicy(&config.Config{
		TierIntervalHigh:      720 * time.Hour,
		TierIntervalMedium:    504 * time.Hour,
		TierIntervalLow:       336 * time.Hour,
		TierIntervalContacted: 168 * time.Hour,
		TierIntervalNew:       72 * time.Hour,
	})
}

func TestTierSelection(t *testing.T) {
	policy := testPolicy()
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	old := now.Add(-30 * 24 * time.Hour)

	tests := []struct {
		name      string
		score     int
		status    domain.Status
		createdAt time.Time
		want      Tier
	}{
		{"high score", 85, domain.StatusNew, old, TierHigh},
		{"medium score", 72, domain.StatusNew, old, TierMedium},
		{"boundary medium", 60, domain.StatusNew, old, TierMedium},
		{"low score", 59, domain.StatusNew, old, TierLow},
		{"contacted overrides score", 85, domain.StatusContacted, old, TierContacted},
		{"fresh lead", 85, domain.StatusNew, now.Add(-24 * time.Hour), TierNew},
		{"contacted beats fresh", 40, domain.StatusContacted, now.Add(-24 * time.Hour), TierContacted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := &domain.Lead{
				ID:           uuid.New(),
				QualityScore: tt.score,
				Status:       tt.status,
				CreatedAt:    tt.createdAt,
			}
			if got := policy.TierFor(lead, now); got != tt.want {
				t.Errorf("TierFor() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPlanTaskHighTierDueDate(t *testing.T) {
	policy := testPolicy()
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	lead := &domain.Lead{
		ID:           uuid.New(),
		QualityScore: 85,
		Status:       domain.StatusNew,
		CreatedAt:    now.Add(-10 * 24 * time.Hour),
	}

	task := policy.PlanTask(lead, now)
	if task == nil {
		t.Fatal("expected a task")
	}
	if task.Tier != string(TierHigh) {
		t.Errorf("tier = %s, want high", task.Tier)
	}
	want := now.Add(30 * 24 * time.Hour)
	if !task.DueAt.Equal(want) {
		t.Errorf("due at = %v, want %v", task.DueAt, want)
	}
	if !task.DueAt.After(now) {
		t.Error("due at must be strictly after scheduling time")
	}
	if task.Status != domain.TaskScheduled {
		t.Errorf("status = %s, want scheduled", task.Status)
	}
}

func TestPlanTaskTerminalLead(t *testing.T) {
	policy := testPolicy()
	now := time.Now()

	for _, status := range []domain.Status{domain.StatusConverted, domain.StatusRejected, domain.StatusOptOut} {
		lead := &domain.Lead{ID: uuid.New(), Status: status, CreatedAt: now.Add(-time.Hour)}
		if task := policy.PlanTask(lead, now); task != nil {
			t.Errorf("terminal status %s should not get a task", status)
		}
	}
}

func TestIntervalShortensAsScoreDrops(t *testing.T) {
	policy := testPolicy()

	high := policy.Interval(TierHigh)
	medium := policy.Interval(TierMedium)
	low := policy.Interval(TierLow)
	contacted := policy.Interval(TierContacted)

	if !(high > medium && medium > low && low > contacted) {
		t.Errorf("interval ordering broken: %v, %v, %v, %v", high, medium, low, contacted)
	}
}
