package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func strp(s string) *string { return &s }

func TestStatusIsTerminal(t *testing.T) {
	terminal := []Status{StatusConverted, StatusRejected, StatusOptOut}
	active := []Status{StatusNew, StatusContacted, StatusQualified}

	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestFieldRoundTrip(t *testing.T) {
	lead := &Lead{ID: uuid.New(), CompanyName: "Acme", Industry: "software"}

	tests := []struct {
		field string
		value string
	}{
		{FieldCompanyName, "Acme Corp"},
		{FieldIndustry, "manufacturing"},
		{FieldWebsite, "https://acme.com"},
		{FieldEmail, "jane@acme.com"},
		{FieldPhone, "+14155550100"},
		{FieldTags, "hvac,commercial"},
		{FieldStatus, "contacted"},
		{FieldEmailScore, "85"},
		{FieldPhoneValid, "true"},
		{FieldDecisionMaker, "false"},
		{FieldPainPointCount, "3"},
		{FieldValidationStatus, "ok"},
		{FieldLastValidated, "2026-04-01T10:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			if err := lead.SetField(tt.field, strp(tt.value)); err != nil {
				t.Fatalf("set: %v", err)
			}
			got, ok := lead.FieldValue(tt.field)
			if !ok {
				t.Fatalf("field %q unknown on read", tt.field)
			}
			if got == nil || *got != tt.value {
				t.Errorf("round trip %q: got %v, want %q", tt.field, got, tt.value)
			}
		})
	}
}

func TestSetFieldRejectsBadInput(t *testing.T) {
	lead := &Lead{CompanyName: "Acme", Industry: "software"}

	tests := []struct {
		name  string
		field string
		value *string
	}{
		{"clear mandatory company name", FieldCompanyName, nil},
		{"blank industry", FieldIndustry, strp("  ")},
		{"unknown status", FieldStatus, strp("paused")},
		{"non-numeric email score", FieldEmailScore, strp("high")},
		{"non-boolean decision maker", FieldDecisionMaker, strp("maybe")},
		{"bad timestamp", FieldLastValidated, strp("yesterday")},
		{"unknown field", "favorite_color", strp("blue")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := lead.SetField(tt.field, tt.value); err == nil {
				t.Errorf("SetField(%q, %v) accepted bad input", tt.field, tt.value)
			}
		})
	}
}

func TestSetFieldClearsOptional(t *testing.T) {
	lead := &Lead{CompanyName: "Acme", Industry: "software", Email: strp("a@acme.com")}

	if err := lead.SetField(FieldEmail, nil); err != nil {
		t.Fatalf("clear email: %v", err)
	}
	if lead.Email != nil {
		t.Error("email not cleared")
	}
	value, _ := lead.FieldValue(FieldEmail)
	if value != nil {
		t.Errorf("cleared email reads as %v", value)
	}
}

func TestEmailDomain(t *testing.T) {
	tests := []struct {
		email *string
		want  string
	}{
		{strp("jane@Acme.COM"), "acme.com"},
		{strp("weird@"), ""},
		{strp("no-at-sign"), ""},
		{nil, ""},
	}

	for _, tt := range tests {
		lead := &Lead{Email: tt.email}
		if got := lead.EmailDomain(); got != tt.want {
			t.Errorf("EmailDomain(%v) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestSnapshotProjection(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	validated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)

	lead := &Lead{
		CompanyName:     "Acme",
		Industry:        "software",
		Tags:            []string{"a", "b"},
		Status:          StatusQualified,
		CreatedAt:       created,
		LastValidatedAt: &validated,
	}

	snap := lead.Snapshot(now)
	if snap.AgeDays != 69 {
		t.Errorf("age days = %d, want 69", snap.AgeDays)
	}
	if snap.DaysSinceValidation == nil || *snap.DaysSinceValidation != 10 {
		t.Errorf("days since validation = %v, want 10", snap.DaysSinceValidation)
	}
	if snap.TagCount != 2 {
		t.Errorf("tag count = %d, want 2", snap.TagCount)
	}
	if snap.Status != StatusQualified {
		t.Errorf("status = %s", snap.Status)
	}
}

func TestScoreCategory(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{95, "high"}, {80, "high"},
		{79, "medium"}, {60, "medium"},
		{59, "low"}, {40, "low"},
		{39, "very_low"}, {0, "very_low"},
	}
	for _, tt := range tests {
		if got := ScoreCategory(tt.score); got != tt.want {
			t.Errorf("ScoreCategory(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
