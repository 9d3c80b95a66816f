// Package transport defines the HTTP request and response shapes for the
// leads API.
package transport

import (
	"time"

	"leadngn_backend/internal/leads/domain"
)

// CreateLeadRequest is the intake payload.
type CreateLeadRequest struct {
	CompanyName string   `json:"company_name" validate:"required,min=2,max=200"`
	Industry    string   `json:"industry" validate:"required,min=2,max=100"`
	Website     *string  `json:"website,omitempty" validate:"omitempty,max=300"`
	Location    *string  `json:"location,omitempty" validate:"omitempty,max=200"`
	ContactName *string  `json:"contact_name,omitempty" validate:"omitempty,max=200"`
	Email       *string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string  `json:"phone,omitempty" validate:"omitempty,max=32"`
	Tags        []string `json:"tags,omitempty" validate:"omitempty,dive,min=1,max=50"`
}

// UpdateLeadRequest carries a batch of field edits. A null value clears
// an optional field; omitted fields are untouched.
type UpdateLeadRequest struct {
	Changes map[string]*string `json:"changes" validate:"required,min=1"`
	Reason  string             `json:"reason,omitempty" validate:"omitempty,oneof=manual_edit ai_enrichment"`
}

// RevertRequest names the field to restore and the instant whose value
// should be restored.
type RevertRequest struct {
	Field string    `json:"field" validate:"required"`
	At    time.Time `json:"at" validate:"required"`
}

// LeadResponse is the API view of a lead.
type LeadResponse struct {
	ID               string     `json:"id"`
	CompanyName      string     `json:"company_name"`
	Industry         string     `json:"industry"`
	Website          *string    `json:"website,omitempty"`
	Location         *string    `json:"location,omitempty"`
	ContactName      *string    `json:"contact_name,omitempty"`
	Email            *string    `json:"email,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	Status           string     `json:"status"`
	QualityScore     int        `json:"quality_score"`
	ScoreCategory    string     `json:"score_category"`
	Confidence       float64    `json:"confidence"`
	ValidationStatus *string    `json:"validation_status,omitempty"`
	WebsiteStatus    *string    `json:"website_status,omitempty"`
	EmailScore       *int       `json:"email_score,omitempty"`
	PhoneValid       *bool      `json:"phone_valid,omitempty"`
	ValidationScore  *int       `json:"validation_score,omitempty"`
	DecisionMaker    *bool      `json:"decision_maker,omitempty"`
	PainPointCount   *int       `json:"pain_point_count,omitempty"`
	InteractionCount *int       `json:"interaction_count,omitempty"`
	LastValidatedAt  *time.Time `json:"last_validated_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ToLeadResponse maps a domain lead to its API shape.
func ToLeadResponse(lead *domain.Lead) LeadResponse {
	return LeadResponse{
		ID:               lead.ID.String(),
		CompanyName:      lead.CompanyName,
		Industry:         lead.Industry,
		Website:          lead.Website,
		Location:         lead.Location,
		ContactName:      lead.ContactName,
		Email:            lead.Email,
		Phone:            lead.Phone,
		Tags:             lead.Tags,
		Status:           string(lead.Status),
		QualityScore:     lead.QualityScore,
		ScoreCategory:    domain.ScoreCategory(lead.QualityScore),
		Confidence:       lead.Confidence,
		ValidationStatus: lead.ValidationStatus,
		WebsiteStatus:    lead.WebsiteStatus,
		EmailScore:       lead.EmailScore,
		PhoneValid:       lead.PhoneValid,
		ValidationScore:  lead.ValidationScore,
		DecisionMaker:    lead.DecisionMaker,
		PainPointCount:   lead.PainPointCount,
		InteractionCount: lead.InteractionCount,
		LastValidatedAt:  lead.LastValidatedAt,
		CreatedAt:        lead.CreatedAt,
		UpdatedAt:        lead.UpdatedAt,
	}
}

// ToLeadResponses maps a list of leads.
func ToLeadResponses(leads []*domain.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, ToLeadResponse(lead))
	}
	return out
}

// AuditEntryResponse is the API view of one audit entry.
type AuditEntryResponse struct {
	ID        string         `json:"id"`
	LeadID    string         `json:"lead_id"`
	Field     string         `json:"field"`
	OldValue  *string        `json:"old_value"`
	NewValue  *string        `json:"new_value"`
	Reason    string         `json:"reason"`
	Actor     string         `json:"actor"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ToAuditEntryResponse maps one audit entry.
func ToAuditEntryResponse(entry *domain.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:        entry.ID.String(),
		LeadID:    entry.LeadID.String(),
		Field:     entry.Field,
		OldValue:  entry.OldValue,
		NewValue:  entry.NewValue,
		Reason:    string(entry.Reason),
		Actor:     entry.Actor,
		Metadata:  entry.Metadata,
		CreatedAt: entry.CreatedAt,
	}
}

// ToAuditEntryResponses maps a list of audit entries.
func ToAuditEntryResponses(entries []*domain.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, ToAuditEntryResponse(entry))
	}
	return out
}
