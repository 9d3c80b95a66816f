// Package domain holds the lead lifecycle domain model shared by the
// repository, scoring, audit and revalidation layers.
package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a lead.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusConverted Status = "converted"
	StatusRejected  Status = "rejected"
	StatusOptOut    Status = "opt_out"
)

// IsTerminal reports whether the status ends the lead's lifecycle.
// Terminal leads are no longer revalidated.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusConverted, StatusRejected, StatusOptOut:
		return true
	}
	return false
}

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusConverted, StatusRejected, StatusOptOut:
		return true
	}
	return false
}

// Lead is the aggregate root of the lead lifecycle.
type Lead struct {
	ID          uuid.UUID
	CompanyName string
	Industry    string
	Website     *string
	Location    *string
	ContactName *string
	Email       *string
	Phone       *string
	Tags        []string
	Status      Status

	QualityScore int
	Confidence   float64

	// Validation results written by the revalidation runner.
	ValidationStatus *string
	WebsiteStatus    *string
	EmailScore       *int
	PhoneValid       *bool
	ValidationScore  *int
	DecisionMaker    *bool
	PainPointCount   *int
	InteractionCount *int
	LastValidatedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EmailDomain returns the lowercase domain part of the lead's email,
// or "" when the lead has no parseable email.
func (l *Lead) EmailDomain() string {
	if l.Email == nil {
		return ""
	}
	at := strings.LastIndex(*l.Email, "@")
	if at < 0 || at == len(*l.Email)-1 {
		return ""
	}
	return strings.ToLower((*l.Email)[at+1:])
}

// Auditable field names. Every mutation recorded in the audit log uses one
// of these identifiers, and reverts address fields by the same names.
const (
	FieldCompanyName      = "company_name"
	FieldIndustry         = "industry"
	FieldWebsite          = "website"
	FieldLocation         = "location"
	FieldContactName      = "contact_name"
	FieldEmail            = "email"
	FieldPhone            = "phone"
	FieldTags             = "tags"
	FieldStatus           = "status"
	FieldQualityScore     = "quality_score"
	FieldConfidence       = "confidence"
	FieldValidationStatus = "validation_status"
	FieldWebsiteStatus    = "website_status"
	FieldEmailScore       = "email_score"
	FieldPhoneValid       = "phone_valid"
	FieldValidationScore  = "validation_score"
	FieldDecisionMaker    = "decision_maker"
	FieldPainPointCount   = "pain_point_count"
	FieldInteractionCount = "interaction_count"
	FieldLastValidated    = "last_validated"
)

// editableFields are the fields callers may change through the lead
// management API. Score and confidence are derived by the scoring engine
// and cannot be set directly.
var editableFields = map[string]bool{
	FieldCompanyName:      true,
	FieldIndustry:         true,
	FieldWebsite:          true,
	FieldLocation:         true,
	FieldContactName:      true,
	FieldEmail:            true,
	FieldPhone:            true,
	FieldTags:             true,
	FieldStatus:           true,
	FieldValidationStatus: true,
	FieldWebsiteStatus:    true,
	FieldEmailScore:       true,
	FieldPhoneValid:       true,
	FieldValidationScore:  true,
	FieldDecisionMaker:    true,
	FieldPainPointCount:   true,
	FieldInteractionCount: true,
	FieldLastValidated:    true,
}

// IsEditableField reports whether the field may be mutated directly.
func IsEditableField(field string) bool {
	return editableFields[field]
}

// IsAuditableField reports whether the field appears in the audit log.
func IsAuditableField(field string) bool {
	return editableFields[field] || field == FieldQualityScore || field == FieldConfidence
}

// FieldValue returns the current value of the named field encoded as a
// string, or nil when the field is unset. All audit log values use this
// encoding so old and new values compare bytewise.
func (l *Lead) FieldValue(field string) (*string, bool) {
	switch field {
	case FieldCompanyName:
		return strPtr(l.CompanyName), true
	case FieldIndustry:
		return strPtr(l.Industry), true
	case FieldWebsite:
		return l.Website, true
	case FieldLocation:
		return l.Location, true
	case FieldContactName:
		return l.ContactName, true
	case FieldEmail:
		return l.Email, true
	case FieldPhone:
		return l.Phone, true
	case FieldTags:
		if len(l.Tags) == 0 {
			return nil, true
		}
		return strPtr(strings.Join(l.Tags, ",")), true
	case FieldStatus:
		return strPtr(string(l.Status)), true
	case FieldQualityScore:
		return strPtr(strconv.Itoa(l.QualityScore)), true
	case FieldConfidence:
		return strPtr(strconv.FormatFloat(l.Confidence, 'f', 2, 64)), true
	case FieldValidationStatus:
		return l.ValidationStatus, true
	case FieldWebsiteStatus:
		return l.WebsiteStatus, true
	case FieldEmailScore:
		return intPtrValue(l.EmailScore), true
	case FieldPhoneValid:
		return boolPtrValue(l.PhoneValid), true
	case FieldValidationScore:
		return intPtrValue(l.ValidationScore), true
	case FieldDecisionMaker:
		return boolPtrValue(l.DecisionMaker), true
	case FieldPainPointCount:
		return intPtrValue(l.PainPointCount), true
	case FieldInteractionCount:
		return intPtrValue(l.InteractionCount), true
	case FieldLastValidated:
		if l.LastValidatedAt == nil {
			return nil, true
		}
		return strPtr(l.LastValidatedAt.UTC().Format(time.RFC3339)), true
	}
	return nil, false
}

// SetField writes the string-encoded value into the named field. A nil
// value clears optional fields. Mandatory fields reject nil and empty
// values, and typed fields reject unparseable input.
func (l *Lead) SetField(field string, value *string) error {
	switch field {
	case FieldCompanyName:
		if value == nil || strings.TrimSpace(*value) == "" {
			return ErrMandatoryField(field)
		}
		l.CompanyName = strings.TrimSpace(*value)
	case FieldIndustry:
		if value == nil || strings.TrimSpace(*value) == "" {
			return ErrMandatoryField(field)
		}
		l.Industry = strings.ToLower(strings.TrimSpace(*value))
	case FieldWebsite:
		l.Website = trimmedOrNil(value)
	case FieldLocation:
		l.Location = trimmedOrNil(value)
	case FieldContactName:
		l.ContactName = trimmedOrNil(value)
	case FieldEmail:
		if v := trimmedOrNil(value); v != nil {
			lower := strings.ToLower(*v)
			l.Email = &lower
		} else {
			l.Email = nil
		}
	case FieldPhone:
		l.Phone = trimmedOrNil(value)
	case FieldTags:
		if value == nil || strings.TrimSpace(*value) == "" {
			l.Tags = nil
			return nil
		}
		parts := strings.Split(*value, ",")
		tags := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				tags = append(tags, p)
			}
		}
		l.Tags = tags
	case FieldStatus:
		if value == nil {
			return ErrMandatoryField(field)
		}
		next := Status(strings.ToLower(strings.TrimSpace(*value)))
		if !next.Valid() {
			return ErrBadFieldValue(field, *value)
		}
		l.Status = next
	case FieldValidationStatus:
		l.ValidationStatus = trimmedOrNil(value)
	case FieldWebsiteStatus:
		l.WebsiteStatus = trimmedOrNil(value)
	case FieldEmailScore:
		n, err := parseIntPtr(field, value)
		if err != nil {
			return err
		}
		l.EmailScore = n
	case FieldPhoneValid:
		b, err := parseBoolPtr(field, value)
		if err != nil {
			return err
		}
		l.PhoneValid = b
	case FieldValidationScore:
		n, err := parseIntPtr(field, value)
		if err != nil {
			return err
		}
		l.ValidationScore = n
	case FieldDecisionMaker:
		b, err := parseBoolPtr(field, value)
		if err != nil {
			return err
		}
		l.DecisionMaker = b
	case FieldPainPointCount:
		n, err := parseIntPtr(field, value)
		if err != nil {
			return err
		}
		l.PainPointCount = n
	case FieldInteractionCount:
		n, err := parseIntPtr(field, value)
		if err != nil {
			return err
		}
		l.InteractionCount = n
	case FieldLastValidated:
		if value == nil {
			l.LastValidatedAt = nil
			return nil
		}
		at, err := time.Parse(time.RFC3339, strings.TrimSpace(*value))
		if err != nil {
			return ErrBadFieldValue(field, *value)
		}
		at = at.UTC()
		l.LastValidatedAt = &at
	default:
		return ErrUnknownField(field)
	}
	return nil
}

func strPtr(s string) *string { return &s }

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func intPtrValue(n *int) *string {
	if n == nil {
		return nil
	}
	return strPtr(strconv.Itoa(*n))
}

func boolPtrValue(b *bool) *string {
	if b == nil {
		return nil
	}
	return strPtr(strconv.FormatBool(*b))
}

func parseIntPtr(field string, value *string) (*int, error) {
	if value == nil {
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(*value))
	if err != nil {
		return nil, ErrBadFieldValue(field, *value)
	}
	return &n, nil
}

func parseBoolPtr(field string, value *string) (*bool, error) {
	if value == nil {
		return nil, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(*value))
	if err != nil {
		return nil, ErrBadFieldValue(field, *value)
	}
	return &b, nil
}
