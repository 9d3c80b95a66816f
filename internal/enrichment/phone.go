package enrichment

import (
	"context"

	"leadngn_backend/internal/revalidation"
	"leadngn_backend/platform/phone"
)

// PhoneChecker validates and normalizes phone numbers locally. It never
// fails: parsing needs no network.
type PhoneChecker struct{}

// NewPhoneChecker creates a phone checker.
func NewPhoneChecker() *PhoneChecker {
	return &PhoneChecker{}
}

// CheckPhone reports validity and the E.164 form of the number.
func (PhoneChecker) CheckPhone(ctx context.Context, number string) (revalidation.PhoneResult, error) {
	valid := phone.IsValid(number)
	result := revalidation.PhoneResult{Valid: valid}
	if valid {
		result.Normalized = phone.NormalizeE164(number)
	}
	return result, nil
}
