package domain

import (
	"fmt"

	"leadngn_backend/platform/apperr"
)

// ErrMandatoryField reports an attempt to clear a mandatory field.
func ErrMandatoryField(field string) error {
	return apperr.InvalidInput(fmt.Sprintf("field %q is mandatory and cannot be cleared", field))
}

// ErrBadFieldValue reports a value that does not parse for the field's type.
func ErrBadFieldValue(field, value string) error {
	return apperr.InvalidInput(fmt.Sprintf("invalid value %q for field %q", value, field))
}

// ErrUnknownField reports a field name outside the auditable set.
func ErrUnknownField(field string) error {
	return apperr.InvalidInput(fmt.Sprintf("unknown field %q", field))
}
