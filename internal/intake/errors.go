package intake

import (
	"errors"
	"fmt"
)

// ValidationError reports a required payload field that was missing or
// unusable. It is raised before any store access, so a validation failure
// never leaves partial writes behind.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payload: %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func missingEmail() error {
	return &ValidationError{Field: "email", Message: "email is required to identify the person"}
}
