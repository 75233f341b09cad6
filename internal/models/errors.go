package models

import (
	"errors"
	"fmt"
)

// ValidationError describes a caller contract violation with a stable code
type ValidationError struct {
	Code    string
	Message string
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any validation error carrying the same code
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

// Custom errors
var (
	ErrEmptyTable = errors.New("record set is empty")
)

// Contract violations
var (
	ErrNoTodayRow       = NewValidationError("no_today_row", `race has no row with data_type "today"`)
	ErrMalformedDate    = NewValidationError("malformed_date", "date could not be parsed")
	ErrHorseNotFound    = NewValidationError("horse_not_found", "horse is not present in the supplied table")
	ErrRaceNotFound     = NewValidationError("race_not_found", "race is not present in the supplied table")
	ErrUnknownStrategy  = NewValidationError("unknown_strategy", "bet type is not a recognised strategy")
	ErrInvalidSelection = NewValidationError("invalid_selection", "betting selection is invalid")
)
