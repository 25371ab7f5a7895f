package model

import "fmt"

// ErrorCode represents a structured API error code.
type ErrorCode string

const (
	ErrValidation ErrorCode = "VALIDATION_ERROR"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
)

// APIError is a structured error returned by the status API.
type APIError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// NewValidationError creates an APIError with validation details.
func NewValidationError(msg string, details ...FieldError) *APIError {
	return &APIError{Code: ErrValidation, Message: msg, Details: details}
}

// NewNotFoundError creates a NOT_FOUND APIError.
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s '%s' not found", resource, id),
	}
}

// ConfigError is returned when a solver configuration string is malformed.
type ConfigError struct {
	Algorithm Algorithm
	Field     string
	Value     string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s config field %s=%q: %s", e.Algorithm, e.Field, e.Value, e.Reason)
}

// InputError is returned when a problem instance cannot be parsed.
type InputError struct {
	Token  int
	Reason string
}

func (e *InputError) Error() string {
	if e.Token < 0 {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input at token %d: %s", e.Token, e.Reason)
}
