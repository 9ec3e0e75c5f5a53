// Package errors provides the error taxonomy shared by the PagerDuty resource packages.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
)

// ValidationError indicates the caller supplied a disallowed input shape.
// It is raised before any network call is made.
type ValidationError struct {
	Field   string // argument name, e.g. "service_id"
	Message string // exact human-readable message
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ContractError indicates a well-formed PagerDuty response that lacks a field
// the API contract promises, e.g. GET /services/{id} without "service".
type ContractError struct {
	Resource string // "service", "user"
	ID       string // resource ID involved, may be empty for /users/me
	Field    string // the missing response field
}

func (e *ContractError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to fetch %s %s: response missing '%s' field", e.Resource, e.ID, e.Field)
	}
	return fmt.Sprintf("failed to fetch %s: response missing '%s' field", e.Resource, e.Field)
}

// NewContractError creates a ContractError.
func NewContractError(resource, id, field string) *ContractError {
	return &ContractError{
		Resource: resource,
		ID:       id,
		Field:    field,
	}
}

// APIError is the uniform shape of every transport, decoding or unknown
// failure surfaced by the resource packages.
type APIError struct {
	Op  string // operation that failed, e.g. "list services"
	Err error
}

func (e *APIError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// responseBodyCarrier is implemented by errors that hold a raw HTTP response body.
type responseBodyCarrier interface {
	ResponseBody() string
}

// HandleAPIError logs err and returns it in the uniform shape. Validation and
// contract errors keep their identity so their messages reach the caller
// unchanged; anything else is wrapped in an APIError. A nil err yields nil.
func HandleAPIError(logger *slog.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Log PagerDuty's error payload when there is one.
	message := err.Error()
	var carrier responseBodyCarrier
	if stderrors.As(err, &carrier) && carrier.ResponseBody() != "" {
		message = carrier.ResponseBody()
	}
	logger.Error("PagerDuty API call failed", "operation", op, "error", message)

	if IsValidation(err) || IsContract(err) {
		return err
	}
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return err
	}
	return &APIError{Op: op, Err: err}
}

// IsValidation returns true if err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return stderrors.As(err, &target)
}

// IsContract returns true if err is or wraps a ContractError.
func IsContract(err error) bool {
	var target *ContractError
	return stderrors.As(err, &target)
}

// IsAPI returns true if err is or wraps an APIError.
func IsAPI(err error) bool {
	var target *APIError
	return stderrors.As(err, &target)
}

// IsHandled reports whether err already went through HandleAPIError, so
// callers further up can return it without logging it again.
func IsHandled(err error) bool {
	return IsValidation(err) || IsContract(err) || IsAPI(err)
}
