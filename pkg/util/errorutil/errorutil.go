package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by services and the HTTP layer.
const (
	CodeValidation           = "VALIDATION_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeConfigurationMissing = "CONFIGURATION_MISSING"
	CodeUpstream             = "UPSTREAM_ERROR"
	CodeMalformedResponse    = "MALFORMED_RESPONSE"
	CodeCancelled            = "CANCELLED"
	CodeInternal             = "INTERNAL_ERROR"
)

// StatusClientClosedRequest is reported for superseded or aborted calls.
const StatusClientClosedRequest = 499

// NoResponseFallback is shown when an endpoint answer cannot be turned into text.
const NoResponseFallback = "Keine Antwort erhalten"

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewConfigurationMissing reports an endpoint whose address was never configured.
func NewConfigurationMissing(endpoint, envKey string) error {
	return &DomainError{
		Code:       CodeConfigurationMissing,
		Message:    fmt.Sprintf("%s endpoint is not configured; set %s", endpoint, envKey),
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"endpoint": endpoint, "env": envKey},
	}
}

// NewUpstreamError reports a transport failure (status 0) or a non-2xx answer.
func NewUpstreamError(endpoint string, status int, body string, err error) error {
	details := map[string]any{"endpoint": endpoint}
	message := fmt.Sprintf("%s endpoint request failed", endpoint)
	if status > 0 {
		details["status"] = status
		details["body"] = body
		message = fmt.Sprintf("%s endpoint error %d: %s", endpoint, status, body)
	}
	return &DomainError{
		Code:       CodeUpstream,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Details:    details,
		Err:        err,
	}
}

// NewMalformedResponse reports a 2xx answer that carried nothing usable.
func NewMalformedResponse(endpoint, message string, err error) error {
	return &DomainError{
		Code:       CodeMalformedResponse,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"endpoint": endpoint},
		Err:        err,
	}
}

// NewCancelled reports a call superseded by a newer one of the same lineage.
func NewCancelled(err error) error {
	return &DomainError{
		Code:       CodeCancelled,
		Message:    "request superseded",
		HTTPStatus: StatusClientClosedRequest,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// IsCancelled reports superseded calls and plain context cancellation alike.
func IsCancelled(err error) bool {
	return HasCode(err, CodeCancelled) || errors.Is(err, context.Canceled)
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, context.Canceled) {
		if de, ok := NewCancelled(err).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
