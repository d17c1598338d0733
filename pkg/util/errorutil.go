package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to callers. Authorization decisions are final for a
// request; only UPSTREAM_UNAVAILABLE and BACKEND_ERROR are retryable.
const (
	CodeNotAuthenticated   = "NOT_AUTHENTICATED"
	CodeInvalidPhone       = "INVALID_PHONE"
	CodeInvalidOTP         = "INVALID_OTP"
	CodeOTPExpired         = "OTP_EXPIRED"
	CodeUpstreamRejected   = "UPSTREAM_REJECTED"
	CodeUpstreamUnavail    = "UPSTREAM_UNAVAILABLE"
	CodeForbidden          = "FORBIDDEN"
	CodeNoMembership       = "NO_MEMBERSHIP"
	CodeUnknownCompany     = "UNKNOWN_COMPANY"
	CodeMutationNotAllowed = "MUTATION_NOT_ALLOWED"
	CodeTableNotAllowed    = "TABLE_NOT_ALLOWED"
	CodeUnsafeQuery        = "UNSAFE_QUERY"
	CodeBackendError       = "BACKEND_ERROR"
	CodeContextMissing     = "CONTEXT_MISSING"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInternalError      = "INTERNAL_ERROR"
)

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

func NewNotAuthenticated(message string) error {
	if message == "" {
		message = "not authenticated"
	}
	return NewDomainError(CodeNotAuthenticated, message, http.StatusUnauthorized, nil)
}

func NewInvalidPhone(message string) error {
	return NewDomainError(CodeInvalidPhone, message, http.StatusBadRequest, nil)
}

func NewInvalidOTP(message string) error {
	if message == "" {
		message = "invalid otp"
	}
	return NewDomainError(CodeInvalidOTP, message, http.StatusUnauthorized, nil)
}

func NewOTPExpired() error {
	return NewDomainError(CodeOTPExpired, "otp expired, request a new one", http.StatusUnauthorized, nil)
}

func NewUpstreamRejected(message string) error {
	return NewDomainError(CodeUpstreamRejected, message, http.StatusBadGateway, nil)
}

func NewUpstreamUnavailable(err error) error {
	return &DomainError{
		Code:       CodeUpstreamUnavail,
		Message:    "upstream service unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewForbidden(message string, details map[string]any) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, details)
}

func NewNoMembership(userID int64) error {
	return NewDomainError(CodeNoMembership, "no company membership found for user",
		http.StatusForbidden, map[string]any{"user_id": userID})
}

func NewUnknownCompany(name string) error {
	return NewDomainError(CodeUnknownCompany, fmt.Sprintf("not a member of company %q", name),
		http.StatusForbidden, map[string]any{"company": name})
}

func NewMutationNotAllowed(message string) error {
	return NewDomainError(CodeMutationNotAllowed, message, http.StatusForbidden, nil)
}

func NewTableNotAllowed(tables []string) error {
	return NewDomainError(CodeTableNotAllowed, "query references tables outside the allowed set",
		http.StatusForbidden, map[string]any{"tables": tables})
}

func NewUnsafeQuery(message string) error {
	return NewDomainError(CodeUnsafeQuery, message, http.StatusForbidden, nil)
}

func NewBackendError(err error) error {
	return &DomainError{
		Code:       CodeBackendError,
		Message:    "backend query failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewContextMissing() error {
	return NewDomainError(CodeContextMissing, "no request context bound for this unit of work",
		http.StatusUnauthorized, nil)
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
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
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// CodeOf returns the DomainError code for err, or CodeInternalError.
func CodeOf(err error) string {
	return ToDomainError(err).Code
}

// IsCode reports whether err carries the given domain error code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
