package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidAddress   = "INVALID_ADDRESS"
	ErrCodeSessionMissing   = "SESSION_ARTIFACT_MISSING"
	ErrCodeSessionInvalid   = "SESSION_INVALID"
	ErrCodeNotAuthenticated = "NOT_AUTHENTICATED"
	ErrCodeTimeout          = "SCRAPE_TIMEOUT"
	ErrCodeNavigation       = "NAVIGATION_FAILED"
	ErrCodeBrowserCrash     = "BROWSER_CRASH"
	ErrCodeStorage          = "STORAGE_FAILURE"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// Sentinels for errors.Is. Matching is by code, so any ScrapeError carrying
// the same code satisfies errors.Is(err, ErrNotAuthenticated) etc.
var (
	ErrInvalidAddress   = &ScrapeError{Code: ErrCodeInvalidAddress}
	ErrSessionMissing   = &ScrapeError{Code: ErrCodeSessionMissing}
	ErrSessionInvalid   = &ScrapeError{Code: ErrCodeSessionInvalid}
	ErrNotAuthenticated = &ScrapeError{Code: ErrCodeNotAuthenticated}
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a ScrapeError with the same code.
func (e *ScrapeError) Is(target error) bool {
	t, ok := target.(*ScrapeError)
	return ok && t.Code == e.Code
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// AsScrapeError returns err as a *ScrapeError, wrapping unknown errors
// as INTERNAL_ERROR.
func AsScrapeError(err error) *ScrapeError {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return NewScrapeError(ErrCodeInternal, err.Error(), err)
}
