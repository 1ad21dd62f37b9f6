// Package businessflow contains the console's use cases: the session lifecycle and campaign composition
package businessflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Business flow error constants
var (
	// Session errors
	ErrLoginInvalid       = errors.New("login input is invalid")
	ErrLoginRejected      = errors.New("login rejected by dashboard API")
	ErrLoginInProgress    = errors.New("a login is already in progress")
	ErrTokenPersistFailed = errors.New("failed to persist bearer token")

	// Draft errors
	ErrDraftNotFound        = errors.New("campaign draft not found")
	ErrDraftClosed          = errors.New("campaign draft was already submitted")
	ErrDraftInvalid         = errors.New("campaign draft is invalid")
	ErrSubmissionInFlight   = errors.New("campaign submission already in progress")
	ErrInvalidTargetType    = errors.New("target type must be one of all, theme, location")
	ErrConflictingTargeting = errors.New("payload carries both a theme and locations")
	ErrSubmissionFailed     = errors.New("campaign submission failed")

	// Resource errors
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrInvalidPayout    = errors.New("payout id is required")
	ErrPayoutNotFound   = errors.New("payout not found")
	ErrInvalidEmail     = errors.New("email address is invalid")
	ErrInvalidManager   = errors.New("manager update is invalid")
	ErrInvalidSeller    = errors.New("seller form is invalid")
	ErrFormRejected     = errors.New("dashboard API rejected the form")
	ErrActivityNotFound = errors.New("activity entry not found")
)

// FieldErrors maps a field name to a human readable message
type FieldErrors map[string]string

// Fields returns the field names in a stable order
func (f FieldErrors) Fields() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ValidationError carries per-field violations
type ValidationError struct {
	Fields FieldErrors
	kind   error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields.Fields() {
		parts = append(parts, f+": "+e.Fields[f])
	}
	return e.kind.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.kind
}

func newValidationError(kind error, fields FieldErrors) *ValidationError {
	return &ValidationError{Fields: fields, kind: kind}
}

// AsValidationError returns the per-field violations carried by err, if any
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// UserMessage returns the message meant for the operator, falling back to err.Error()
func UserMessage(err error) string {
	var be *BusinessError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func IsLoginInvalid(err error) bool {
	return errors.Is(err, ErrLoginInvalid)
}

func IsLoginRejected(err error) bool {
	return errors.Is(err, ErrLoginRejected)
}

func IsLoginInProgress(err error) bool {
	return errors.Is(err, ErrLoginInProgress)
}

func IsDraftNotFound(err error) bool {
	return errors.Is(err, ErrDraftNotFound)
}

func IsDraftClosed(err error) bool {
	return errors.Is(err, ErrDraftClosed)
}

func IsDraftInvalid(err error) bool {
	return errors.Is(err, ErrDraftInvalid)
}

func IsSubmissionInFlight(err error) bool {
	return errors.Is(err, ErrSubmissionInFlight)
}

func IsInvalidTargetType(err error) bool {
	return errors.Is(err, ErrInvalidTargetType)
}

func IsConflictingTargeting(err error) bool {
	return errors.Is(err, ErrConflictingTargeting)
}

func IsSubmissionFailed(err error) bool {
	return errors.Is(err, ErrSubmissionFailed)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsPayoutNotFound(err error) bool {
	return errors.Is(err, ErrPayoutNotFound)
}

func IsActivityNotFound(err error) bool {
	return errors.Is(err, ErrActivityNotFound)
}
