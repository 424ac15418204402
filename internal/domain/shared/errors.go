// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrFutureTimestamp = errors.New("timestamp cannot be in the future")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrExpired          = errors.New("expired")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "wellness", "reward", "subscription"
	Op      string // Operation that failed, e.g., "Compute", "Grant"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Wellness domain errors
var (
	ErrScoreOutOfRange     = NewDomainError("wellness", "Validate", ErrValueOutOfRange, "score must be between 0 and 100")
	ErrSliderOutOfRange    = NewDomainError("wellness", "Validate", ErrValueOutOfRange, "slider value must be between 0 and 100")
	ErrWrongSliderCount    = NewDomainError("wellness", "Validate", ErrInvalidInput, "check-in requires exactly six slider values")
	ErrCheckInAlreadyToday = NewDomainError("wellness", "RecordCheckIn", ErrAlreadyProcessed, "check-in already recorded today")
)

// Reward domain errors
var (
	ErrNegativeAmount     = NewDomainError("reward", "Validate", ErrNegativeValue, "treat amount cannot be negative")
	ErrAlreadyRewarded    = NewDomainError("reward", "Evaluate", ErrAlreadyProcessed, "step reward already granted today")
	ErrGoalNotReached     = NewDomainError("reward", "Evaluate", ErrInvalidState, "step goal not reached")
	ErrInsufficientTreats = NewDomainError("reward", "Spend", ErrInvalidState, "treat balance is empty")
)

// Subscription domain errors
var (
	ErrNoSubscription        = NewDomainError("subscription", "Find", ErrNotFound, "no subscription on record")
	ErrTransactionCredited   = NewDomainError("subscription", "Apply", ErrAlreadyProcessed, "transaction already credited")
	ErrPurchaseCancelled     = NewDomainError("subscription", "Purchase", ErrInvalidState, "purchase cancelled by user")
	ErrVerificationFailed    = NewDomainError("subscription", "Verify", ErrInvalidEntity, "transaction failed verification")
	ErrInvalidTransition     = NewDomainError("subscription", "Transition", ErrStateTransition, "invalid subscription state transition")
	ErrRevokedBeforePurchase = NewDomainError("subscription", "Apply", ErrInvalidEntity, "revocation precedes purchase date")
)

// External service errors
var (
	ErrHealthAPIUnavailable = NewDomainError("health", "Request", ErrServiceUnavailable, "step provider is unavailable")
	ErrHealthAPITimeout     = NewDomainError("health", "Request", ErrTimeout, "step provider request timeout")
	ErrStoreAPIUnavailable  = NewDomainError("store", "Request", ErrServiceUnavailable, "App Store Server API is unavailable")
	ErrStoreAPIRateLimited  = NewDomainError("store", "Request", ErrRateLimited, "App Store Server API rate limit exceeded")
	ErrNotificationFailed   = NewDomainError("notification", "Schedule", ErrExternalService, "failed to schedule notification")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyProcessed checks if the error marks an idempotent no-op.
func IsAlreadyProcessed(err error) bool {
	return errors.Is(err, ErrAlreadyProcessed)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
