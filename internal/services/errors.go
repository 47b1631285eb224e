package services

import (
	"errors"
	"fmt"

	"github.com/aptitude-portal/timing-analytics-service/internal/classifier"
	apperrors "github.com/aptitude-portal/timing-analytics-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrBadRequest       = errors.New("bad request")

	// Record errors
	ErrDuplicateResponse = errors.New("response already recorded for this student and question")
	ErrQuestionNotFound  = errors.New("question not found")
	ErrStudentNotFound   = errors.New("student not found")

	// Classification errors
	ErrInvalidIdealTime = classifier.ErrInvalidIdealTime

	// Aggregate errors
	ErrNoResponses = errors.New("no responses recorded for this scope")

	// Storage errors. Every storage call runs under a bounded timeout;
	// a timeout or driver failure surfaces as this, never a hang and
	// never fabricated zero data.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// ===== ERROR HELPERS =====

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrStudentNotFound)
}

// IsConflict checks if error represents a uniqueness conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateResponse)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrInvalidIdealTime) ||
		errors.Is(err, classifier.ErrNegativeTimeTaken) {
		return true
	}
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *ValidationError
	return errors.As(err, &single)
}

// IsStorage checks if error represents a storage failure or timeout
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// storageError wraps a repository failure as a typed storage error so
// callers can distinguish "failed to compute" from legitimate zeros.
func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
}
