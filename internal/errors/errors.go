// Package errors defines the failure taxonomy of a series run. Every error
// carries a category and a code; generation errors also carry the period and
// stream that failed. Nothing in the pipeline is retried.
package errors

import (
	"errors"
	"fmt"
)

type Category string

const (
	CategoryConfiguration Category = "CONFIGURATION"
	CategoryGeneration    Category = "GENERATION"
	CategoryConsistency   Category = "CONSISTENCY"
	CategoryPersistence   Category = "PERSISTENCE"
)

const (
	// Configuration codes
	CodeMissingField      = "MISSING_FIELD"
	CodeInvalidPeriodUnit = "INVALID_PERIOD_UNIT"
	CodeInvalidDate       = "INVALID_DATE"
	CodeInvalidValue      = "INVALID_VALUE"

	// Generation codes
	CodeEngineFailed  = "ENGINE_FAILED"
	CodeUnsatisfiable = "UNSATISFIABLE"

	// Consistency codes
	CodeColumnOrderMismatch = "COLUMN_ORDER_MISMATCH"

	// Persistence codes
	CodeStoreFailed = "STORE_FAILED"
	CodeWriteFailed = "WRITE_FAILED"
)

// Sentinels for errors.Is checks against a code regardless of message.
var (
	ErrInvalidPeriodUnit   = New(CategoryConfiguration, CodeInvalidPeriodUnit, "invalid period unit")
	ErrColumnOrderMismatch = New(CategoryConsistency, CodeColumnOrderMismatch, "column order mismatch")
	ErrMissingField        = New(CategoryConfiguration, CodeMissingField, "missing required field")
	ErrUnsatisfiable       = New(CategoryGeneration, CodeUnsatisfiable, "unsatisfiable constraint")
)

// SeriesError is the structured error used across the pipeline.
type SeriesError struct {
	Category Category
	Code     string
	Message  string
	// Period is 0 when the failure is not tied to a period.
	Period int
	// Stream is "new" or "existing" for generation failures.
	Stream string
	Cause  error
}

func (e *SeriesError) Error() string {
	prefix := fmt.Sprintf("[%s:%s]", e.Category, e.Code)
	if e.Period > 0 {
		if e.Stream != "" {
			prefix += fmt.Sprintf(" period %d (%s)", e.Period, e.Stream)
		} else {
			prefix += fmt.Sprintf(" period %d", e.Period)
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

func (e *SeriesError) Unwrap() error {
	return e.Cause
}

// Is matches on category and code so sentinels compare equal to any error
// of the same kind.
func (e *SeriesError) Is(target error) bool {
	var t *SeriesError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

func New(category Category, code, message string) *SeriesError {
	return &SeriesError{Category: category, Code: code, Message: message}
}

func Newf(category Category, code, format string, args ...interface{}) *SeriesError {
	return New(category, code, fmt.Sprintf(format, args...))
}

func Wrap(category Category, code, message string, cause error) *SeriesError {
	return &SeriesError{Category: category, Code: code, Message: message, Cause: cause}
}

// InPeriod returns a copy tagged with the period and stream that failed.
func (e *SeriesError) InPeriod(period int, stream string) *SeriesError {
	cp := *e
	cp.Period = period
	cp.Stream = stream
	return &cp
}

// CategoryOf returns the category of the first SeriesError in err's chain.
func CategoryOf(err error) (Category, bool) {
	var se *SeriesError
	if errors.As(err, &se) {
		return se.Category, true
	}
	return "", false
}

// Is and As re-export the standard helpers so callers importing this package
// under its own name need no second import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
