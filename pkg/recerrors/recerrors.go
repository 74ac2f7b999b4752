// Package recerrors classifies reconciliation failures so the orchestrator
// can map each one onto a retry policy: benign outcomes end the cycle
// without retry, retryable failures requeue with backoff, and permanent
// configuration errors stop retrying until the spec changes.
package recerrors

import (
	"errors"
	"fmt"
)

// Classification buckets every reconciliation failure.
type Classification string

const (
	// ClassBenign marks non-error terminal outcomes, e.g. the
	// recommendation source or the owning resource no longer exists.
	ClassBenign Classification = "benign"

	// ClassRetryable marks transport failures (clone, push, API calls)
	// that are fatal for the current cycle but expected to heal.
	ClassRetryable Classification = "retryable"

	// ClassPermanent marks configuration errors (unresolvable credential,
	// malformed repository URL) that will not heal without a spec change.
	ClassPermanent Classification = "permanent"
)

// ClassifiedError wraps a failure with its classification and the operation
// that produced it.
type ClassifiedError struct {
	Op             string
	Classification Classification
	Err            error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Classification)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Benign wraps err as a benign terminal outcome.
func Benign(op string, err error) error {
	return &ClassifiedError{Op: op, Classification: ClassBenign, Err: err}
}

// Retryable wraps err as fatal-for-this-cycle, eligible for retry.
func Retryable(op string, err error) error {
	return &ClassifiedError{Op: op, Classification: ClassRetryable, Err: err}
}

// Retryablef builds a retryable error from a format string.
func Retryablef(op, format string, args ...any) error {
	return Retryable(op, fmt.Errorf(format, args...))
}

// Permanent wraps err as a configuration error that retries cannot fix.
func Permanent(op string, err error) error {
	return &ClassifiedError{Op: op, Classification: ClassPermanent, Err: err}
}

// Permanentf builds a permanent error from a format string.
func Permanentf(op, format string, args ...any) error {
	return Permanent(op, fmt.Errorf(format, args...))
}

// ClassificationOf returns the classification of err. Unclassified errors
// default to retryable so unknown failures keep the resource under retry
// rather than silently abandoning it.
func ClassificationOf(err error) Classification {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Classification
	}
	return ClassRetryable
}

// IsPermanent reports whether err is classified permanent.
func IsPermanent(err error) bool {
	return ClassificationOf(err) == ClassPermanent
}

// IsBenign reports whether err is classified benign.
func IsBenign(err error) bool {
	return ClassificationOf(err) == ClassBenign
}
