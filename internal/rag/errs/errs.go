// Package errs defines the error taxonomy of the ingestion and answering
// pipelines. Index and provider errors are converted into these types at the
// pipeline boundary; nothing below that boundary leaks implementation-specific
// errors to callers.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError rejects bad input (unsupported type, oversize, empty file)
// before ingestion starts.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// DuplicateError signals that uploaded content already exists. It is not a
// failure; it carries a reference to the existing document.
type DuplicateError struct {
	ExistingID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate content, already stored as document %s", e.ExistingID)
}

// ConflictError rejects an ingestion request for a document that is already
// being processed. The second request is neither queued nor merged.
type ConflictError struct {
	DocumentID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("document %s is already being processed", e.DocumentID)
}

// TransientError wraps a provider or index failure that is worth retrying
// (timeout, rate limit, transient network). Once retries are exhausted it
// becomes the permanent failure of that run.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError wraps unsupported or unparseable content. No automatic retry
// is attempted.
type PermanentError struct {
	Op  string
	Err error
}

func (e *PermanentError) Error() string { return fmt.Sprintf("%s: permanent failure: %v", e.Op, e.Err) }
func (e *PermanentError) Unwrap() error { return e.Err }

// GenerationError wraps a generation-provider failure that occurred after
// context was successfully retrieved. The caller must persist an
// error-flagged message rather than drop the question.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generation failed: %v", e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }

// NotFoundError signals an operation referencing an identifier that does not
// exist in the record store. Index-layer deletes of absent scopes are no-ops
// and never produce it.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }

// Transient creates a TransientError.
func Transient(op string, err error) error { return &TransientError{Op: op, Err: err} }

// Permanent creates a PermanentError.
func Permanent(op string, err error) error { return &PermanentError{Op: op, Err: err} }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsDuplicate reports whether err is a DuplicateError.
func IsDuplicate(err error) bool {
	var e *DuplicateError
	return errors.As(err, &e)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// IsTransient reports whether err is a TransientError.
func IsTransient(err error) bool {
	var e *TransientError
	return errors.As(err, &e)
}

// IsPermanent reports whether err is a PermanentError.
func IsPermanent(err error) bool {
	var e *PermanentError
	return errors.As(err, &e)
}

// IsGeneration reports whether err is a GenerationError.
func IsGeneration(err error) bool {
	var e *GenerationError
	return errors.As(err, &e)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}
