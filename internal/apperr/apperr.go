// Package apperr defines the error taxonomy shared by the auction services.
//
// Validation errors mean the input was malformed and nothing changed.
// Conflict errors mean the operation lost against the authoritative state;
// they carry a fresh auction snapshot so callers can resynchronize.
// NotFound and Store errors are what their names say; Store errors are
// retryable.
package apperr

import (
	"errors"
	"fmt"

	"github.com/mcdev12/gavel/internal/models"
)

// Kind classifies an error for transport mapping and retry decisions.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindStore
)

// Error is the concrete error type carried across service boundaries.
type Error struct {
	Kind     Kind
	Err      error
	Snapshot *models.Auction // authoritative state, set on conflicts
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds a validation error from a format string.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound builds a not-found error from a format string.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Err: fmt.Errorf(format, args...)}
}

// Conflict wraps err as a state conflict, attaching the authoritative
// snapshot the caller should resynchronize from. snapshot may be nil when
// the fresh state could not be read.
func Conflict(err error, snapshot *models.Auction) *Error {
	return &Error{Kind: KindConflict, Err: err, Snapshot: snapshot}
}

// Store wraps a persistence failure as a retryable store error.
func Store(err error) *Error {
	return &Error{Kind: KindStore, Err: fmt.Errorf("store: %w", err)}
}

// KindOf extracts the Kind from err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// SnapshotOf returns the conflict snapshot attached to err, if any.
func SnapshotOf(err error) *models.Auction {
	var e *Error
	if errors.As(err, &e) {
		return e.Snapshot
	}
	return nil
}
