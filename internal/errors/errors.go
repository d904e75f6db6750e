// Package errors defines the sentinel errors shared across the engine and
// server, plus classification and retry helpers for transient storage
// failures.
package errors

import (
	"errors"
)

var (
	// ErrDocExists is returned when creating a document that already exists.
	ErrDocExists = errors.New("document already exists")

	// ErrDocNotFound is returned when reading/updating/deleting a
	// non-existent document.
	ErrDocNotFound = errors.New("document not found")

	// ErrTxConflict is returned when an optimistic transaction still
	// conflicts after the retry budget is exhausted.
	ErrTxConflict = errors.New("transaction conflict")

	// ErrPreconditionFailed is returned when a conditional update/delete
	// filter does not match the current document.
	ErrPreconditionFailed = errors.New("precondition filter did not match")

	// ErrSchemaViolation is returned when a document fails its collection's
	// JSON schema.
	ErrSchemaViolation = errors.New("document violates collection schema")

	// ErrInvalidDocument is returned when a payload is not a JSON object.
	ErrInvalidDocument = errors.New("document must be a JSON object")

	// ErrEngineClosed is returned when operating on a closed engine.
	ErrEngineClosed = errors.New("engine is closed")

	// ErrQueryBusy is returned when the query worker pool is saturated.
	ErrQueryBusy = errors.New("too many concurrent queries")
)
