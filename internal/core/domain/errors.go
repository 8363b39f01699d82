package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownTable indicates a table name outside the registry.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownDomain indicates a sync domain outside the registry.
	ErrUnknownDomain = errors.New("unknown sync domain")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrCompletenessMismatch indicates local and remote row counts differ after a sync.
	ErrCompletenessMismatch = errors.New("completeness mismatch")

	// ErrRemoteNotConfigured indicates no remote backend URL is configured.
	ErrRemoteNotConfigured = errors.New("remote backend not configured")

	// ErrRateLimited indicates the remote rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrBackgroundUnavailable indicates the host refused background execution.
	ErrBackgroundUnavailable = errors.New("background execution unavailable")
)

// FetchError is a failure talking to the remote backend.
// Transient failures are retried with backoff; others abort immediately.
type FetchError struct {
	Table     string
	Transient bool
	Err       error
}

func (e *FetchError) Error() string {
	kind := "fetch"
	if e.Transient {
		kind = "transient fetch"
	}
	return fmt.Sprintf("%s error on %s: %v", kind, e.Table, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a FetchError worth retrying.
func IsTransient(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Transient
	}
	return false
}

// ValidationError describes a malformed remote row.
// Rows failing validation are dropped; the sync continues.
type ValidationError struct {
	Table    string
	RecordID string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	id := e.RecordID
	if id == "" {
		id = "<no id>"
	}
	return fmt.Sprintf("invalid %s row %s: %s: %s", e.Table, id, e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PersistenceError is a local store failure. It aborts the current table.
type PersistenceError struct {
	Table string
	Op    string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s (%s): %v", e.Table, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
