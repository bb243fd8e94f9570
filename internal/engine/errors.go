package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/hubsync/internal/store"
)

// ErrPassInProgress is returned by Run when a pass is already running on the
// same Engine.
var ErrPassInProgress = errors.New("sync pass already in progress")

// ErrorCode categorizes sync errors.
type ErrorCode string

const (
	// ErrCodeStoreUnavailable indicates a store call failed for transport,
	// auth or storage reasons. When it happens while enumerating a
	// collection the rest of that collection is skipped for the pass.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"

	// ErrCodeRecordNotFound indicates a correlated record vanished.
	ErrCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"

	// ErrCodeSchemaMismatch indicates the destination rejected a property
	// (for example the collection has no field of that name).
	ErrCodeSchemaMismatch ErrorCode = "SCHEMA_MISMATCH"

	// ErrCodeWriteFailed indicates a create or update call failed.
	ErrCodeWriteFailed ErrorCode = "WRITE_FAILED"
)

// SyncError is a failure contained to one record or one collection.
//
// SyncErrors never abort a pass. They are collected in the Report and the
// affected change is retried structurally by the next pass.
type SyncError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Phase is the phase the error happened in.
	Phase Phase

	// Collection is the collection being processed, if known.
	Collection string

	// RecordID is the record being processed, if any.
	RecordID string

	// Message describes the failed operation.
	Message string

	// Err is the underlying store error.
	Err error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.RecordID != "" && e.Collection != "":
		msg += fmt.Sprintf(" (collection=%s, record=%s)", e.Collection, e.RecordID)
	case e.RecordID != "":
		msg += fmt.Sprintf(" (record=%s)", e.RecordID)
	case e.Collection != "":
		msg += fmt.Sprintf(" (collection=%s)", e.Collection)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying store error.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsStoreUnavailable returns true if err is a SyncError with
// ErrCodeStoreUnavailable. Uses errors.As to handle wrapped errors.
func IsStoreUnavailable(err error) bool {
	return hasCode(err, ErrCodeStoreUnavailable)
}

// IsRecordNotFound returns true if err is a SyncError with
// ErrCodeRecordNotFound.
func IsRecordNotFound(err error) bool {
	return hasCode(err, ErrCodeRecordNotFound)
}

// IsSchemaMismatch returns true if err is a SyncError with
// ErrCodeSchemaMismatch.
func IsSchemaMismatch(err error) bool {
	return hasCode(err, ErrCodeSchemaMismatch)
}

// IsWriteFailed returns true if err is a SyncError with ErrCodeWriteFailed.
func IsWriteFailed(err error) bool {
	return hasCode(err, ErrCodeWriteFailed)
}

func hasCode(err error, code ErrorCode) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// newEnumerateError wraps a failure to list a collection.
func newEnumerateError(collection string, err error) *SyncError {
	return &SyncError{
		Code:       ErrCodeStoreUnavailable,
		Collection: collection,
		Message:    "enumerate collection",
		Err:        err,
	}
}

// newReadError wraps a failed read. A missing record is RECORD_NOT_FOUND,
// anything else is STORE_UNAVAILABLE.
func newReadError(phase Phase, collection, id, op string, err error) *SyncError {
	code := ErrCodeStoreUnavailable
	if errors.Is(err, store.ErrNotFound) {
		code = ErrCodeRecordNotFound
	}
	return &SyncError{Code: code, Phase: phase, Collection: collection, RecordID: id, Message: op, Err: err}
}

// newWriteError wraps a failed create or update. A missing target is
// RECORD_NOT_FOUND and a schema rejection is SCHEMA_MISMATCH.
func newWriteError(phase Phase, collection, id, op string, err error) *SyncError {
	code := ErrCodeWriteFailed
	switch {
	case errors.Is(err, store.ErrSchemaMismatch):
		code = ErrCodeSchemaMismatch
	case errors.Is(err, store.ErrNotFound):
		code = ErrCodeRecordNotFound
	}
	return &SyncError{Code: code, Phase: phase, Collection: collection, RecordID: id, Message: op, Err: err}
}
