package core

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat   = errors.New("unsupported file format")
	ErrInvalidMapping      = errors.New("invalid field mapping")
	ErrUnknownEntity       = errors.New("unknown entity type")
	ErrEntityMismatch      = errors.New("entity type does not match route")
	ErrNotFound            = errors.New("record not found")
	ErrDuplicateNaturalKey = errors.New("duplicate natural key")
	ErrLeaderMismatch      = errors.New("leader does not match pending key")
	ErrEmptyBatch          = errors.New("batch has no rows")
)

// UnsupportedFormatError reports a file the ingestor cannot read.
type UnsupportedFormatError struct {
	MediaType string
	FileName  string
	Reason    string
}

func (e *UnsupportedFormatError) Error() string {
	msg := fmt.Sprintf("unsupported file format (name %q, type %q)", e.FileName, e.MediaType)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// LeaderMismatchError is returned by Resolve when the supplied leader does
// not carry the pending key being resolved.
type LeaderMismatchError struct {
	LeaderKey string
	LeaderID  int64
	Actual    string
}

func (e *LeaderMismatchError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("leader %d not found for pending key %s", e.LeaderID, e.LeaderKey)
	}
	return fmt.Sprintf("leader %d has national id %s, not pending key %s", e.LeaderID, e.Actual, e.LeaderKey)
}

func (e *LeaderMismatchError) Unwrap() error { return ErrLeaderMismatch }

// TransactionAbortedError wraps the unexpected fault that rolled back an
// entire batch.
type TransactionAbortedError struct {
	Entity EntityType
	Row    int
	Err    error
}

func (e *TransactionAbortedError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%s import aborted at row %d: %v", e.Entity, e.Row, e.Err)
	}
	return fmt.Sprintf("%s import aborted: %v", e.Entity, e.Err)
}

func (e *TransactionAbortedError) Unwrap() error { return e.Err }

// ValidationFailedError carries the findings that kept a single record
// from being written.
type ValidationFailedError struct {
	Issues []ImportError
}

func (e *ValidationFailedError) Error() string {
	for _, i := range e.Issues {
		if i.Severity == SeverityError {
			return "validation failed: " + i.Error()
		}
	}
	return "validation failed"
}

// rowRejection fails a single row without aborting the batch.
type rowRejection struct {
	issue ImportError
}

func (r *rowRejection) Error() string { return r.issue.Error() }

func reject(row int, field FieldTag, value, msg string) error {
	return &rowRejection{issue: rowError(row, field, value, msg)}
}
