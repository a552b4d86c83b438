// Package ledger provides the durable per-(owner, video) processing status
// record. It defines the Ledger interface (port) with DynamoDB, Postgres and
// in-memory implementations.
package ledger

import (
	"context"
	"errors"
	"time"
)

// Status represents the processing state of a (owner, video) unit of work.
type Status string

const (
	// StatusPending indicates the upload was registered but not yet processed.
	StatusPending Status = "PENDING"
	// StatusProcessing indicates a worker is processing the video.
	StatusProcessing Status = "PROCESSING"
	// StatusCompleted indicates processing finished and the archive is stored.
	StatusCompleted Status = "COMPLETED"
	// StatusError indicates processing failed.
	StatusError Status = "ERROR"
)

// Terminal returns true if no further automatic transition is expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// IsValid returns true if the status is one of the known states.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// Record is the durable ledger entry, keyed by (OwnerID, VideoID).
type Record struct {
	OwnerID        string
	VideoID        string
	Filename       string
	Status         Status
	OutputLocation string
	ErrorDetail    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone returns a copy of the record.
func (r *Record) Clone() *Record {
	cp := *r
	return &cp
}

// Update carries the optional fields of a status transition. Nil fields are
// left untouched in the stored record.
type Update struct {
	OutputLocation *string
	ErrorDetail    *string
}

// Static ledger errors.
var (
	// ErrRecordNotFound is returned when no record exists for the key.
	ErrRecordNotFound = errors.New("ledger: record not found")
	// ErrTerminalState is returned when a stale ERROR write would overwrite
	// a COMPLETED record. Writing PROCESSING is the explicit re-processing
	// signal and is never rejected.
	ErrTerminalState = errors.New("ledger: record already completed")
)

// Ledger defines the interface for processing status persistence.
type Ledger interface {
	// Create registers a new record, typically in PENDING state.
	// CreatedAt and UpdatedAt are set by the implementation.
	Create(ctx context.Context, rec *Record) error

	// UpdateStatus performs a partial update of the record: only the
	// status, updated_at and the supplied Update fields are written. The
	// record is created if it does not exist (at-least-once delivery may
	// reach a worker before the intake write is visible). An ERROR write
	// against a currently COMPLETED record fails with ErrTerminalState.
	UpdateStatus(ctx context.Context, ownerID, videoID string, status Status, upd Update) error

	// Get retrieves the record for (ownerID, videoID).
	// Returns ErrRecordNotFound if it does not exist.
	Get(ctx context.Context, ownerID, videoID string) (*Record, error)
}
