package ledger

import (
	"context"
	"sync"
	"time"
)

// Compile-time check that MemoryLedger implements Ledger.
var _ Ledger = (*MemoryLedger)(nil)

// MemoryLedger is an in-memory implementation of Ledger.
// It uses a map with RWMutex for thread-safe access.
// Suitable for development and testing; swap for DynamoDB or Postgres in production.
type MemoryLedger struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryLedger creates a new in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records: make(map[string]*Record),
	}
}

func recordKey(ownerID, videoID string) string {
	return ownerID + "/" + videoID
}

// Create registers a new record.
func (l *MemoryLedger) Create(_ context.Context, rec *Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cp := rec.Clone()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	l.records[recordKey(rec.OwnerID, rec.VideoID)] = cp
	return nil
}

// UpdateStatus performs a partial update, creating the record if absent.
func (l *MemoryLedger) UpdateStatus(_ context.Context, ownerID, videoID string, status Status, upd Update) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	key := recordKey(ownerID, videoID)

	rec, ok := l.records[key]
	if !ok {
		rec = &Record{
			OwnerID:   ownerID,
			VideoID:   videoID,
			CreatedAt: now,
		}
		l.records[key] = rec
	}

	if status == StatusError && rec.Status == StatusCompleted {
		return ErrTerminalState
	}

	rec.Status = status
	rec.UpdatedAt = now
	if upd.OutputLocation != nil {
		rec.OutputLocation = *upd.OutputLocation
	}
	if upd.ErrorDetail != nil {
		rec.ErrorDetail = *upd.ErrorDetail
	}
	return nil
}

// Get retrieves a record by key.
// Returns a clone to prevent external mutations.
func (l *MemoryLedger) Get(_ context.Context, ownerID, videoID string) (*Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[recordKey(ownerID, videoID)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}
