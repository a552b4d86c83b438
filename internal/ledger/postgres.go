package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check that PostgresLedger implements Ledger.
var _ Ledger = (*PostgresLedger)(nil)

// PostgresLedger implements Ledger on a Postgres table keyed by
// (owner_id, video_id).
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresLedger creates a new PostgresLedger.
func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

// EnsureSchema creates the ledger table if it does not exist.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS processing_records (
			owner_id        TEXT NOT NULL,
			video_id        TEXT NOT NULL,
			filename        TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL,
			output_location TEXT NOT NULL DEFAULT '',
			error_detail    TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL,
			updated_at      TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (owner_id, video_id)
		)`
	if _, err := l.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

// Create registers a new record.
func (l *PostgresLedger) Create(ctx context.Context, rec *Record) error {
	const query = `
		INSERT INTO processing_records (
			owner_id, video_id, filename, status,
			output_location, error_detail, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

	now := time.Now().UTC()
	_, err := l.pool.Exec(ctx, query,
		rec.OwnerID, rec.VideoID, rec.Filename, string(rec.Status),
		rec.OutputLocation, rec.ErrorDetail, now,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// UpdateStatus performs a partial upsert: only status, updated_at and the
// supplied Update fields are written.
func (l *PostgresLedger) UpdateStatus(ctx context.Context, ownerID, videoID string, status Status, upd Update) error {
	const query = `
		INSERT INTO processing_records (
			owner_id, video_id, status, output_location, error_detail, created_at, updated_at
		) VALUES ($1, $2, $3, COALESCE($4, ''), COALESCE($5, ''), $6, $6)
		ON CONFLICT (owner_id, video_id) DO UPDATE SET
			status          = EXCLUDED.status,
			updated_at      = EXCLUDED.updated_at,
			output_location = COALESCE($4, processing_records.output_location),
			error_detail    = COALESCE($5, processing_records.error_detail)
		WHERE NOT (processing_records.status = 'COMPLETED' AND EXCLUDED.status = 'ERROR')`

	tag, err := l.pool.Exec(ctx, query,
		ownerID, videoID, string(status),
		upd.OutputLocation, upd.ErrorDetail, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// The conflict guard refused a stale ERROR over COMPLETED
		return ErrTerminalState
	}
	return nil
}

// Get retrieves the record for (ownerID, videoID).
func (l *PostgresLedger) Get(ctx context.Context, ownerID, videoID string) (*Record, error) {
	const query = `
		SELECT owner_id, video_id, filename, status,
			output_location, error_detail, created_at, updated_at
		FROM processing_records
		WHERE owner_id = $1 AND video_id = $2`

	rec := &Record{}
	var status string
	err := l.pool.QueryRow(ctx, query, ownerID, videoID).Scan(
		&rec.OwnerID, &rec.VideoID, &rec.Filename, &status,
		&rec.OutputLocation, &rec.ErrorDetail, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("query record: %w", err)
	}
	rec.Status = Status(status)
	return rec, nil
}
