package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"kettle_protocol/internal/models"
)

type AnchorSQLite struct {
	db *sql.DB
}

func NewAnchorSQLite(db *sql.DB) *AnchorSQLite {
	return &AnchorSQLite{db: db}
}

// Ensure implementation of AnchorRepo interface at compile time.
var _ AnchorRepo = (*AnchorSQLite)(nil)

const (
	upsertAnchorSQL = `
		INSERT INTO kettle_anchor (entry_id, start_ts, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(entry_id) DO UPDATE SET
			start_ts=excluded.start_ts,
			updated_at=excluded.updated_at
	`

	selectAnchorSQL = `
		SELECT start_ts FROM kettle_anchor WHERE entry_id=?
	`
)

// Save upserts the anchor row for the given entry. A nil StartTS is stored
// as SQL NULL so that the "not armed" state round-trips.
func (r *AnchorSQLite) Save(ctx context.Context, entryID string, a models.RuntimeAnchor) error {
	var startTS sql.NullString
	if a.StartTS != nil {
		startTS = sql.NullString{String: *a.StartTS, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, upsertAnchorSQL,
		entryID,
		startTS,
		time.Now().UTC(),
	)
	return err
}

// Load fetches the anchor for the given entry. Returns (nil, nil) when no
// row exists yet.
func (r *AnchorSQLite) Load(ctx context.Context, entryID string) (*models.RuntimeAnchor, error) {
	row := r.db.QueryRowContext(ctx, selectAnchorSQL, entryID)

	var startTS sql.NullString
	if err := row.Scan(&startTS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // first run, nothing persisted yet
		}
		return nil, err
	}

	a := &models.RuntimeAnchor{}
	if startTS.Valid {
		s := startTS.String
		a.StartTS = &s
	}
	return a, nil
}
