// internal/pending/store.go
package pending

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Record marks that a switch to a newly created store is waiting on readiness.
// At most one record exists at a time.
type Record struct {
	SiteID       int64
	ExpectedName string
	CreatedAt    time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS pending_switch (
	slot          INTEGER PRIMARY KEY CHECK (slot = 1),
	site_id       INTEGER NOT NULL,
	expected_name TEXT    NOT NULL,
	created_at    INTEGER NOT NULL
);`

// Store persists the pending-switch record in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (and creates if needed) the state database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("pending: db path required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create state dir %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	// One writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrate pending_switch table")
	}

	log.Debug().Str("db_path", path).Msg("pending switch store opened")
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the pending record.
func (s *Store) Save(ctx context.Context, r Record) error {
	if r.SiteID <= 0 {
		return errors.Errorf("pending: invalid site id %d", r.SiteID)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO pending_switch (slot, site_id, expected_name, created_at)
VALUES (1, ?, ?, ?)
ON CONFLICT(slot) DO UPDATE SET
	site_id = excluded.site_id,
	expected_name = excluded.expected_name,
	created_at = excluded.created_at`,
		r.SiteID, r.ExpectedName, r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return errors.Wrapf(err, "save pending switch for site %d", r.SiteID)
	}
	return nil
}

// Load returns the pending record, if any.
func (s *Store) Load(ctx context.Context) (Record, bool, error) {
	var (
		r  Record
		ms int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT site_id, expected_name, created_at FROM pending_switch WHERE slot = 1`,
	).Scan(&r.SiteID, &r.ExpectedName, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, errors.Wrap(err, "load pending switch")
	}
	r.CreatedAt = time.UnixMilli(ms)
	return r, true, nil
}

// Clear removes the pending record. Clearing an empty store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_switch WHERE slot = 1`); err != nil {
		return errors.Wrap(err, "clear pending switch")
	}
	return nil
}
