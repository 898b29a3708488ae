package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazz-dev/resmon/internal/check"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS results (
    resource    TEXT    PRIMARY KEY,
    status      TEXT    NOT NULL CHECK(status IN ('healthy', 'warning', 'error', 'skipped')),
    message     TEXT    NOT NULL DEFAULT '',
    duration_ns INTEGER NOT NULL,
    checked_at  TEXT    NOT NULL,
    meta        TEXT    NOT NULL DEFAULT '{}',
    expires_at  TEXT    NOT NULL
);
`

// SQLite is a Cache backed by a single-file SQLite database. One row per
// resource, overwritten on each fresh check, so debounce state survives
// process restarts without growing into a history store.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %q: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Get(ctx context.Context, name string) (*Entry, error) {
	entry, err := s.Last(ctx, name)
	if err != nil {
		return nil, err
	}
	if entry.Expired() {
		return nil, ErrMiss
	}
	return entry, nil
}

func (s *SQLite) Last(ctx context.Context, name string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT status, message, duration_ns, checked_at, meta, expires_at FROM results WHERE resource = ?`,
		name,
	)

	var (
		entry      Entry
		durationNs int64
		checkedAt  string
		metaJSON   string
		expiresAt  string
	)
	err := row.Scan(&entry.Result.Status, &entry.Result.Message, &durationNs, &checkedAt, &metaJSON, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("querying cached result for %q: %w", name, err)
	}

	entry.Result.ResourceName = name
	entry.Result.Duration = time.Duration(durationNs)

	if entry.Result.CheckedAt, err = parseStoredTime(checkedAt); err != nil {
		return nil, fmt.Errorf("parsing checked_at for %q: %w", name, err)
	}
	if entry.ExpiresAt, err = parseStoredTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parsing expires_at for %q: %w", name, err)
	}
	if metaJSON != "" && metaJSON != "{}" {
		if err := json.Unmarshal([]byte(metaJSON), &entry.Result.Meta); err != nil {
			return nil, fmt.Errorf("decoding meta for %q: %w", name, err)
		}
	}
	return &entry, nil
}

func (s *SQLite) Put(ctx context.Context, name string, result check.Result, ttl time.Duration) error {
	metaJSON := "{}"
	if len(result.Meta) > 0 {
		raw, err := json.Marshal(result.Meta)
		if err != nil {
			return fmt.Errorf("encoding meta for %q: %w", name, err)
		}
		metaJSON = string(raw)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results (resource, status, message, duration_ns, checked_at, meta, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(resource) DO UPDATE SET
			status = excluded.status,
			message = excluded.message,
			duration_ns = excluded.duration_ns,
			checked_at = excluded.checked_at,
			meta = excluded.meta,
			expires_at = excluded.expires_at`,
		name,
		string(result.Status),
		result.Message,
		int64(result.Duration),
		result.CheckedAt.UTC().Format(time.RFC3339Nano),
		metaJSON,
		time.Now().Add(ttl).UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("storing result for %q: %w", name, err)
	}
	return nil
}

func (s *SQLite) Invalidate(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE resource = ?`, name); err != nil {
		return fmt.Errorf("invalidating %q: %w", name, err)
	}
	return nil
}

func parseStoredTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		// Fallback to RFC3339 without sub-second precision.
		return time.Parse(time.RFC3339, value)
	}
	return t, nil
}
