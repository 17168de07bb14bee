package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/miipal/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS presence_sessions (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	conn_id   TEXT NOT NULL,
	name      TEXT NOT NULL,
	joined_at DATETIME NOT NULL,
	left_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_presence_sessions_open ON presence_sessions(conn_id) WHERE left_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_presence_sessions_joined ON presence_sessions(joined_at DESC);
`

// SQLiteStore implements store.PresenceStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.PresenceStore = (*SQLiteStore)(nil)

// New opens (or creates) the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, applySchema)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema variations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func applySchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordJoin opens a session row.
func (s *SQLiteStore) RecordJoin(ctx context.Context, conn, name string, at time.Time) error {
	query := `
		INSERT INTO presence_sessions (conn_id, name, joined_at)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, conn, name, at.UTC()); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// RecordLeave closes the open session of conn. Closing nothing is not an error.
func (s *SQLiteStore) RecordLeave(ctx context.Context, conn string, at time.Time) error {
	query := `
		UPDATE presence_sessions
		SET left_at = ?
		WHERE conn_id = ? AND left_at IS NULL
	`
	if _, err := s.db.ExecContext(ctx, query, at.UTC(), conn); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// CloseOpenSessions stamps left_at on every open session.
func (s *SQLiteStore) CloseOpenSessions(ctx context.Context, at time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE presence_sessions SET left_at = ? WHERE left_at IS NULL`, at.UTC())
	if err != nil {
		return 0, fmt.Errorf("close open sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ListSessions returns up to limit sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]store.Session, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, conn_id, name, joined_at, left_at
		FROM presence_sessions
		ORDER BY joined_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]store.Session, 0, limit)
	for rows.Next() {
		var (
			sess   store.Session
			leftAt sql.NullTime
		)
		if err := rows.Scan(&sess.ID, &sess.ConnID, &sess.Name, &sess.JoinedAt, &leftAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if leftAt.Valid {
			t := leftAt.Time
			sess.LeftAt = &t
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}
