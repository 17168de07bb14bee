package store

import (
	"context"
	"time"
)

// Session is one connection's stay under a name.
type Session struct {
	ID       int64
	ConnID   string
	Name     string
	JoinedAt time.Time
	LeftAt   *time.Time // nil while the connection is still bound
}

// PresenceStore persists the presence journal.
// Message bodies are never stored.
type PresenceStore interface {
	// RecordJoin opens a session for conn under name.
	RecordJoin(ctx context.Context, conn, name string, at time.Time) error
	// RecordLeave closes the open session of conn, if any.
	RecordLeave(ctx context.Context, conn string, at time.Time) error
	// ListSessions returns the most recent sessions, newest first.
	ListSessions(ctx context.Context, limit int) ([]Session, error)
	// CloseOpenSessions marks every open session as left, used on startup
	// and shutdown since bindings do not outlive the process.
	CloseOpenSessions(ctx context.Context, at time.Time) (int64, error)

	Close() error
}
