package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordJoinAndLeave(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := s.RecordJoin(ctx, "c1", "alice", base); err != nil {
		t.Fatalf("join c1: %v", err)
	}
	if err := s.RecordJoin(ctx, "c2", "alice", base.Add(time.Second)); err != nil {
		t.Fatalf("join c2: %v", err)
	}
	if err := s.RecordLeave(ctx, "c1", base.Add(2*time.Second)); err != nil {
		t.Fatalf("leave c1: %v", err)
	}
	// Leaving twice or leaving an unknown connection is harmless.
	if err := s.RecordLeave(ctx, "c1", base.Add(3*time.Second)); err != nil {
		t.Fatalf("second leave c1: %v", err)
	}
	if err := s.RecordLeave(ctx, "ghost", base); err != nil {
		t.Fatalf("leave ghost: %v", err)
	}

	sessions, err := s.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	// Newest first.
	if sessions[0].ConnID != "c2" || sessions[0].LeftAt != nil {
		t.Fatalf("unexpected newest session: %+v", sessions[0])
	}
	if sessions[1].ConnID != "c1" || sessions[1].LeftAt == nil {
		t.Fatalf("unexpected oldest session: %+v", sessions[1])
	}
	if !sessions[1].LeftAt.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("second leave must not move left_at, got %v", sessions[1].LeftAt)
	}
	if sessions[1].Name != "alice" || !sessions[1].JoinedAt.Equal(base) {
		t.Fatalf("unexpected session fields: %+v", sessions[1])
	}
}

func TestRejoinOpensNewSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	_ = s.RecordJoin(ctx, "c1", "bob", now)
	_ = s.RecordLeave(ctx, "c1", now.Add(time.Millisecond))
	_ = s.RecordJoin(ctx, "c1", "robert", now.Add(2*time.Millisecond))

	sessions, err := s.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 || sessions[0].Name != "robert" || sessions[0].LeftAt != nil {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
}

func TestListSessionsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i, name := range []string{"a", "b", "c", "d"} {
		if err := s.RecordJoin(ctx, "conn-"+name, name, now.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
	}

	sessions, err := s.ListSessions(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 || sessions[0].Name != "d" || sessions[1].Name != "c" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
}

func TestCloseOpenSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presence.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	now := time.Now()

	_ = s.RecordJoin(ctx, "c1", "alice", now)
	_ = s.RecordJoin(ctx, "c2", "bob", now)
	_ = s.RecordLeave(ctx, "c2", now)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen: schema creation must be idempotent.
	s, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	n, err := s.CloseOpenSessions(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("close open sessions: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 open session closed, got %d", n)
	}
}
