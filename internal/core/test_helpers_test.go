package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustNoEvent fails if any event of kind arrives within the wait window.
func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected %v event: %+v", kind, ev)
			}
		case <-timer.C:
			return
		}
	}
}

// syncPoint waits until the hub has processed everything queued so far.
func syncPoint(t *testing.T, h Hub) []string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	names, err := h.Online(ctx)
	if err != nil {
		t.Fatalf("online: %v", err)
	}
	return names
}

// settle waits until every command c sent so far has been handled.
func settle(t *testing.T, c *Client) {
	t.Helper()

	c.Commands <- &Command{Kind: CommandListUsers}
	mustEvent(t, c.Events, EventUpdateUsers)
}

type journalEntry struct {
	conn   string
	name   string
	joined bool
}

type memoryJournal struct {
	mu      sync.Mutex
	entries []journalEntry
}

func (j *memoryJournal) RecordJoin(_ context.Context, conn, name string, _ time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, journalEntry{conn: conn, name: name, joined: true})
	return nil
}

func (j *memoryJournal) RecordLeave(_ context.Context, conn string, _ time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, journalEntry{conn: conn})
	return nil
}

func (j *memoryJournal) snapshot() []journalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]journalEntry, len(j.entries))
	copy(out, j.entries)
	return out
}

// stallingJournal blocks every write until release is closed.
type stallingJournal struct {
	release chan struct{}
}

func (j *stallingJournal) RecordJoin(ctx context.Context, _, _ string, _ time.Time) error {
	select {
	case <-j.release:
	case <-ctx.Done():
	}
	return nil
}

func (j *stallingJournal) RecordLeave(ctx context.Context, _ string, _ time.Time) error {
	select {
	case <-j.release:
	case <-ctx.Done():
	}
	return nil
}
