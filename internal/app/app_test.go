package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/miipal/internal/config"
	"github.com/vovakirdan/miipal/internal/core"
	applog "github.com/vovakirdan/miipal/internal/log"
)

func TestSenderPolicyMapping(t *testing.T) {
	if got := senderPolicy(config.SenderPolicyBinding); got != core.SenderFromBinding {
		t.Fatalf("binding mapped to %v", got)
	}
	if got := senderPolicy(config.SenderPolicyPayload); got != core.SenderFromPayload {
		t.Fatalf("payload mapped to %v", got)
	}
	if got := senderPolicy(""); got != core.SenderFromPayload {
		t.Fatalf("empty mapped to %v", got)
	}
}

func TestDefaultConfigAcceptsLongNames(t *testing.T) {
	cfg := config.Default()
	r := core.NewRouter(routerOptions(&cfg))

	name := strings.Repeat("é", 65)
	res := r.Handle("c1", &core.Command{Kind: core.CommandJoin, Name: name})
	if !res.Verdict.OK() {
		t.Fatalf("long name rejected with defaults: %s", res.Verdict.Reason)
	}
	if got, ok := r.Registry().NameOf("c1"); !ok || got != name {
		t.Fatalf("connection not bound: %q %v", got, ok)
	}
}

func TestConfiguredNameCap(t *testing.T) {
	cfg := config.Default()
	cfg.MaxNameLength = 3
	r := core.NewRouter(routerOptions(&cfg))

	res := r.Handle("c1", &core.Command{Kind: core.CommandJoin, Name: "abcd"})
	if res.Verdict.Reason != core.ReasonNameTooLong {
		t.Fatalf("expected name_too_long, got %+v", res.Verdict)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.DatabasePath = filepath.Join(t.TempDir(), "presence.db")

	application, err := New(&cfg, applog.Disabled())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- application.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
