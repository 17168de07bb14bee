package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	def := Default()
	if cfg.Addr != def.Addr || cfg.SenderPolicy != def.SenderPolicy || cfg.ClientBuffer != def.ClientBuffer {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.SocketIO.PingInterval != def.SocketIO.PingInterval {
		t.Fatalf("ping interval not round-tripped: %v", cfg.SocketIO.PingInterval)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("addr: \":9000\"\nlog_level: debug\nsender_policy: binding\nsocketio:\n  enabled: true\n  ping_interval: 10s\n  ping_timeout: 5s\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("MIIPAL_ADDR", ":9100")
	t.Setenv("MIIPAL_SOCKETIO_PING_TIMEOUT", "7s")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Addr != ":9100" {
		t.Fatalf("env should override file addr, got %s", cfg.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level from file, got %s", cfg.LogLevel)
	}
	if cfg.SenderPolicy != SenderPolicyBinding {
		t.Fatalf("expected binding sender policy, got %s", cfg.SenderPolicy)
	}
	if cfg.SocketIO.PingInterval != 10*time.Second {
		t.Fatalf("expected ping interval 10s, got %v", cfg.SocketIO.PingInterval)
	}
	if cfg.SocketIO.PingTimeout != 7*time.Second {
		t.Fatalf("expected ping timeout 7s from env, got %v", cfg.SocketIO.PingTimeout)
	}
}

func TestLoadRejectsUnknownSenderPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("sender_policy: whatever\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := Load(nil, path); err == nil {
		t.Fatal("expected validation error for unknown sender policy")
	}
}

func TestUpdateFromKeepsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":7000", LogLevel: "warn"})

	if cfg.Addr != ":7000" || cfg.LogLevel != "warn" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ShutdownTimeout != Default().ShutdownTimeout {
		t.Fatalf("zero override should not clear shutdown timeout")
	}
}
