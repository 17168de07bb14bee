package socketio

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/miipal/internal/config"
	"github.com/vovakirdan/miipal/internal/core"
)

func startSocketIO(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()

	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := core.NewHub(core.HubOptions{})
	go hub.Run(ctx)

	logger := zerolog.Nop()
	srv := httptest.NewServer(NewServer(hub, &cfg, &logger))
	t.Cleanup(srv.Close)
	return srv
}

func dialSocketIO(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket.io/?EIO=4&transport=websocket"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	open := waitForPrefix(t, conn, "0{", 2*time.Second)
	if !strings.Contains(open, `"pingInterval"`) || !strings.Contains(open, `"upgrades":[]`) {
		t.Fatalf("unexpected open packet: %s", open)
	}

	write(t, conn, "40")
	_ = waitForPrefix(t, conn, `40{"sid":`, 2*time.Second)
	return conn
}

func write(t *testing.T, c *websocket.Conn, msg string) {
	t.Helper()
	if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage(%s): %v", msg, err)
	}
}

func waitForPrefix(t *testing.T, c *websocket.Conn, prefix string, timeout time.Duration) string {
	t.Helper()

	// A timed out gorilla read poisons the connection, so use one deadline for the whole wait.
	_ = c.SetReadDeadline(time.Now().Add(timeout))
	defer c.SetReadDeadline(time.Time{})

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", prefix, err)
		}
		msg := string(data)
		if msg == "2" {
			_ = c.WriteMessage(websocket.TextMessage, []byte("3"))
			continue
		}
		if strings.HasPrefix(msg, prefix) {
			return msg
		}
	}
}

// eventArg decodes the payload of a 42["name",{...}] packet.
func eventArg(t *testing.T, msg string, v any) {
	t.Helper()
	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimPrefix(msg, "42")), &arr); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}
	if len(arr) < 2 {
		t.Fatalf("event %s has no payload", msg)
	}
	if err := json.Unmarshal(arr[1], v); err != nil {
		t.Fatalf("decode payload %s: %v", arr[1], err)
	}
}

func TestHandshakeRejectsPolling(t *testing.T) {
	srv := startSocketIO(t, nil)

	resp, err := http.Get(srv.URL + "/socket.io/?EIO=4&transport=polling")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestJoinBroadcastAndListUsers(t *testing.T) {
	srv := startSocketIO(t, nil)

	alice := dialSocketIO(t, srv)
	bob := dialSocketIO(t, srv)

	write(t, alice, `42["join",{"name":"alice"}]`)

	for _, c := range []*websocket.Conn{alice, bob} {
		msg := waitForPrefix(t, c, `42["add-user"`, 2*time.Second)
		var data struct {
			User string `json:"user"`
		}
		eventArg(t, msg, &data)
		if data.User != "alice" {
			t.Fatalf("unexpected add-user payload: %s", msg)
		}
	}

	write(t, bob, `42["get-users"]`)
	msg := waitForPrefix(t, bob, `42["update-users"`, 2*time.Second)
	var list struct {
		UserList []string `json:"user_list"`
	}
	eventArg(t, msg, &list)
	if len(list.UserList) != 1 || list.UserList[0] != "alice" {
		t.Fatalf("unexpected user list: %v", list.UserList)
	}
}

func TestSendMessageAndDisconnect(t *testing.T) {
	srv := startSocketIO(t, nil)

	alice := dialSocketIO(t, srv)
	bob := dialSocketIO(t, srv)

	write(t, alice, `42["join",{"name":"alice"}]`)
	_ = waitForPrefix(t, bob, `42["add-user"`, 2*time.Second)
	write(t, bob, `42["join",{"name":"bob"}]`)
	_ = waitForPrefix(t, alice, `42["add-user",{"user":"bob"}]`, 2*time.Second)

	// Malformed and unknown packets are ignored without closing the socket.
	write(t, bob, `42not-json`)
	write(t, bob, `42["shout",{}]`)

	write(t, bob, `42["send-message",{"sender":"bob","recipient":"alice","message":"hi"}]`)
	msg := waitForPrefix(t, alice, `42["new-message"`, 2*time.Second)
	var data struct {
		Sender  string `json:"sender"`
		Message string `json:"message"`
	}
	eventArg(t, msg, &data)
	if data.Sender != "bob" || data.Message != "hi" {
		t.Fatalf("unexpected message: %s", msg)
	}

	_ = bob.Close()
	msg = waitForPrefix(t, alice, `42["remove-user"`, 2*time.Second)
	var gone struct {
		User string `json:"user"`
	}
	eventArg(t, msg, &gone)
	if gone.User != "bob" {
		t.Fatalf("unexpected remove-user: %s", msg)
	}
}

func TestInvalidNamespace(t *testing.T) {
	srv := startSocketIO(t, nil)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket.io/?EIO=4&transport=websocket"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	_ = waitForPrefix(t, conn, "0{", 2*time.Second)
	write(t, conn, "40/admin,")
	msg := waitForPrefix(t, conn, "44/admin,", 2*time.Second)
	if !strings.Contains(msg, "Invalid namespace") {
		t.Fatalf("unexpected connect error: %s", msg)
	}
}

func TestMissingPongClosesSocket(t *testing.T) {
	srv := startSocketIO(t, func(cfg *config.Config) {
		cfg.SocketIO.PingInterval = 50 * time.Millisecond
		cfg.SocketIO.PingTimeout = 50 * time.Millisecond
	})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket.io/?EIO=4&transport=websocket"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// Read without answering pings until the server gives up.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				t.Fatal("server kept the socket open without pongs")
			}
			return
		}
	}
}
