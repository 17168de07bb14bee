package socketio

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/miipal/internal/config"
	"github.com/vovakirdan/miipal/internal/core"
	"github.com/vovakirdan/miipal/internal/proto"
	"github.com/vovakirdan/miipal/internal/transport/guard"
)

const (
	writeTimeout          = 10 * time.Second
	defaultMaxPayload     = int64(1000000)
	handshakeErrTransport = 0
)

// Server speaks the websocket flavour of Engine.IO v4 / Socket.IO v5 on the
// default namespace and bridges every socket to a core.Client.
type Server struct {
	hub core.Hub
	cfg *config.Config
	log *zerolog.Logger

	upgrader websocket.Upgrader
}

// NewServer builds a Socket.IO handler.
func NewServer(hub core.Hub, cfg *config.Config, logger *zerolog.Logger) *Server {
	return &Server{
		hub: hub,
		cfg: cfg,
		log: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: guard.CheckOrigin(cfg.AllowedOrigins),
		},
	}
}

func (s *Server) maxPayload() int64 {
	if s.cfg.MaxMessageBytes > 0 {
		return s.cfg.MaxMessageBytes
	}
	return defaultMaxPayload
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("EIO") != "4" || q.Get("transport") != "websocket" {
		// Long-polling is not offered; clients must connect with transports: ["websocket"].
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": handshakeErrTransport, "message": "Transport unknown"})
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("socket.io upgrade failed")
		return
	}
	ws.SetReadLimit(s.maxPayload())

	c := newConn(ws)
	log := s.log.With().Str("sid", c.sid).Str("transport", "socket.io").Logger()
	c.log = &log

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer s.release(c)

	open, err := json.Marshal(openPacket{
		SID:          c.sid,
		Upgrades:     []string{},
		PingInterval: s.cfg.SocketIO.PingInterval.Milliseconds(),
		PingTimeout:  s.cfg.SocketIO.PingTimeout.Milliseconds(),
		MaxPayload:   s.maxPayload(),
	})
	if err != nil {
		return
	}
	if err := c.writeText(string(engineOpen) + string(open)); err != nil {
		return
	}

	go c.heartbeat(ctx, s.cfg.SocketIO.PingInterval, s.cfg.SocketIO.PingTimeout)

	limiter := guard.NewRateLimiter(s.cfg.RateLimitPerMinute)
	c.readLoop(func(msg string) {
		s.handleMessage(ctx, c, limiter, msg)
	})
}

// release closes the socket and hands the disconnect to the hub. It runs on
// the read goroutine after the read loop returned, so no command can follow.
func (s *Server) release(c *conn) {
	c.close()
	if c.client != nil {
		s.hub.UnregisterClient(c.client)
	}
	c.log.Debug().Msg("socket.io disconnected")
}

func (s *Server) handleMessage(ctx context.Context, c *conn, limiter *guard.RateLimiter, msg string) {
	if msg == "" {
		return
	}

	switch enginePacketType(msg[0]) {
	case enginePong:
		c.markPong()
	case engineMessage:
		s.handleSocketPayload(ctx, c, limiter, msg[1:])
	case engineClose:
		c.close()
	default:
		return
	}
}

func (s *Server) handleSocketPayload(ctx context.Context, c *conn, limiter *guard.RateLimiter, payload string) {
	if payload == "" {
		return
	}

	switch socketPacketType(payload[0]) {
	case socketConnect:
		s.handleConnect(ctx, c, payload)
	case socketDisconnect:
		c.close()
	case socketEvent:
		if !limiter.Allow() {
			c.log.Debug().Msg("rate limit exceeded, discarding event")
			return
		}
		s.handleEvent(c, payload)
	default:
		return
	}
}

func (s *Server) handleConnect(ctx context.Context, c *conn, payload string) {
	ns, _ := parseOptionalNamespace(payload[1:])
	if ns != defaultNamespace {
		if packet, err := buildSocketConnectErrorPacket(ns, "Invalid namespace"); err == nil {
			_ = c.writeText(string(engineMessage) + packet)
		}
		return
	}
	if c.connected.Load() {
		return
	}

	// The socket id doubles as the core connection identity.
	socketID := uuid.NewString()
	c.client = core.NewClient(core.ConnID(socketID), s.cfg.ClientBuffer)
	c.connected.Store(true)

	packet, err := buildSocketConnectPacket(defaultNamespace, socketID)
	if err != nil {
		return
	}
	// Acknowledge before any broadcast can reach this socket.
	if err := c.writeText(string(engineMessage) + packet); err != nil {
		return
	}

	s.hub.RegisterClient(c.client)
	go s.writeLoop(ctx, c)

	c.log.Debug().Str("conn_id", socketID).Msg("socket.io namespace connected")
}

func (s *Server) handleEvent(c *conn, payload string) {
	if !c.connected.Load() {
		return
	}

	pkt, err := parseSocketEventPacket(payload)
	if err != nil {
		c.log.Debug().Err(err).Msg("discarding malformed event")
		return
	}
	if pkt.Namespace != defaultNamespace {
		return
	}

	cmd, err := proto.DecodeCommand(pkt.Event, pkt.firstArg())
	if err != nil {
		c.log.Debug().Err(err).Str("event", pkt.Event).Msg("discarding event")
		return
	}

	// The read loop also carries pongs, so it never waits on the hub.
	select {
	case c.client.Commands <- cmd:
	default:
		c.log.Debug().Str("event", pkt.Event).Msg("command queue full, dropping event")
	}
}

func (s *Server) writeLoop(ctx context.Context, c *conn) {
	for {
		select {
		case ev, ok := <-c.client.Events:
			if !ok {
				return
			}
			name, data := proto.EncodeEvent(ev)
			packet, err := buildSocketEventPacket(defaultNamespace, name, data)
			if err != nil {
				c.log.Error().Err(err).Str("event", name).Msg("encode socket.io event")
				continue
			}
			if err := c.writeText(string(engineMessage) + packet); err != nil {
				// Closing makes the read loop return, which releases the client.
				c.close()
			}
		case <-ctx.Done():
			return
		}
	}
}

type conn struct {
	ws  *websocket.Conn
	sid string
	log *zerolog.Logger

	connected atomic.Bool
	client    *core.Client

	sendMu sync.Mutex
	pong   chan struct{}

	closed atomic.Bool
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{
		ws:   ws,
		sid:  uuid.NewString(),
		pong: make(chan struct{}, 1),
	}
}

func (c *conn) close() {
	if c.closed.Swap(true) {
		return
	}
	_ = c.ws.Close()
}

func (c *conn) writeText(msg string) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (c *conn) readLoop(onMessage func(string)) {
	defer c.close()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		onMessage(string(data))
	}
}

// heartbeat sends an engine ping every interval and closes the socket when
// the pong does not arrive within timeout.
func (c *conn) heartbeat(ctx context.Context, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if c.closed.Load() {
			return
		}
		// Drop a stale pong from an earlier round.
		select {
		case <-c.pong:
		default:
		}
		if err := c.writeText(string(enginePing)); err != nil {
			c.close()
			return
		}

		timer := time.NewTimer(timeout)
		select {
		case <-c.pong:
			timer.Stop()
		case <-timer.C:
			c.log.Debug().Dur("timeout", timeout).Msg("socket.io pong timeout")
			c.close()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (c *conn) markPong() {
	select {
	case c.pong <- struct{}{}:
	default:
	}
}
