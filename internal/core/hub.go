package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultInboxSize = 256
	journalQueueSize = 1024
	journalTimeout   = 2 * time.Second
)

// PresenceJournal records connection bindings as they come and go.
type PresenceJournal interface {
	RecordJoin(ctx context.Context, conn, name string, at time.Time) error
	RecordLeave(ctx context.Context, conn string, at time.Time) error
}

// Hub serializes every presence operation through one goroutine.
type Hub interface {
	// Run processes inbound work until ctx is cancelled.
	Run(ctx context.Context)
	// RegisterClient marks the client as connected and starts consuming its commands.
	RegisterClient(c *Client)
	// UnregisterClient ends the client's command stream; the hub then
	// processes a disconnect after any commands already queued.
	UnregisterClient(c *Client)
	// Online returns the names currently joined, sorted.
	Online(ctx context.Context) ([]string, error)
}

// HubOptions configures NewHub.
type HubOptions struct {
	Router    RouterOptions
	Journal   PresenceJournal
	Logger    *zerolog.Logger
	InboxSize int
}

type envelopeKind int

const (
	envelopeRegister envelopeKind = iota
	envelopeCommand
	envelopeOnline
)

type envelope struct {
	kind   envelopeKind
	client *Client
	cmd    *Command
	reply  chan []string
}

type journalRecord struct {
	change Change
	at     time.Time
}

type hub struct {
	router   *Router
	clients  map[ConnID]*Client
	journal  PresenceJournal
	journalQ chan journalRecord
	log      *zerolog.Logger

	inbox chan envelope
	done  chan struct{}
	now   func() time.Time
}

// NewHub creates a hub. Run must be started before clients are registered
// in large numbers, otherwise the inbox fills up and callers block.
func NewHub(opts HubOptions) Hub {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	size := opts.InboxSize
	if size <= 0 {
		size = defaultInboxSize
	}
	h := &hub{
		router:  NewRouter(opts.Router),
		clients: make(map[ConnID]*Client),
		journal: opts.Journal,
		log:     logger,
		inbox:   make(chan envelope, size),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	if h.journal != nil {
		h.journalQ = make(chan journalRecord, journalQueueSize)
	}
	return h
}

func (h *hub) Run(ctx context.Context) {
	stopJournal := h.startJournal()
	defer stopJournal()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			return
		case env := <-h.inbox:
			h.dispatch(env)
		}
	}
}

func (h *hub) RegisterClient(c *Client) {
	if !h.enqueue(context.Background(), envelope{kind: envelopeRegister, client: c}) {
		return
	}
	go h.pump(c)
}

func (h *hub) UnregisterClient(c *Client) {
	c.closeCommands()
}

func (h *hub) Online(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	if !h.enqueue(ctx, envelope{kind: envelopeOnline, reply: reply}) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrHubStopped
	}

	select {
	case names := <-reply:
		return names, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrHubStopped
	}
}

// pump forwards the client's commands into the inbox in order and follows
// them with a disconnect once the command stream is closed.
func (h *hub) pump(c *Client) {
	for cmd := range c.Commands {
		if cmd == nil {
			continue
		}
		if !h.enqueue(context.Background(), envelope{kind: envelopeCommand, client: c, cmd: cmd}) {
			return
		}
	}
	h.enqueue(context.Background(), envelope{
		kind:   envelopeCommand,
		client: c,
		cmd:    &Command{Kind: CommandDisconnect},
	})
}

func (h *hub) enqueue(ctx context.Context, env envelope) bool {
	select {
	case h.inbox <- env:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (h *hub) dispatch(env envelope) {
	switch env.kind {
	case envelopeRegister:
		h.clients[env.client.ID] = env.client
		h.log.Debug().Str("conn_id", string(env.client.ID)).Int("connected", len(h.clients)).Msg("client connected")
	case envelopeOnline:
		env.reply <- h.router.Registry().Names()
	case envelopeCommand:
		h.handleCommand(env.client, env.cmd)
	}
}

func (h *hub) handleCommand(c *Client, cmd *Command) {
	if cmd.Kind == CommandDisconnect {
		// Remaining connections only; the leaving one gets nothing.
		delete(h.clients, c.ID)
	} else if _, ok := h.clients[c.ID]; !ok {
		return
	}

	res := h.router.Handle(c.ID, cmd)
	if !res.Verdict.OK() {
		h.log.Debug().
			Str("conn_id", string(c.ID)).
			Str("command", cmd.Kind.String()).
			Str("reason", string(res.Verdict.Reason)).
			Strs("missing", cmd.Missing).
			Msg("command discarded")
	}

	h.record(res.Changes)

	for _, d := range res.Deliveries {
		h.deliver(d)
	}

	if cmd.Kind == CommandDisconnect {
		close(c.Events)
		h.log.Debug().Str("conn_id", string(c.ID)).Int("connected", len(h.clients)).Msg("client disconnected")
	}
}

func (h *hub) deliver(d Delivery) {
	switch d.Scope {
	case ScopeAll:
		for _, c := range h.clients {
			h.send(c, d.Event)
		}
	case ScopeConnection:
		if c, ok := h.clients[d.Target]; ok {
			h.send(c, d.Event)
		}
	case ScopeGroup:
		for _, id := range d.Members {
			if c, ok := h.clients[id]; ok {
				h.send(c, d.Event)
			}
		}
	}
}

func (h *hub) send(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		// Drop if slow consumer.
		h.log.Debug().Str("conn_id", string(c.ID)).Str("event", ev.Kind.String()).Msg("dropping event for slow client")
	}
}

// record queues binding changes for the journal writer. The hub never waits
// on storage; a full queue drops the record.
func (h *hub) record(changes []Change) {
	if h.journalQ == nil || len(changes) == 0 {
		return
	}

	at := h.now()
	for _, ch := range changes {
		select {
		case h.journalQ <- journalRecord{change: ch, at: at}:
		default:
			h.log.Warn().Str("conn_id", string(ch.Conn)).Str("name", ch.Name).Msg("presence journal queue full, dropping record")
		}
	}
}

// startJournal runs the journal writer and returns a func that flushes the
// queue and waits for it. Must be called from Run only.
func (h *hub) startJournal() func() {
	if h.journalQ == nil {
		return func() {}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for rec := range h.journalQ {
			h.writeJournal(rec)
		}
	}()

	return func() {
		close(h.journalQ)
		wg.Wait()
	}
}

func (h *hub) writeJournal(rec journalRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	var err error
	if rec.change.Joined {
		err = h.journal.RecordJoin(ctx, string(rec.change.Conn), rec.change.Name, rec.at)
	} else {
		err = h.journal.RecordLeave(ctx, string(rec.change.Conn), rec.at)
	}
	if err != nil {
		h.log.Warn().Err(err).Str("conn_id", string(rec.change.Conn)).Str("name", rec.change.Name).Msg("presence journal write failed")
	}
}
