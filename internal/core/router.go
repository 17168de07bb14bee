package core

import "unicode/utf8"

// SenderPolicy decides where the sender of a routed message comes from.
type SenderPolicy int

const (
	// SenderFromPayload uses the sender supplied by the client.
	SenderFromPayload SenderPolicy = iota
	// SenderFromBinding replaces it with the name the connection joined under.
	SenderFromBinding
)

// RouterOptions tunes validation and routing.
type RouterOptions struct {
	// MaxNameLength caps join names in runes. Zero means no limit.
	MaxNameLength int
	SenderPolicy  SenderPolicy
}

// Change records a binding created or destroyed while handling a command.
type Change struct {
	Conn   ConnID
	Name   string
	Joined bool
}

// Result is what the router produced for one command.
type Result struct {
	Verdict    Verdict
	Deliveries []Delivery
	Changes    []Change
}

// Router implements the join, list-users, send-message and disconnect
// protocol on top of a Registry. Like the registry it must be driven from a
// single goroutine.
type Router struct {
	registry *Registry
	opts     RouterOptions
}

// NewRouter builds a router over an empty registry.
func NewRouter(opts RouterOptions) *Router {
	return &Router{
		registry: NewRegistry(),
		opts:     opts,
	}
}

// Registry exposes the underlying registry for read-only queries.
func (r *Router) Registry() *Registry {
	return r.registry
}

// Validate checks the payload of cmd without looking at registry state.
func Validate(cmd *Command, opts RouterOptions) Verdict {
	if cmd == nil {
		return Reject(ReasonUnknown)
	}
	switch cmd.Kind {
	case CommandJoin:
		if cmd.Name == "" {
			return Reject(ReasonMissingName)
		}
		if opts.MaxNameLength > 0 && utf8.RuneCountInString(cmd.Name) > opts.MaxNameLength {
			return Reject(ReasonNameTooLong)
		}
		return Accept()
	case CommandSendMessage:
		if len(cmd.Missing) > 0 {
			return Reject(ReasonMissingField)
		}
		return Accept()
	case CommandListUsers, CommandDisconnect:
		return Accept()
	default:
		return Reject(ReasonUnknown)
	}
}

// Handle applies cmd issued by conn. A rejected command leaves the registry
// untouched and produces no deliveries.
func (r *Router) Handle(conn ConnID, cmd *Command) Result {
	if v := Validate(cmd, r.opts); !v.OK() {
		return Result{Verdict: v}
	}

	switch cmd.Kind {
	case CommandJoin:
		return r.join(conn, cmd.Name)
	case CommandListUsers:
		return r.listUsers(conn)
	case CommandSendMessage:
		return r.sendMessage(conn, cmd)
	case CommandDisconnect:
		return r.disconnect(conn)
	}
	return Result{Verdict: Reject(ReasonUnknown)}
}

func (r *Router) join(conn ConnID, name string) Result {
	var res Result

	if current, bound := r.registry.NameOf(conn); bound {
		if current == name {
			return Result{Verdict: Reject(ReasonAlreadyJoined)}
		}
		// Rebind under the new name.
		res = r.disconnect(conn)
	}

	bound, err := r.registry.Bind(conn, name)
	if err != nil {
		// Validate and the rebind above rule both errors out.
		return Result{Verdict: Reject(ReasonAlreadyJoined)}
	}

	res.Changes = append(res.Changes, Change{Conn: conn, Name: name, Joined: true})
	if bound.First {
		res.Deliveries = append(res.Deliveries, Delivery{
			Scope: ScopeAll,
			Event: &Event{Kind: EventAddUser, User: name},
		})
	}
	return res
}

func (r *Router) listUsers(conn ConnID) Result {
	return Result{
		Deliveries: []Delivery{{
			Scope:  ScopeConnection,
			Target: conn,
			Event:  &Event{Kind: EventUpdateUsers, Users: r.registry.AllNamesExcept(conn)},
		}},
	}
}

func (r *Router) sendMessage(conn ConnID, cmd *Command) Result {
	bound, ok := r.registry.NameOf(conn)
	if !ok {
		return Result{Verdict: Reject(ReasonNotJoined)}
	}

	sender := cmd.Sender
	if r.opts.SenderPolicy == SenderFromBinding {
		sender = bound
	}

	members := r.registry.ConnectionsFor(cmd.Recipient)
	if len(members) == 0 {
		// Recipient offline: dropped without telling the sender.
		return Result{}
	}

	return Result{
		Deliveries: []Delivery{{
			Scope:   ScopeGroup,
			Group:   cmd.Recipient,
			Members: members,
			Event:   &Event{Kind: EventNewMessage, Sender: sender, Text: cmd.Text},
		}},
	}
}

func (r *Router) disconnect(conn ConnID) Result {
	freed, ok := r.registry.Unbind(conn)
	if !ok {
		return Result{}
	}

	res := Result{
		Changes: []Change{{Conn: conn, Name: freed.Name}},
	}
	if freed.Last {
		res.Deliveries = append(res.Deliveries, Delivery{
			Scope: ScopeAll,
			Event: &Event{Kind: EventRemoveUser, User: freed.Name},
		})
	}
	return res
}
