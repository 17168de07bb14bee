package core

// EventKind is a notification the core emits to connections.
type EventKind int

const (
	// EventAddUser announces a name that just came online.
	EventAddUser EventKind = iota
	// EventRemoveUser announces a name whose last connection went away.
	EventRemoveUser
	// EventUpdateUsers answers a list-users request.
	EventUpdateUsers
	// EventNewMessage carries a routed message to a recipient connection.
	EventNewMessage
)

func (k EventKind) String() string {
	switch k {
	case EventAddUser:
		return "add-user"
	case EventRemoveUser:
		return "remove-user"
	case EventUpdateUsers:
		return "update-users"
	case EventNewMessage:
		return "new-message"
	default:
		return "unknown"
	}
}

// Event is sent to connections to describe what happened in the system.
type Event struct {
	Kind   EventKind
	User   string   // add-user, remove-user
	Users  []string // update-users
	Sender string   // new-message
	Text   string   // new-message
}

// Scope selects which connections receive a delivery.
type Scope int

const (
	// ScopeConnection delivers to a single connection.
	ScopeConnection Scope = iota
	// ScopeGroup delivers to every connection bound to a name.
	ScopeGroup
	// ScopeAll delivers to every connected connection, joined or not.
	ScopeAll
)

// Delivery is an outbound event tagged with its delivery scope.
type Delivery struct {
	Scope Scope
	Event *Event

	// Target is set for ScopeConnection.
	Target ConnID
	// Group and Members are set for ScopeGroup. Members is resolved when the
	// delivery is produced so it matches the registry state at that moment.
	Group   string
	Members []ConnID
}
