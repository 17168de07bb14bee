package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin binds the connection to a display name.
	CommandJoin CommandKind = iota
	// CommandListUsers asks for every online name except the caller's.
	CommandListUsers
	// CommandSendMessage routes a message to every connection of a name.
	CommandSendMessage
	// CommandDisconnect is generated by the transport when the channel closes.
	CommandDisconnect
)

func (k CommandKind) String() string {
	switch k {
	case CommandJoin:
		return "join"
	case CommandListUsers:
		return "get-users"
	case CommandSendMessage:
		return "send-message"
	case CommandDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a connection.
// Only the fields relevant to Kind are read.
type Command struct {
	Kind CommandKind

	// Join
	Name string

	// SendMessage. Empty strings are valid values; Missing names the
	// payload keys the client left out.
	Sender    string
	Recipient string
	Text      string
	Missing   []string
}
