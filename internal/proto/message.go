package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client-originated event names.
const (
	InboundTypeJoin        = "join"
	InboundTypeGetUsers    = "get-users"
	InboundTypeSendMessage = "send-message"
)

// Server-originated event names.
const (
	EventAddUser     = "add-user"
	EventRemoveUser  = "remove-user"
	EventUpdateUsers = "update-users"
	EventNewMessage  = "new-message"

	OutboundTypeEvent = "event"
)

// JoinData announces a display name.
type JoinData struct {
	Name string `json:"name"`
}

// SendMessageData addresses a message to every connection of Recipient.
type SendMessageData struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// UserData is the payload of add-user and remove-user.
type UserData struct {
	User string `json:"user"`
}

// UpdateUsersData answers get-users.
type UpdateUsersData struct {
	UserList []string `json:"user_list"`
}

// NewMessageData delivers a routed message.
type NewMessageData struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}
