package proto

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vovakirdan/miipal/internal/core"
)

// ErrUnknownEvent is returned for event names outside the protocol.
var ErrUnknownEvent = errors.New("unknown event")

// DecodeCommand turns a named client event and its JSON payload into a core
// command. A missing join name decodes to an empty string. Absent
// send-message keys are listed in Command.Missing; core validation decides
// what to do with them.
func DecodeCommand(event string, data json.RawMessage) (*core.Command, error) {
	switch event {
	case InboundTypeJoin:
		var join JoinData
		if err := decodeData(data, &join); err != nil {
			return nil, fmt.Errorf("decode join: %w", err)
		}
		return &core.Command{Kind: core.CommandJoin, Name: join.Name}, nil
	case InboundTypeGetUsers:
		return &core.Command{Kind: core.CommandListUsers}, nil
	case InboundTypeSendMessage:
		var msg sendMessagePayload
		if err := decodeData(data, &msg); err != nil {
			return nil, fmt.Errorf("decode send-message: %w", err)
		}
		cmd := &core.Command{Kind: core.CommandSendMessage}
		cmd.Sender = field(msg.Sender, "sender", &cmd.Missing)
		cmd.Recipient = field(msg.Recipient, "recipient", &cmd.Missing)
		cmd.Text = field(msg.Message, "message", &cmd.Missing)
		return cmd, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
}

// sendMessagePayload tells an absent key (or null) apart from "".
type sendMessagePayload struct {
	Sender    *string `json:"sender"`
	Recipient *string `json:"recipient"`
	Message   *string `json:"message"`
}

func field(v *string, key string, missing *[]string) string {
	if v == nil {
		*missing = append(*missing, key)
		return ""
	}
	return *v
}

// decodeData tolerates an absent payload and treats it as an empty object.
func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

// EncodeEvent returns the wire name and payload of a core event.
func EncodeEvent(ev *core.Event) (string, any) {
	switch ev.Kind {
	case core.EventAddUser:
		return EventAddUser, UserData{User: ev.User}
	case core.EventRemoveUser:
		return EventRemoveUser, UserData{User: ev.User}
	case core.EventUpdateUsers:
		users := ev.Users
		if users == nil {
			users = []string{}
		}
		return EventUpdateUsers, UpdateUsersData{UserList: users}
	case core.EventNewMessage:
		return EventNewMessage, NewMessageData{Sender: ev.Sender, Message: ev.Text}
	default:
		return ev.Kind.String(), nil
	}
}
