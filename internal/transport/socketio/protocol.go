package socketio

import (
	"encoding/json"
	"errors"
	"strings"
)

// Engine.IO v4 packet types.
type enginePacketType byte

const (
	engineOpen    enginePacketType = '0'
	engineClose   enginePacketType = '1'
	enginePing    enginePacketType = '2'
	enginePong    enginePacketType = '3'
	engineMessage enginePacketType = '4'
)

// Socket.IO v5 packet types carried inside engine messages.
type socketPacketType byte

const (
	socketConnect      socketPacketType = '0'
	socketDisconnect   socketPacketType = '1'
	socketEvent        socketPacketType = '2'
	socketConnectError socketPacketType = '4'
)

const defaultNamespace = "/"

var (
	errEmptyPayload   = errors.New("empty payload")
	errNotEvent       = errors.New("not an event packet")
	errInvalidPayload = errors.New("invalid event payload")
	errMissingName    = errors.New("missing event name")
)

// openPacket is the Engine.IO handshake body.
type openPacket struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int64    `json:"pingInterval"`
	PingTimeout  int64    `json:"pingTimeout"`
	MaxPayload   int64    `json:"maxPayload"`
}

func parseOptionalNamespace(s string) (namespace string, rest string) {
	if !strings.HasPrefix(s, "/") {
		return defaultNamespace, s
	}
	comma := strings.IndexByte(s, ',')
	if comma == -1 {
		return s, ""
	}
	return s[:comma], s[comma+1:]
}

// skipAckID drops the optional ack id in front of an event payload. The
// relay never acknowledges events.
func skipAckID(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[i:]
}

type socketEventPacket struct {
	Namespace string
	Event     string
	Args      []json.RawMessage
}

func parseSocketEventPacket(payload string) (socketEventPacket, error) {
	if payload == "" {
		return socketEventPacket{}, errEmptyPayload
	}
	if payload[0] != byte(socketEvent) {
		return socketEventPacket{}, errNotEvent
	}

	ns, rest := parseOptionalNamespace(payload[1:])
	rest = skipAckID(rest)
	if !strings.HasPrefix(rest, "[") {
		return socketEventPacket{}, errInvalidPayload
	}

	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(rest), &arr); err != nil {
		return socketEventPacket{}, err
	}
	if len(arr) == 0 {
		return socketEventPacket{}, errMissingName
	}
	var eventName string
	if err := json.Unmarshal(arr[0], &eventName); err != nil {
		return socketEventPacket{}, errMissingName
	}

	return socketEventPacket{Namespace: ns, Event: eventName, Args: arr[1:]}, nil
}

// firstArg returns the first event argument or nil.
func (p socketEventPacket) firstArg() json.RawMessage {
	if len(p.Args) == 0 {
		return nil
	}
	return p.Args[0]
}

func writeNamespace(b *strings.Builder, namespace string) {
	if namespace != "" && namespace != defaultNamespace {
		b.WriteString(namespace)
		b.WriteByte(',')
	}
}

func buildSocketEventPacket(namespace string, event string, args ...any) (string, error) {
	arr := make([]any, 0, 1+len(args))
	arr = append(arr, event)
	arr = append(arr, args...)
	data, err := json.Marshal(arr)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteByte(byte(socketEvent))
	writeNamespace(&b, namespace)
	b.Write(data)
	return b.String(), nil
}

func buildSocketConnectPacket(namespace string, sid string) (string, error) {
	data, err := json.Marshal(map[string]string{"sid": sid})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteByte(byte(socketConnect))
	writeNamespace(&b, namespace)
	b.Write(data)
	return b.String(), nil
}

func buildSocketConnectErrorPacket(namespace string, msg string) (string, error) {
	data, err := json.Marshal(map[string]string{"message": msg})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteByte(byte(socketConnectError))
	writeNamespace(&b, namespace)
	b.Write(data)
	return b.String(), nil
}
