package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/miipal/internal/proto"
)

type rawOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

// run joins, asks for the user list and messages itself, then waits for the
// message to come back.
func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	name := flag.String("name", "tester", "display name to join with")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(typ string, v any) error {
		inbound := proto.Inbound{Type: typ}
		if v != nil {
			payload, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", typ, err)
			}
			inbound.Data = payload
		}
		if err := wsjson.Write(ctx, conn, inbound); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		return nil
	}

	if err := mustSend(proto.InboundTypeJoin, proto.JoinData{Name: *name}); err != nil {
		return err
	}
	if err := mustSend(proto.InboundTypeGetUsers, nil); err != nil {
		return err
	}
	if err := mustSend(proto.InboundTypeSendMessage, proto.SendMessageData{
		Sender:    *name,
		Recipient: *name,
		Message:   *text,
	}); err != nil {
		return err
	}

	for {
		var outbound rawOutbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s event=%s data=%s\n", outbound.Type, outbound.Event, outbound.Data)

		if outbound.Event != proto.EventNewMessage {
			continue
		}
		var msg proto.NewMessageData
		if err := json.Unmarshal(outbound.Data, &msg); err != nil {
			return fmt.Errorf("decode new-message: %w", err)
		}
		if msg.Sender == *name && msg.Message == *text {
			fmt.Println("Smoke test succeeded: message round-tripped")
			return nil
		}
	}
}
