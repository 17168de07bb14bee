package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

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
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	name := flag.String("name", "cli-user", "display name to join with")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.InboundTypeJoin, proto.JoinData{Name: *name}); err != nil {
		return err
	}
	if err := send(ctx, conn, proto.InboundTypeGetUsers, nil); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s\n", *addr, *name)
	fmt.Println("Send with '@name text', list with '/users'. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *name)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	inbound := proto.Inbound{Type: typ}
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		inbound.Data = payload
	}
	if err := wsjson.Write(ctx, conn, inbound); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound rawOutbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch outbound.Event {
		case proto.EventNewMessage:
			var evt proto.NewMessageData
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal new-message: %v", err)
				continue
			}
			fmt.Printf("%s: %s\n", evt.Sender, evt.Message)
		case proto.EventAddUser, proto.EventRemoveUser:
			var evt proto.UserData
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal %s: %v", outbound.Event, err)
				continue
			}
			verb := "is online"
			if outbound.Event == proto.EventRemoveUser {
				verb = "went offline"
			}
			fmt.Printf("* %s %s\n", evt.User, verb)
		case proto.EventUpdateUsers:
			var evt proto.UpdateUsersData
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal update-users: %v", err)
				continue
			}
			fmt.Printf("* online: %s\n", strings.Join(evt.UserList, ", "))
		default:
			fmt.Printf("event=%s data=%s\n", outbound.Event, outbound.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, self string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			if text == "/users" {
				if err := send(ctx, conn, proto.InboundTypeGetUsers, nil); err != nil {
					log.Print(err)
					return
				}
				continue
			}

			recipient, body, ok := strings.Cut(strings.TrimPrefix(text, "@"), " ")
			if !strings.HasPrefix(text, "@") || !ok || strings.TrimSpace(body) == "" {
				fmt.Println("usage: @name text")
				continue
			}
			err := send(ctx, conn, proto.InboundTypeSendMessage, proto.SendMessageData{
				Sender:    self,
				Recipient: recipient,
				Message:   strings.TrimSpace(body),
			})
			if err != nil {
				log.Print(err)
				return
			}
		}
	}
}
