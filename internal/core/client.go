package core

import "sync"

// ConnID identifies one live transport connection.
type ConnID string

// Client is a transport connection as seen by the core layer.
// The transport writes to Commands and reads from Events; the hub owns the rest.
type Client struct {
	ID       ConnID
	Commands chan *Command
	Events   chan *Event

	closeOnce sync.Once
}

// NewClient constructs a client with channels of the given buffer size.
func NewClient(id ConnID, buffer int) *Client {
	if buffer <= 0 {
		buffer = 8
	}
	return &Client{
		ID:       id,
		Commands: make(chan *Command, buffer),
		Events:   make(chan *Event, buffer),
	}
}

// closeCommands ends the client's command stream. Safe to call more than once.
func (c *Client) closeCommands() {
	c.closeOnce.Do(func() {
		close(c.Commands)
	})
}
