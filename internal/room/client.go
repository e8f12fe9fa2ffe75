package room

import (
	"time"

	"github.com/pitwars/pitwars/internal/participant"
)

// Transport is the outbound half of a client connection. The server
// layer implements it over a websocket; tests implement it in memory.
// Send must not block the room loop.
type Transport interface {
	Send(msg any) error
	Close()
}

// Client is one human connection to a room. Spectators have no
// participant and cannot act.
type Client struct {
	ID        string
	Username  string
	Spectator bool
	IsAdmin   bool

	Participant *participant.Participant

	transport      Transport
	disconnectedAt time.Time // zero while connected
}

// Send delivers a message if the client is connected.
func (c *Client) Send(msg any) {
	if c.transport == nil || !c.disconnectedAt.IsZero() {
		return
	}
	_ = c.transport.Send(msg)
}

// Connected reports whether the client has a live transport.
func (c *Client) Connected() bool {
	return c.transport != nil && c.disconnectedAt.IsZero()
}
