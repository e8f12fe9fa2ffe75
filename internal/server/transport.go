package server

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/pitwars/pitwars/internal/protocol"
)

const sendBuffer = 256

// wsTransport adapts a websocket connection to room.Transport. Sends are
// hand-offs to a buffered channel so the room loop never blocks on a
// slow consumer; a full buffer drops the frame.
type wsTransport struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// Send encodes and queues one outbound message.
func (t *wsTransport) Send(msg any) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	select {
	case t.send <- data:
	default:
	}
	return nil
}

// Close shuts the outbound queue; the write pump closes the socket.
func (t *wsTransport) Close() {
	t.closeOnce.Do(func() { close(t.send) })
}

// writePump owns the socket's write side.
func (t *wsTransport) writePump() {
	defer t.conn.Close()
	for data := range t.send {
		if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
