package tui

import (
	"encoding/json"
	"fmt"
	"net/url"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/pitwars/pitwars/internal/protocol"
)

// Messages the feed goroutine injects into the bubbletea program.
type (
	PriceMsg struct {
		Price float64
		Bids  [][2]float64
		Asks  [][2]float64
	}
	ClockMsg struct {
		Value    int64
		TimeLeft int64
	}
	NewsEntryMsg struct {
		Title       string
		Description string
		Timestamp   int64
	}
	NotificationEntryMsg struct {
		Level string
		Title string
	}
	RoomInfoMsg struct {
		RoomID  string
		Paused  bool
		Started bool
		Ended   bool
		Price   float64
		Players int
	}
	DisconnectedMsg struct{ Err error }
)

// Feed is the websocket spectator connection.
type Feed struct {
	conn *websocket.Conn
}

// Connect joins a room as a spectator.
func Connect(addr, roomID string) (*Feed, error) {
	u := url.URL{
		Scheme:   "ws",
		Host:     addr,
		Path:     "/ws",
		RawQuery: fmt.Sprintf("room=%s&spectator=true", url.QueryEscape(roomID)),
	}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}
	return &Feed{conn: conn}, nil
}

// Run pumps server frames into the program until the socket dies.
func (f *Feed) Run(p *tea.Program) {
	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			p.Send(DisconnectedMsg{Err: err})
			return
		}
		if msg := translate(data); msg != nil {
			p.Send(msg)
		}
	}
}

// Close drops the connection.
func (f *Feed) Close() {
	_ = f.conn.Close()
}

// translate maps a wire frame to a UI message; frames the spectator
// view does not render map to nil.
func translate(data []byte) tea.Msg {
	var env struct {
		Type protocol.MsgType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}

	switch env.Type {
	case protocol.MsgStockMove:
		var m protocol.StockMoveMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return nil
		}
		return PriceMsg{Price: m.Price, Bids: m.Depth[0], Asks: m.Depth[1]}

	case protocol.MsgClock:
		var m protocol.ClockMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return nil
		}
		return ClockMsg{Value: m.Value, TimeLeft: m.TimeLeft}

	case protocol.MsgNews:
		var m protocol.NewsMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return nil
		}
		return NewsEntryMsg{Title: m.Title, Description: m.Description, Timestamp: m.Timestamp}

	case protocol.MsgNotification:
		var m protocol.NotificationMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return nil
		}
		return NotificationEntryMsg{Level: m.Level, Title: m.Title}

	case protocol.MsgRoomState:
		var m protocol.RoomStateMsg
		if err := json.Unmarshal(data, &m); err != nil {
			return nil
		}
		return RoomInfoMsg{
			RoomID:  m.RoomID,
			Paused:  m.Paused,
			Started: m.Started,
			Ended:   m.Ended,
			Price:   m.Price,
			Players: len(m.Clients),
		}
	}
	return nil
}
