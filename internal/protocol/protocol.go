// Package protocol defines the wire messages exchanged with clients.
// Every frame is a JSON object carrying a numeric "type" tag; the tags
// are a fixed contract with the web client.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MsgType is the numeric wire tag.
type MsgType int

const (
	MsgID           MsgType = -1
	MsgJoin         MsgType = 0
	MsgLeave        MsgType = 1
	MsgIsAdmin      MsgType = 2
	MsgTogglePause  MsgType = 3
	MsgChat         MsgType = 4
	MsgError        MsgType = 5
	MsgPing         MsgType = 6
	MsgPong         MsgType = 7
	MsgClock        MsgType = 8
	MsgRoomState    MsgType = 9
	MsgStockAction  MsgType = 10
	MsgStockMove    MsgType = 11
	MsgPortfolio    MsgType = 12
	MsgShock        MsgType = 13
	MsgNews         MsgType = 14
	MsgNotification MsgType = 15
	MsgClientState  MsgType = 16

	MsgAdminSettings MsgType = 30

	MsgGameConclusion MsgType = 60

	MsgPowerOffers    MsgType = 80
	MsgPowerSelect    MsgType = 81
	MsgPowerConsume   MsgType = 82
	MsgPowerInventory MsgType = 83

	MsgDebugPrices MsgType = 99
)

var ErrUnknownType = errors.New("unknown message type")

// envelope is the minimal decode to find the tag.
type envelope struct {
	Type MsgType `json:"type"`
}

// --- server → client payloads ---

type IDMsg struct {
	Type MsgType `json:"type"`
	ID   string  `json:"id"`
}

type JoinMsg struct {
	Type     MsgType `json:"type"`
	RoomID   string  `json:"roomId"`
	ID       string  `json:"id"`
	Username string  `json:"username"`
}

type LeaveMsg struct {
	Type   MsgType `json:"type"`
	RoomID string  `json:"roomId"`
	ID     string  `json:"id"`
}

type IsAdminMsg struct {
	Type MsgType `json:"type"`
}

type ErrorMsg struct {
	Type    MsgType `json:"type"`
	Message string  `json:"message"`
}

type ClockMsg struct {
	Type     MsgType `json:"type"`
	Value    int64   `json:"value"`
	TimeLeft int64   `json:"timeLeft"` // seconds
}

// ClientInfo is one participant entry inside ROOM_STATE.
type ClientInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

type RoomStateMsg struct {
	Type     MsgType      `json:"type"`
	RoomID   string       `json:"roomId"`
	Paused   bool         `json:"paused"`
	Started  bool         `json:"started"`
	Ended    bool         `json:"ended"`
	Settings GameSettings `json:"settings"`
	Clock    int64        `json:"clock"`
	Clients  []ClientInfo `json:"clients"`
	Price    float64      `json:"price"`
}

// StockMoveMsg carries the price plus full depth:
// [[p,q]... bids desc], [[p,q]... asks asc].
type StockMoveMsg struct {
	Type  MsgType         `json:"type"`
	Price float64         `json:"price"`
	Depth [2][][2]float64 `json:"depth"`
}

type PortfolioValue struct {
	Cash   float64  `json:"cash"`
	Shares int64    `json:"shares"`
	PnL    *float64 `json:"pnl,omitempty"`
}

type PortfolioMsg struct {
	Type  MsgType        `json:"type"`
	ID    string         `json:"id"`
	Value PortfolioValue `json:"value"`
}

type NewsMsg struct {
	Type          MsgType `json:"type"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Timestamp     int64   `json:"timestamp"`
	DurationTicks int     `json:"durationTicks"`
}

type NotificationMsg struct {
	Type        MsgType `json:"type"`
	Level       string  `json:"level"` // info|warning|error|success
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
}

type ClientStateMsg struct {
	Type     MsgType `json:"type"`
	Disabled bool    `json:"disabled"`
}

// ConclusionEntry is one participant's final standing.
type ConclusionEntry struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Cash   float64 `json:"cash"`
	Shares int64   `json:"shares"`
	PnL    float64 `json:"pnl"`
}

type GameConclusionMsg struct {
	Type         MsgType           `json:"type"`
	Players      []ConclusionEntry `json:"players"`
	Bots         []ConclusionEntry `json:"bots"`
	VolumeTraded float64           `json:"volumeTraded"`
	HighestPrice float64           `json:"highestPrice"`
	LowestPrice  float64           `json:"lowestPrice"`
}

// PowerOffer is one briefcase entry.
type PowerOffer struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Rarity        float64 `json:"rarity"`
	IsInstant     bool    `json:"isInstant"`
	DurationTicks int     `json:"durationTicks"`
}

type PowerOffersMsg struct {
	Type   MsgType      `json:"type"`
	Offers []PowerOffer `json:"offers"`
}

// InventoryPower is one stored power.
type InventoryPower struct {
	UUID          string `json:"uuid"`
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	DurationTicks int    `json:"durationTicks"`
}

type PowerInventoryMsg struct {
	Type   MsgType          `json:"type"`
	Powers []InventoryPower `json:"powers"`
}

type DebugPricesMsg struct {
	Type           MsgType `json:"type"`
	IntrinsicValue float64 `json:"intrinsicValue"`
	GuidePrice     float64 `json:"guidePrice"`
}

// --- client → server payloads ---

type PingMsg struct {
	Type MsgType `json:"type"`
}

type TogglePauseMsg struct {
	Type MsgType `json:"type"`
}

type ChatMsg struct {
	Type    MsgType `json:"type"`
	RoomID  string  `json:"roomId"`
	ID      string  `json:"id"`
	Content string  `json:"content"`
}

type StockActionMsg struct {
	Type      MsgType `json:"type"`
	Action    string  `json:"action"`    // BUY|SELL
	OrderType string  `json:"orderType"` // LIMIT|MARKET
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
}

type ShockMsg struct {
	Type   MsgType `json:"type"`
	Target string  `json:"target"` // intrinsic|market
}

type AdminSettingsMsg struct {
	Type     MsgType         `json:"type"`
	Settings SettingsPatch   `json:"settings"`
}

type PowerSelectMsg struct {
	Type  MsgType `json:"type"`
	Index int     `json:"index"`
}

type PowerConsumeMsg struct {
	Type MsgType `json:"type"`
	ID   string  `json:"id"` // power uuid
}

// GameSettings is the full settings object broadcast in ROOM_STATE.
type GameSettings struct {
	StartingCash     float64  `json:"startingCash"`
	OpeningPrice     float64  `json:"openingPrice"`
	Seed             int64    `json:"seed"`
	MarketVolatility float64  `json:"marketVolatility"` // percent
	GameDuration     int      `json:"gameDuration"`     // minutes
	EnableRandomNews bool     `json:"enableRandomNews"`
	Bots             int      `json:"bots"`
	TickerName       string   `json:"ticketName"`
	BotSelection     []string `json:"botSelection,omitempty"`
}

// SettingsPatch is a partial settings update; nil fields are untouched.
type SettingsPatch struct {
	StartingCash     *float64  `json:"startingCash,omitempty"`
	OpeningPrice     *float64  `json:"openingPrice,omitempty"`
	Seed             *int64    `json:"seed,omitempty"`
	MarketVolatility *float64  `json:"marketVolatility,omitempty"`
	GameDuration     *int      `json:"gameDuration,omitempty"`
	EnableRandomNews *bool     `json:"enableRandomNews,omitempty"`
	Bots             *int      `json:"bots,omitempty"`
	TickerName       *string   `json:"ticketName,omitempty"`
	BotSelection     *[]string `json:"botSelection,omitempty"`
}

// Decode parses an inbound frame into its typed message. Unknown tags
// and malformed frames return an error; callers drop them silently.
func Decode(data []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var (
		msg any
		dst any
	)
	switch env.Type {
	case MsgTogglePause:
		m := TogglePauseMsg{}
		dst, msg = &m, &m
	case MsgChat:
		m := ChatMsg{}
		dst, msg = &m, &m
	case MsgPing:
		m := PingMsg{Type: MsgPing}
		return &m, nil
	case MsgPong:
		m := PingMsg{Type: MsgPong}
		return &m, nil
	case MsgStockAction:
		m := StockActionMsg{}
		dst, msg = &m, &m
	case MsgShock:
		m := ShockMsg{}
		dst, msg = &m, &m
	case MsgAdminSettings:
		m := AdminSettingsMsg{}
		dst, msg = &m, &m
	case MsgPowerSelect:
		m := PowerSelectMsg{}
		dst, msg = &m, &m
	case MsgPowerConsume:
		m := PowerConsumeMsg{}
		dst, msg = &m, &m
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, env.Type)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return nil, fmt.Errorf("decode type %d: %w", env.Type, err)
	}
	return msg, nil
}

// Encode marshals an outbound message.
func Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}
