// Package news injects themed market events into a room. Items are
// fire-and-forget: created from a catalogue, broadcast to clients, and
// allowed to perturb the price generator through their callbacks until
// they exhaust.
package news

import (
	"time"

	"github.com/google/uuid"
)

// Item is one live news event.
type Item struct {
	ID            string
	Title         string
	Description   string
	DurationTicks int
	TicksElapsed  int
	Timestamp     int64

	OnStart func()
	OnTick  func()
	OnEnd   func()

	exhausted bool
}

// Exhausted reports whether the item has retired.
func (it *Item) Exhausted() bool { return it.exhausted }

// NewItem builds an item with a fresh id and the current timestamp.
func NewItem(title, description string, durationTicks int) *Item {
	return &Item{
		ID:            uuid.NewString(),
		Title:         title,
		Description:   description,
		DurationTicks: durationTicks,
		Timestamp:     time.Now().UnixMilli(),
	}
}
