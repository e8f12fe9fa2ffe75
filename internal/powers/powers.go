// Package powers implements the in-game abilities offered to players in
// briefcases. A power either fires instantly on selection or sits in the
// owner's inventory until consumed; timed powers then mutate simulator
// state for a duration and are guaranteed to clean up after themselves.
package powers

import (
	"github.com/google/uuid"

	"github.com/pitwars/pitwars/internal/news"
	"github.com/pitwars/pitwars/internal/pricing"
	"github.com/pitwars/pitwars/internal/prng"
)

// Type scopes who a power affects.
type Type string

const (
	TypeClient Type = "client"
	TypeAll    Type = "all"
	TypeMarket Type = "market"
	TypeOthers Type = "others"
)

// Descriptor is one catalogue entry. Rarity weights briefcase sampling
// inversely: common powers (low rarity) show up more often.
type Descriptor struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Rarity        float64 `json:"rarity"`
	Type          Type    `json:"type"`
	IsInstant     bool    `json:"isInstant"`
	Price         float64 `json:"price"`
	DurationTicks int     `json:"durationTicks"`
}

// Power is an instantiated descriptor owned by a client.
type Power struct {
	Descriptor
	UUID    string
	OwnerID string

	TicksElapsed int

	OnConsume func()
	OnTick    func()
	OnEnd     func()

	ended bool
}

func newPower(d Descriptor, ownerID string) *Power {
	return &Power{
		Descriptor: d,
		UUID:       uuid.NewString(),
		OwnerID:    ownerID,
	}
}

// Env is the set of hooks power effects mutate through. The room wires
// these at setup; effects never hold references into room internals.
type Env struct {
	Gen          *pricing.Generator
	Rnd          *prng.Source
	PublishNews  func(*news.Item)
	GrantCash    func(clientID string, amount float64)
	StartingCash func() float64

	// SetOthersTradingDisabled flips the trading gate on every client
	// except the initiator.
	SetOthersTradingDisabled func(initiatorID string, disabled bool)

	// Notify sends a notification; empty target means broadcast.
	Notify func(targetClientID, level, title, description string)
}
