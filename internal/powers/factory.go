package powers

import (
	"errors"

	"github.com/charmbracelet/log"

	"github.com/pitwars/pitwars/internal/prng"
)

var (
	ErrNoOffer      = errors.New("no briefcase offer pending")
	ErrBadSelection = errors.New("briefcase selection out of range")
	ErrNotInInventory = errors.New("power not in inventory")
)

// Config holds the briefcase schedule, in clock ticks.
type Config struct {
	GameDurationTicks int
	MaxBriefcases     int
	MinGapTicks       int
	EndMarginTicks    int
	OfferSize         int
}

// DefaultConfig offers up to 8 briefcases of 3 powers, at least 10 s
// apart and ending 10 s before the game does.
func DefaultConfig() Config {
	return Config{
		MaxBriefcases:  8,
		MinGapTicks:    10,
		EndMarginTicks: 10,
		OfferSize:      3,
	}
}

// Factory owns the power lifecycle for one room: briefcase offers,
// inventories, and active timed effects. Driven from the room loop via
// OnClockTick.
type Factory struct {
	cfg     Config
	env     Env
	rnd     *prng.Source
	catalog []Descriptor

	offerAt   []int
	nextOffer int
	clock     int

	pending     map[string][]Descriptor // clientID -> current briefcase
	inventories map[string][]*Power
	active      []*Power

	listClients func() []string
	onOffer     func(clientID string, offers []Descriptor)

	log *log.Logger
}

// NewFactory builds a factory. listClients enumerates the clients to
// offer briefcases to; onOffer delivers each briefcase for broadcast.
func NewFactory(cfg Config, env Env, rnd *prng.Source, listClients func() []string, onOffer func(string, []Descriptor), logger *log.Logger) *Factory {
	def := DefaultConfig()
	if cfg.MaxBriefcases <= 0 {
		cfg.MaxBriefcases = def.MaxBriefcases
	}
	if cfg.MinGapTicks <= 0 {
		cfg.MinGapTicks = def.MinGapTicks
	}
	if cfg.EndMarginTicks <= 0 {
		cfg.EndMarginTicks = def.EndMarginTicks
	}
	if cfg.OfferSize <= 0 {
		cfg.OfferSize = def.OfferSize
	}
	if logger == nil {
		logger = log.Default()
	}

	f := &Factory{
		cfg:         cfg,
		env:         env,
		rnd:         rnd,
		catalog:     Catalog(),
		pending:     make(map[string][]Descriptor),
		inventories: make(map[string][]*Power),
		listClients: listClients,
		onOffer:     onOffer,
		log:         logger.WithPrefix("powers"),
	}
	f.offerAt = briefcaseSchedule(cfg, rnd)
	return f
}

// briefcaseSchedule picks up to MaxBriefcases tick offsets, spaced at
// least MinGapTicks apart and ending EndMarginTicks before game end.
func briefcaseSchedule(cfg Config, rnd *prng.Source) []int {
	last := cfg.GameDurationTicks - cfg.EndMarginTicks
	if last <= cfg.MinGapTicks {
		return nil
	}
	var out []int
	at := cfg.MinGapTicks
	for len(out) < cfg.MaxBriefcases && at <= last {
		out = append(out, at)
		gap := cfg.MinGapTicks + rnd.Intn(cfg.MinGapTicks+1)
		at += gap
	}
	return out
}

// OnClockTick advances the briefcase schedule and every active power.
func (f *Factory) OnClockTick() {
	f.clock++

	for f.nextOffer < len(f.offerAt) && f.clock >= f.offerAt[f.nextOffer] {
		f.nextOffer++
		f.offerBriefcases()
	}

	f.advance()
}

func (f *Factory) offerBriefcases() {
	if f.listClients == nil {
		return
	}
	for _, clientID := range f.listClients() {
		offers := f.SampleOffers()
		f.pending[clientID] = offers
		if f.onOffer != nil {
			f.onOffer(clientID, offers)
		}
	}
}

// SampleOffers draws OfferSize distinct descriptors, weighted by
// 1/rarity, without replacement.
func (f *Factory) SampleOffers() []Descriptor {
	remaining := make([]Descriptor, len(f.catalog))
	copy(remaining, f.catalog)

	k := f.cfg.OfferSize
	if k > len(remaining) {
		k = len(remaining)
	}

	out := make([]Descriptor, 0, k)
	for len(out) < k {
		var total float64
		for _, d := range remaining {
			total += 1 / d.Rarity
		}
		r := f.rnd.Float64() * total
		idx := len(remaining) - 1
		for i, d := range remaining {
			r -= 1 / d.Rarity
			if r <= 0 {
				idx = i
				break
			}
		}
		out = append(out, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return out
}

// Select resolves a client's briefcase pick. Instant powers fire
// immediately and are discarded; the rest join the inventory.
func (f *Factory) Select(clientID string, index int) (*Power, error) {
	offers, ok := f.pending[clientID]
	if !ok {
		return nil, ErrNoOffer
	}
	if index < 0 || index >= len(offers) {
		return nil, ErrBadSelection
	}
	delete(f.pending, clientID)

	p := newPower(offers[index], clientID)
	if err := bind(p, f.env); err != nil {
		return nil, err
	}

	if p.IsInstant {
		f.consume(p)
		return p, nil
	}
	f.inventories[clientID] = append(f.inventories[clientID], p)
	return p, nil
}

// Consume fires a stored power by uuid.
func (f *Factory) Consume(clientID, uuid string) (*Power, error) {
	inv := f.inventories[clientID]
	for i, p := range inv {
		if p.UUID != uuid {
			continue
		}
		f.inventories[clientID] = append(inv[:i], inv[i+1:]...)
		f.consume(p)
		return p, nil
	}
	return nil, ErrNotInInventory
}

func (f *Factory) consume(p *Power) {
	f.log.Info("power consumed", "power", p.ID, "owner", p.OwnerID)
	if p.OnConsume != nil {
		p.OnConsume()
	}
	if p.DurationTicks > 0 {
		f.active = append(f.active, p)
	} else {
		f.end(p)
	}
}

// advance steps active powers; exhausted ones end exactly once.
func (f *Factory) advance() {
	remaining := f.active[:0]
	for _, p := range f.active {
		p.TicksElapsed++
		if p.OnTick != nil {
			p.OnTick()
		}
		if p.TicksElapsed >= p.DurationTicks {
			f.end(p)
			continue
		}
		remaining = append(remaining, p)
	}
	f.active = remaining
}

func (f *Factory) end(p *Power) {
	if p.ended {
		return
	}
	p.ended = true
	if p.OnEnd != nil {
		p.OnEnd()
	}
}

// Inventory returns a client's stored powers.
func (f *Factory) Inventory(clientID string) []*Power {
	return f.inventories[clientID]
}

// Active returns the running timed powers.
func (f *Factory) Active() []*Power { return f.active }

// PendingOffer returns a client's open briefcase, if any.
func (f *Factory) PendingOffer(clientID string) ([]Descriptor, bool) {
	offers, ok := f.pending[clientID]
	return offers, ok
}

// OfferSchedule returns the briefcase tick offsets.
func (f *Factory) OfferSchedule() []int { return f.offerAt }

// Close ends every active power so restoration effects (volatility,
// trading gates) run even when the room is disposed mid-power.
func (f *Factory) Close() {
	for _, p := range f.active {
		f.end(p)
	}
	f.active = nil
}
