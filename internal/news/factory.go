package news

import (
	"github.com/charmbracelet/log"

	"github.com/pitwars/pitwars/internal/pricing"
	"github.com/pitwars/pitwars/internal/prng"
)

// Config holds the scheduling window for random news, in clock ticks.
type Config struct {
	Enabled      bool
	MinDelayTicks int
	MaxDelayTicks int
}

// DefaultConfig schedules a random event every 15 to 45 clock ticks.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		MinDelayTicks: 15,
		MaxDelayTicks: 45,
	}
}

// Factory owns the news lifecycle for one room: random scheduling,
// per-clock-tick advancement, and the archive of exhausted items. It is
// driven from the room loop via OnClockTick; the simulator's pause gate
// freezes both advancement and scheduling for free.
type Factory struct {
	cfg     Config
	gen     *pricing.Generator
	rnd     *prng.Source
	catalog []Descriptor

	active    []*Item
	archive   map[string]*Item
	untilNext int

	onPublish func(*Item)
	log       *log.Logger
}

// NewFactory wires a factory to a room's generator. onPublish receives
// every published item for broadcasting; it may be nil.
func NewFactory(cfg Config, gen *pricing.Generator, rnd *prng.Source, onPublish func(*Item), logger *log.Logger) *Factory {
	if cfg.MinDelayTicks <= 0 || cfg.MaxDelayTicks < cfg.MinDelayTicks {
		def := DefaultConfig()
		cfg.MinDelayTicks = def.MinDelayTicks
		cfg.MaxDelayTicks = def.MaxDelayTicks
	}
	if logger == nil {
		logger = log.Default()
	}
	f := &Factory{
		cfg:       cfg,
		gen:       gen,
		rnd:       rnd,
		catalog:   Catalog(),
		archive:   make(map[string]*Item),
		onPublish: onPublish,
		log:       logger.WithPrefix("news"),
	}
	f.scheduleNext()
	return f
}

func (f *Factory) scheduleNext() {
	span := f.cfg.MaxDelayTicks - f.cfg.MinDelayTicks + 1
	f.untilNext = f.cfg.MinDelayTicks + f.rnd.Intn(span)
}

// OnClockTick advances the factory by one clock tick: the random
// scheduler counts down and every live item steps forward.
func (f *Factory) OnClockTick() {
	if f.cfg.Enabled {
		f.untilNext--
		if f.untilNext <= 0 {
			f.fire()
			f.scheduleNext()
		}
	}
	f.advance()
}

// fire draws a uniform-random catalogue entry and publishes it.
func (f *Factory) fire() {
	d := f.catalog[f.rnd.Intn(len(f.catalog))]
	item := NewItem(d.Title, d.Description, d.DurationTicks)
	d.Bind(f.gen, f.rnd, item)
	f.Publish(item)
}

// Publish starts an item and hands it to the broadcaster. Powers inject
// their own items through here too.
func (f *Factory) Publish(item *Item) {
	if item.OnStart != nil {
		item.OnStart()
	}
	f.active = append(f.active, item)
	f.log.Info("news published", "title", item.Title, "duration", item.DurationTicks)
	if f.onPublish != nil {
		f.onPublish(item)
	}
}

// advance steps every live item; exhausted items retire to the archive.
func (f *Factory) advance() {
	remaining := f.active[:0]
	for _, item := range f.active {
		if item.TicksElapsed >= item.DurationTicks {
			f.retire(item)
			continue
		}
		item.TicksElapsed++
		if item.OnTick != nil {
			item.OnTick()
		}
		if item.TicksElapsed >= item.DurationTicks {
			f.retire(item)
			continue
		}
		remaining = append(remaining, item)
	}
	f.active = remaining
}

func (f *Factory) retire(item *Item) {
	if item.exhausted {
		return
	}
	item.exhausted = true
	if item.OnEnd != nil {
		item.OnEnd()
	}
	f.archive[item.ID] = item
}

// Active returns the live items.
func (f *Factory) Active() []*Item { return f.active }

// Archive returns the exhausted items by id.
func (f *Factory) Archive() map[string]*Item { return f.archive }

// Close retires every live item so their OnEnd callbacks run even when
// the room is torn down mid-event.
func (f *Factory) Close() {
	for _, item := range f.active {
		f.retire(item)
	}
	f.active = nil
}
