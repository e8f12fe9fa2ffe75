// Package sim drives a room's market forward. The simulator owns the
// price generator, the exchange, and the bots; the owning room calls
// StepClock and StepTick from its single loop goroutine, so none of the
// state here needs locking.
package sim

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/pitwars/pitwars/internal/bots"
	"github.com/pitwars/pitwars/internal/exchange"
	"github.com/pitwars/pitwars/internal/pricing"
)

// Config holds the scheduling parameters for a simulator.
type Config struct {
	TickInterval   time.Duration
	ClockInterval  time.Duration
	GameDuration   time.Duration
	DriftPct       float64
	DriftSegments  int
	DriftMinGap    time.Duration
	DriftEndMargin time.Duration
}

// DefaultConfig returns the standard cadence: 200 ms market ticks under
// a 1 s clock.
func DefaultConfig() Config {
	return Config{
		TickInterval:   200 * time.Millisecond,
		ClockInterval:  time.Second,
		GameDuration:   5 * time.Minute,
		DriftPct:       0.05,
		DriftSegments:  10,
		DriftMinGap:    8 * time.Second,
		DriftEndMargin: 8 * time.Second,
	}
}

// Callbacks are the simulator's observable hooks. All of them fire on
// the owning room's loop goroutine.
type Callbacks struct {
	OnPrice       func(price float64)
	OnDebugPrices func(intrinsic, guide float64)
	OnClockTick   func(clock int64, timeLeft time.Duration)
	OnEnd         func()
}

// Simulator runs one room's market.
type Simulator struct {
	cfg  Config
	gen  *pricing.Generator
	book *exchange.Book
	bots []*bots.Bot
	cb   Callbacks

	clockObs *observers

	paused    bool
	ended     bool
	clock     int64
	totalTime time.Duration
	tickCount int64
	lastPrice float64

	driftAt   []time.Duration
	nextDrift int

	log *log.Logger
}

// New creates a paused simulator.
func New(cfg Config, gen *pricing.Generator, book *exchange.Book, botList []*bots.Bot, cb Callbacks, logger *log.Logger) *Simulator {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	if cfg.ClockInterval <= 0 {
		cfg.ClockInterval = DefaultConfig().ClockInterval
	}
	if cfg.GameDuration <= 0 {
		cfg.GameDuration = DefaultConfig().GameDuration
	}
	if logger == nil {
		logger = log.Default()
	}

	s := &Simulator{
		cfg:      cfg,
		gen:      gen,
		book:     book,
		bots:     botList,
		cb:       cb,
		clockObs: newObservers(),
		paused:   true,
		log:      logger.WithPrefix("sim"),
	}
	s.driftAt = driftSchedule(cfg)
	return s
}

// Config returns the simulator's scheduling parameters.
func (s *Simulator) Config() Config { return s.cfg }

// driftSchedule precomputes the offsets at which the intrinsic value
// drifts: the game split into segments at least DriftMinGap apart,
// stopping DriftEndMargin before the end.
func driftSchedule(cfg Config) []time.Duration {
	if cfg.DriftSegments <= 0 {
		return nil
	}
	seg := cfg.GameDuration / time.Duration(cfg.DriftSegments)
	if seg < cfg.DriftMinGap {
		seg = cfg.DriftMinGap
	}
	var out []time.Duration
	for at := seg; at <= cfg.GameDuration-cfg.DriftEndMargin; at += seg {
		out = append(out, at)
	}
	return out
}

// StepClock advances coarse game time: observers, drift schedule,
// end-of-game detection. A no-op while paused.
func (s *Simulator) StepClock(now time.Time) {
	if s.paused || s.ended {
		return
	}
	s.clock++
	s.totalTime += s.cfg.ClockInterval

	s.clockObs.notify()

	if s.cb.OnClockTick != nil {
		s.cb.OnClockTick(s.clock, s.TimeLeft())
	}

	for s.nextDrift < len(s.driftAt) && s.totalTime >= s.driftAt[s.nextDrift] {
		s.gen.DriftIntrinsic(s.cfg.DriftPct)
		s.nextDrift++
		s.log.Debug("intrinsic drift applied", "at", s.totalTime)
	}

	if s.totalTime >= s.cfg.GameDuration {
		s.paused = true
		s.ended = true
		if s.cb.OnEnd != nil {
			s.cb.OnEnd()
		}
	}
}

// StepTick advances the market: new prices, then every bot in stable
// order against a snapshot refreshed per tick. A no-op while paused.
func (s *Simulator) StepTick(now time.Time) {
	if s.paused || s.ended {
		return
	}
	s.tickCount++

	intrinsic, guide := s.gen.Tick()
	if s.cb.OnDebugPrices != nil {
		s.cb.OnDebugPrices(intrinsic, guide)
	}

	ctx := &bots.Context{
		Now:       now.UnixNano(),
		Tick:      s.tickCount,
		Price:     s.MarketPrice(),
		History:   s.gen.History(),
		Intrinsic: intrinsic,
		Guide:     guide,
		Snapshot:  s.book.Snapshot(),
	}

	for _, b := range s.bots {
		b.Poll(ctx)
	}

	if price := s.book.LastTradePrice(); price != 0 && price != s.lastPrice {
		s.lastPrice = price
		if s.cb.OnPrice != nil {
			s.cb.OnPrice(price)
		}
	}
}

// SubscribeClock registers a per-clock-tick observer (news and power
// factories). Returns the id for UnsubscribeClock.
func (s *Simulator) SubscribeClock(fn func()) int {
	return s.clockObs.subscribe(fn)
}

// UnsubscribeClock removes a clock observer.
func (s *Simulator) UnsubscribeClock(id int) {
	s.clockObs.unsubscribe(id)
}

// SetPaused flips the pause gate. Both step functions early-return
// while paused.
func (s *Simulator) SetPaused(paused bool) { s.paused = paused }

// Paused reports the pause gate.
func (s *Simulator) Paused() bool { return s.paused }

// Ended reports whether the game duration elapsed.
func (s *Simulator) Ended() bool { return s.ended }

// Clock returns the elapsed whole clock ticks.
func (s *Simulator) Clock() int64 { return s.clock }

// TimeLeft returns the remaining game time.
func (s *Simulator) TimeLeft() time.Duration {
	left := s.cfg.GameDuration - s.totalTime
	if left < 0 {
		return 0
	}
	return left
}

// MarketPrice returns the last trade price, falling back to the guide
// before the first trade.
func (s *Simulator) MarketPrice() float64 {
	if p := s.book.LastTradePrice(); p != 0 {
		return p
	}
	return s.gen.Guide()
}

// Generator returns the simulator's price generator.
func (s *Simulator) Generator() *pricing.Generator { return s.gen }

// Book returns the simulator's exchange.
func (s *Simulator) Book() *exchange.Book { return s.book }

// Bots returns the simulator's bots.
func (s *Simulator) Bots() []*bots.Bot { return s.bots }
