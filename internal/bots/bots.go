// Package bots implements the algorithmic traders that populate a room.
// Each bot owns a trading account and a strategy; the simulator polls
// every bot once per market tick. A decision returning true signals that
// the bot submitted an order and the market price may have moved.
package bots

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/pitwars/pitwars/internal/exchange"
	"github.com/pitwars/pitwars/internal/orderbook/core"
	"github.com/pitwars/pitwars/internal/participant"
	"github.com/pitwars/pitwars/internal/pricing"
	"github.com/pitwars/pitwars/internal/prng"
)

// Context is the market state a strategy sees on one tick. Built once
// per tick by the simulator and shared by every bot.
type Context struct {
	Now       int64 // unix nanos
	Tick      int64
	Price     float64 // last trade price, falling back to the guide
	History   []float64
	Intrinsic float64
	Guide     float64
	Snapshot  exchange.Snapshot
}

// Strategy is the decision contract. Decide returns true when an order
// was submitted. PruneOrders lets a strategy retire its own stale
// intent before deciding.
type Strategy interface {
	Name() string
	Decide(b *Bot, ctx *Context) bool
	PruneOrders(b *Bot, ctx *Context)
}

// Config holds the knobs shared by all bot kinds.
type Config struct {
	OrderSize        int64
	CancelSpreadMult float64
}

// DefaultConfig returns the shared bot parameters.
func DefaultConfig() Config {
	return Config{
		OrderSize:        10,
		CancelSpreadMult: 3,
	}
}

// Bot is a trading participant driven by a strategy.
type Bot struct {
	*participant.Participant

	cfg      Config
	strategy Strategy
	log      *log.Logger
}

// NewBot creates a bot, funding its account and registering it with the
// exchange.
func NewBot(id string, cash float64, shares int64, book *exchange.Book, rnd *prng.Source, strategy Strategy, cfg Config, logger *log.Logger) *Bot {
	if cfg.OrderSize <= 0 {
		cfg.OrderSize = DefaultConfig().OrderSize
	}
	if cfg.CancelSpreadMult <= 0 {
		cfg.CancelSpreadMult = DefaultConfig().CancelSpreadMult
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Bot{
		Participant: participant.New(id, strategy.Name(), cash, shares, book, rnd),
		cfg:         cfg,
		strategy:    strategy,
		log:         logger.WithPrefix("bots"),
	}
}

// Strategy returns the bot's strategy.
func (b *Bot) Strategy() Strategy { return b.strategy }

// OrderSize returns the configured order size.
func (b *Bot) OrderSize() int64 { return b.cfg.OrderSize }

// CancelSpreadMult returns the stale-order spread multiplier.
func (b *Bot) CancelSpreadMult() float64 { return b.cfg.CancelSpreadMult }

// Poll runs one decision cycle. A panicking strategy is contained: the
// tick loop must survive any single bot failing.
func (b *Bot) Poll(ctx *Context) (moved bool) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("bot decision panicked", "bot", b.ID, "strategy", b.strategy.Name(), "err", r)
			moved = false
		}
	}()
	b.strategy.PruneOrders(b, ctx)
	return b.strategy.Decide(b, ctx)
}

// HasBuyAt reports whether the bot already has a live buy at price.
func (b *Bot) HasBuyAt(price float64) bool {
	return b.Book().HasOrderAt(b.ID, core.SideBuy, price)
}

// HasSellAt reports whether the bot already has a live sell at price.
func (b *Bot) HasSellAt(price float64) bool {
	return b.Book().HasOrderAt(b.ID, core.SideSell, price)
}

// HasBuyOrders reports whether the bot has any live buys.
func (b *Bot) HasBuyOrders() bool {
	return b.Book().OpenLevelCount(b.ID, core.SideBuy) > 0
}

// HasSellOrders reports whether the bot has any live sells.
func (b *Bot) HasSellOrders() bool {
	return b.Book().OpenLevelCount(b.ID, core.SideSell) > 0
}

// CancelStale cancels the bot's own orders on one side older than the
// threshold.
func (b *Bot) CancelStale(side core.Side, olderThan time.Duration, now int64) {
	cutoff := now - olderThan.Nanoseconds()
	for _, o := range b.Book().OpenOrders(b.ID, side) {
		if o.Time < cutoff {
			b.CancelOrder(o.ID)
		}
	}
}

// PriceBand computes an (up, down) pair around base, at least minStep
// away in each direction.
func PriceBand(base, minStep, upPct, downPct float64) (up, down float64) {
	up = base * (1 + upPct)
	if up-base < minStep {
		up = base + minStep
	}
	down = base * (1 - downPct)
	if base-down < minStep {
		down = base - minStep
	}
	return pricing.Round2(up), pricing.Round2(down)
}
