package bots

import (
	"time"

	"github.com/pitwars/pitwars/internal/orderbook/core"
	"github.com/pitwars/pitwars/internal/pricing"
)

// SpreadConfig tunes the spread trader.
type SpreadConfig struct {
	MinSpreadPct float64       // only quote when spread/current exceeds this
	InsideRatio  float64       // how far inside the spread to quote
	OrderRefresh time.Duration // own orders are refreshed at this cadence
}

func DefaultSpreadConfig() SpreadConfig {
	return SpreadConfig{
		MinSpreadPct: 0.01,
		InsideRatio:  0.3,
		OrderRefresh: 3 * time.Second,
	}
}

// SpreadStrategy captures wide spreads by quoting inside both best
// prices at once.
type SpreadStrategy struct {
	cfg SpreadConfig
}

func NewSpreadStrategy(cfg SpreadConfig) *SpreadStrategy {
	if cfg.MinSpreadPct <= 0 {
		cfg = DefaultSpreadConfig()
	}
	return &SpreadStrategy{cfg: cfg}
}

func (s *SpreadStrategy) Name() string { return "spread" }

func (s *SpreadStrategy) PruneOrders(b *Bot, ctx *Context) {
	b.CancelStale(core.SideBuy, s.cfg.OrderRefresh, ctx.Now)
	b.CancelStale(core.SideSell, s.cfg.OrderRefresh, ctx.Now)
}

func (s *SpreadStrategy) Decide(b *Bot, ctx *Context) bool {
	if len(ctx.Snapshot.Bids) == 0 || len(ctx.Snapshot.Asks) == 0 || ctx.Price <= 0 {
		return false
	}
	bestBid := ctx.Snapshot.Bids[0].Price
	bestAsk := ctx.Snapshot.Asks[0].Price
	spread := bestAsk - bestBid
	if spread <= 0 || spread/ctx.Price <= s.cfg.MinSpreadPct {
		return false
	}

	bid := pricing.Round2(bestBid + spread*s.cfg.InsideRatio)
	ask := pricing.Round2(bestAsk - spread*s.cfg.InsideRatio)
	if bid >= ask {
		return false
	}

	placed := false
	if !b.HasBuyAt(bid) {
		if b.PlaceLimitBuy(bid, b.OrderSize(), ctx.Now) == nil {
			placed = true
		}
	}
	if !b.HasSellAt(ask) && b.Shares() >= b.OrderSize() {
		if b.PlaceLimitSell(ask, b.OrderSize(), ctx.Now) == nil {
			placed = true
		}
	}
	return placed
}
