package bots

import (
	"time"

	"github.com/pitwars/pitwars/internal/orderbook/core"
	"github.com/pitwars/pitwars/internal/pricing"
)

// MomentumConfig tunes the trend follower.
type MomentumConfig struct {
	Lookback    int
	Threshold   float64 // fractional move that counts as a trend
	ActChance   float64 // probability gate per tick
	PriceOffset float64 // limit offset from the guide
	StaleAfter  time.Duration
}

func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		Lookback:    5,
		Threshold:   0.01,
		ActChance:   0.3,
		PriceOffset: 0.01,
		StaleAfter:  5 * time.Second,
	}
}

// MomentumStrategy buys into rising prices and sells into falling ones.
type MomentumStrategy struct {
	cfg MomentumConfig
}

func NewMomentumStrategy(cfg MomentumConfig) *MomentumStrategy {
	if cfg.Lookback <= 0 {
		cfg = DefaultMomentumConfig()
	}
	return &MomentumStrategy{cfg: cfg}
}

func (s *MomentumStrategy) Name() string { return "momentum" }

func (s *MomentumStrategy) PruneOrders(b *Bot, ctx *Context) {
	b.CancelStale(core.SideBuy, s.cfg.StaleAfter, ctx.Now)
	b.CancelStale(core.SideSell, s.cfg.StaleAfter, ctx.Now)
}

func (s *MomentumStrategy) Decide(b *Bot, ctx *Context) bool {
	h := ctx.History
	if len(h) <= s.cfg.Lookback {
		return false
	}
	prev := h[len(h)-1-s.cfg.Lookback]
	if prev == 0 {
		return false
	}
	m := (h[len(h)-1] - prev) / prev

	switch {
	case m > s.cfg.Threshold:
		if b.Rand().Float64() >= s.cfg.ActChance {
			return false
		}
		price := pricing.Round2(ctx.Guide * (1 + s.cfg.PriceOffset))
		if b.HasBuyAt(price) {
			return false
		}
		return b.PlaceLimitBuy(price, b.OrderSize(), ctx.Now) == nil

	case m < -s.cfg.Threshold && b.Shares() > 0:
		if b.Rand().Float64() >= s.cfg.ActChance {
			return false
		}
		price := pricing.Round2(ctx.Guide * (1 - s.cfg.PriceOffset))
		if b.HasSellAt(price) {
			return false
		}
		qty := b.OrderSize()
		if qty > b.Shares() {
			qty = b.Shares()
		}
		return b.PlaceLimitSell(price, qty, ctx.Now) == nil
	}
	return false
}
