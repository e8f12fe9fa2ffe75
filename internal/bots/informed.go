package bots

import (
	"github.com/pitwars/pitwars/internal/orderbook/core"
	"github.com/pitwars/pitwars/internal/pricing"
)

// InformedConfig tunes the fundamental traders.
type InformedConfig struct {
	BuyBelow   float64 // buy when current < BuyBelow * intrinsic
	SellAbove  float64 // sell when current > SellAbove * intrinsic
	ExitAt     float64 // limit-sell acquired shares at ExitAt * intrinsic
	NoiseRange float64 // partially-informed estimate noise, ± fraction
}

func DefaultInformedConfig() InformedConfig {
	return InformedConfig{
		BuyBelow:  0.95,
		SellAbove: 1.10,
		ExitAt:    1.05,
	}
}

func DefaultPartiallyInformedConfig() InformedConfig {
	return InformedConfig{
		BuyBelow:   0.96,
		SellAbove:  1.08,
		ExitAt:     1.05,
		NoiseRange: 0.10,
	}
}

// InformedStrategy trades on the true intrinsic value. It market-buys
// clear mispricings and lists the acquired shares for sale above value.
type InformedStrategy struct {
	cfg InformedConfig
}

func NewInformedStrategy(cfg InformedConfig) *InformedStrategy {
	if cfg.BuyBelow == 0 {
		cfg = DefaultInformedConfig()
	}
	return &InformedStrategy{cfg: cfg}
}

func (s *InformedStrategy) Name() string { return "informed" }

// PruneOrders keeps orders that are still correctly positioned relative
// to the intrinsic value: sells above it and buys below it stay.
func (s *InformedStrategy) PruneOrders(b *Bot, ctx *Context) {
	for _, o := range b.Book().OpenOrders(b.ID, core.SideSell) {
		if o.Price < ctx.Intrinsic {
			b.CancelOrder(o.ID)
		}
	}
	for _, o := range b.Book().OpenOrders(b.ID, core.SideBuy) {
		if o.Price > ctx.Intrinsic {
			b.CancelOrder(o.ID)
		}
	}
}

func (s *InformedStrategy) Decide(b *Bot, ctx *Context) bool {
	return decideOnValue(b, ctx, ctx.Intrinsic, s.cfg, true)
}

// decideOnValue holds the shared informed trading rule: value is either
// the exact intrinsic or a noisy estimate of it.
func decideOnValue(b *Bot, ctx *Context, value float64, cfg InformedConfig, exitOrder bool) bool {
	if value <= 0 {
		return false
	}
	current := ctx.Price

	switch {
	case current < cfg.BuyBelow*value:
		qty := b.OrderSize()
		leftover, err := b.PlaceMarketBuy(qty, ctx.Now)
		if err != nil {
			return false
		}
		filled := qty - leftover
		if filled <= 0 {
			return false
		}
		if exitOrder {
			exit := pricing.Round2(cfg.ExitAt * value)
			if !b.HasSellAt(exit) {
				b.PlaceLimitSell(exit, filled, ctx.Now)
			}
		}
		return true

	case current > cfg.SellAbove*value && b.Shares() > 0:
		qty := b.OrderSize()
		if qty > b.Shares() {
			qty = b.Shares()
		}
		leftover, err := b.PlaceMarketSell(qty, ctx.Now)
		if err != nil {
			return false
		}
		return leftover < qty
	}
	return false
}

// PartiallyInformedStrategy trades on a noisy estimate of the intrinsic
// value, refreshed whenever the true value moves.
type PartiallyInformedStrategy struct {
	cfg InformedConfig

	lastIntrinsic float64
	estimate      float64
}

func NewPartiallyInformedStrategy(cfg InformedConfig) *PartiallyInformedStrategy {
	if cfg.BuyBelow == 0 {
		cfg = DefaultPartiallyInformedConfig()
	}
	return &PartiallyInformedStrategy{cfg: cfg}
}

func (s *PartiallyInformedStrategy) Name() string { return "partially-informed" }

func (s *PartiallyInformedStrategy) PruneOrders(b *Bot, ctx *Context) {
	s.refresh(b, ctx)
	for _, o := range b.Book().OpenOrders(b.ID, core.SideSell) {
		if o.Price < s.estimate {
			b.CancelOrder(o.ID)
		}
	}
	for _, o := range b.Book().OpenOrders(b.ID, core.SideBuy) {
		if o.Price > s.estimate {
			b.CancelOrder(o.ID)
		}
	}
}

func (s *PartiallyInformedStrategy) refresh(b *Bot, ctx *Context) {
	if ctx.Intrinsic != s.lastIntrinsic {
		s.lastIntrinsic = ctx.Intrinsic
		s.estimate = ctx.Intrinsic * (1 + s.cfg.NoiseRange*b.Rand().Bipolar())
	}
}

func (s *PartiallyInformedStrategy) Decide(b *Bot, ctx *Context) bool {
	s.refresh(b, ctx)
	value := s.estimate
	if value <= 0 {
		return false
	}
	current := ctx.Price

	switch {
	case current < s.cfg.BuyBelow*value:
		// market when there is an opposite side to hit, else rest a limit
		if len(ctx.Snapshot.Asks) > 0 {
			leftover, err := b.PlaceMarketBuy(b.OrderSize(), ctx.Now)
			return err == nil && leftover < b.OrderSize()
		}
		price := pricing.Round2(current)
		if price <= 0 || b.HasBuyAt(price) {
			return false
		}
		return b.PlaceLimitBuy(price, b.OrderSize(), ctx.Now) == nil

	case current > s.cfg.SellAbove*value && b.Shares() > 0:
		qty := b.OrderSize()
		if qty > b.Shares() {
			qty = b.Shares()
		}
		if len(ctx.Snapshot.Bids) > 0 {
			leftover, err := b.PlaceMarketSell(qty, ctx.Now)
			return err == nil && leftover < qty
		}
		price := pricing.Round2(current)
		if price <= 0 || b.HasSellAt(price) {
			return false
		}
		return b.PlaceLimitSell(price, qty, ctx.Now) == nil
	}
	return false
}
