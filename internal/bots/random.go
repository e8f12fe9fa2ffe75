package bots

import (
	"github.com/pitwars/pitwars/internal/orderbook/core"
	"github.com/pitwars/pitwars/internal/pricing"
)

// RandomConfig tunes the noise trader.
type RandomConfig struct {
	BuyAbove    float64 // act when draw > BuyAbove
	SellBelow   float64 // act when draw < SellBelow
	MarketRatio float64 // chance a submission is a market order
	MaxLevels   int     // refuse new orders beyond this many own levels
	PriceJitter float64 // limit price jitter around current, fractional
}

func DefaultRandomConfig() RandomConfig {
	return RandomConfig{
		BuyAbove:    0.9,
		SellBelow:   0.1,
		MarketRatio: 0.5,
		MaxLevels:   10,
		PriceJitter: 0.02,
	}
}

// RandomStrategy submits uninformed orders. It exists to supply noise
// and baseline liquidity.
type RandomStrategy struct {
	cfg RandomConfig
}

func NewRandomStrategy(cfg RandomConfig) *RandomStrategy {
	if cfg == (RandomConfig{}) {
		cfg = DefaultRandomConfig()
	}
	return &RandomStrategy{cfg: cfg}
}

func (s *RandomStrategy) Name() string { return "random" }

func (s *RandomStrategy) PruneOrders(b *Bot, ctx *Context) {}

func (s *RandomStrategy) Decide(b *Bot, ctx *Context) bool {
	draw := b.Rand().Float64()

	switch {
	case draw > s.cfg.BuyAbove:
		if b.Book().OpenLevelCount(b.ID, core.SideBuy) > s.cfg.MaxLevels {
			return false
		}
		if b.Rand().Float64() < s.cfg.MarketRatio {
			leftover, err := b.PlaceMarketBuy(b.OrderSize(), ctx.Now)
			return err == nil && leftover < b.OrderSize()
		}
		price := pricing.Round2(ctx.Price * (1 + s.cfg.PriceJitter*b.Rand().Bipolar()))
		if price <= 0 || b.HasBuyAt(price) {
			return false
		}
		return b.PlaceLimitBuy(price, b.OrderSize(), ctx.Now) == nil

	case draw < s.cfg.SellBelow && b.Shares() > 0:
		if b.Book().OpenLevelCount(b.ID, core.SideSell) > s.cfg.MaxLevels {
			return false
		}
		qty := b.OrderSize()
		if qty > b.Shares() {
			qty = b.Shares()
		}
		if b.Rand().Float64() < s.cfg.MarketRatio {
			leftover, err := b.PlaceMarketSell(qty, ctx.Now)
			return err == nil && leftover < qty
		}
		price := pricing.Round2(ctx.Price * (1 + s.cfg.PriceJitter*b.Rand().Bipolar()))
		if price <= 0 || b.HasSellAt(price) {
			return false
		}
		return b.PlaceLimitSell(price, qty, ctx.Now) == nil
	}
	return false
}
