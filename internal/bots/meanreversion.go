package bots

import (
	"time"

	"github.com/pitwars/pitwars/internal/orderbook/core"
	"github.com/pitwars/pitwars/internal/pricing"
)

// MeanReversionConfig tunes the contrarian.
type MeanReversionConfig struct {
	Window      int
	BuyBelow    float64 // buy when current < BuyBelow * SMA
	SellAbove   float64 // sell when current > SellAbove * SMA
	ActChance   float64
	PriceOffset float64
	StaleAfter  time.Duration
}

func DefaultMeanReversionConfig() MeanReversionConfig {
	return MeanReversionConfig{
		Window:      20,
		BuyBelow:    0.98,
		SellAbove:   1.02,
		ActChance:   0.5,
		PriceOffset: 0.005,
		StaleAfter:  8 * time.Second,
	}
}

// MeanReversionStrategy fades moves away from the rolling average.
type MeanReversionStrategy struct {
	cfg MeanReversionConfig
}

func NewMeanReversionStrategy(cfg MeanReversionConfig) *MeanReversionStrategy {
	if cfg.Window <= 0 {
		cfg = DefaultMeanReversionConfig()
	}
	return &MeanReversionStrategy{cfg: cfg}
}

func (s *MeanReversionStrategy) Name() string { return "mean-reversion" }

func (s *MeanReversionStrategy) PruneOrders(b *Bot, ctx *Context) {
	b.CancelStale(core.SideBuy, s.cfg.StaleAfter, ctx.Now)
	b.CancelStale(core.SideSell, s.cfg.StaleAfter, ctx.Now)
}

func (s *MeanReversionStrategy) Decide(b *Bot, ctx *Context) bool {
	h := ctx.History
	if len(h) < s.cfg.Window {
		return false
	}
	var sum float64
	for _, p := range h[len(h)-s.cfg.Window:] {
		sum += p
	}
	avg := sum / float64(s.cfg.Window)
	current := ctx.Price

	switch {
	case current < s.cfg.BuyBelow*avg:
		if b.Rand().Float64() >= s.cfg.ActChance {
			return false
		}
		price := pricing.Round2(ctx.Guide * (1 - s.cfg.PriceOffset))
		if b.HasBuyAt(price) {
			return false
		}
		return b.PlaceLimitBuy(price, b.OrderSize(), ctx.Now) == nil

	case current > s.cfg.SellAbove*avg && b.Shares() > 0:
		if b.Rand().Float64() >= s.cfg.ActChance {
			return false
		}
		price := pricing.Round2(ctx.Guide * (1 + s.cfg.PriceOffset))
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
