package bots

import (
	"math"

	"github.com/pitwars/pitwars/internal/orderbook/core"
	"github.com/pitwars/pitwars/internal/pricing"
)

// LiquidityConfig tunes the market maker.
type LiquidityConfig struct {
	BaseSpread      float64 // fractional: (ask-bid)/mid at zero volatility
	MaxSpread       float64 // fractional cap
	VolWindow       int
	TargetInventory int64
	MaxDeviation    int64 // beyond this the bot rebalances with market orders
}

func DefaultLiquidityConfig() LiquidityConfig {
	return LiquidityConfig{
		BaseSpread:      0.01,
		MaxSpread:       0.05,
		VolWindow:       20,
		TargetInventory: 50,
		MaxDeviation:    40,
	}
}

// LiquidityStrategy quotes both sides around the current price, widening
// with realized volatility and skewing quotes against its inventory.
type LiquidityStrategy struct {
	cfg LiquidityConfig
}

func NewLiquidityStrategy(cfg LiquidityConfig) *LiquidityStrategy {
	if cfg.BaseSpread <= 0 {
		cfg = DefaultLiquidityConfig()
	}
	return &LiquidityStrategy{cfg: cfg}
}

func (s *LiquidityStrategy) Name() string { return "liquidity" }

// realizedVol is the standard deviation of simple returns over the
// window.
func (s *LiquidityStrategy) realizedVol(history []float64) float64 {
	n := s.cfg.VolWindow
	if len(history) < 3 {
		return 0
	}
	if len(history) < n {
		n = len(history)
	}
	window := history[len(history)-n:]

	returns := make([]float64, 0, n-1)
	for i := 1; i < len(window); i++ {
		if window[i-1] == 0 {
			continue
		}
		returns = append(returns, window[i]/window[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

// effectiveSpread widens the base spread with volatility, capped. Both
// sides of the comparison are fractional (spread relative to mid).
func (s *LiquidityStrategy) effectiveSpread(history []float64) float64 {
	spread := s.cfg.BaseSpread * (1 + s.realizedVol(history)*100)
	if spread > s.cfg.MaxSpread {
		spread = s.cfg.MaxSpread
	}
	return spread
}

func (s *LiquidityStrategy) PruneOrders(b *Bot, ctx *Context) {
	// quotes that drifted too far from the current price are stale
	current := ctx.Price
	if current <= 0 {
		return
	}
	limit := b.CancelSpreadMult() * s.effectiveSpread(ctx.History) * current
	for _, side := range []core.Side{core.SideBuy, core.SideSell} {
		for _, o := range b.Book().OpenOrders(b.ID, side) {
			if math.Abs(o.Price-current) > limit {
				b.CancelOrder(o.ID)
			}
		}
	}
}

func (s *LiquidityStrategy) Decide(b *Bot, ctx *Context) bool {
	current := ctx.Price
	if current <= 0 {
		return false
	}

	inventory := b.Shares() + b.LockedShares()
	deviation := inventory - s.cfg.TargetInventory

	// aggressive rebalance once inventory runs away
	if deviation > s.cfg.MaxDeviation {
		qty := deviation / 2
		if qty > 0 {
			leftover, err := b.PlaceMarketSell(qty, ctx.Now)
			return err == nil && leftover < qty
		}
	}
	if deviation < -s.cfg.MaxDeviation {
		qty := -deviation / 2
		leftover, err := b.PlaceMarketBuy(qty, ctx.Now)
		return err == nil && leftover < qty
	}

	halfSpread := s.effectiveSpread(ctx.History) * current / 2

	// skew quotes away from the side that would grow the imbalance
	skew := 0.0
	if s.cfg.MaxDeviation > 0 {
		skew = -float64(deviation) / float64(s.cfg.MaxDeviation) * halfSpread
	}

	bid := pricing.Round2(current - halfSpread + skew)
	ask := pricing.Round2(current + halfSpread + skew)
	if bid <= 0 || ask <= bid {
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
