package bots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwars/pitwars/internal/exchange"
	"github.com/pitwars/pitwars/internal/orderbook/core"
	"github.com/pitwars/pitwars/internal/participant"
	"github.com/pitwars/pitwars/internal/prng"
)

func ctxAt(price float64, history []float64, book *exchange.Book) *Context {
	return &Context{
		Now:       time.Now().UnixNano(),
		Price:     price,
		History:   history,
		Intrinsic: price,
		Guide:     price,
		Snapshot:  book.Snapshot(),
	}
}

func flatHistory(n int, p float64) []float64 {
	h := make([]float64, n)
	for i := range h {
		h[i] = p
	}
	return h
}

func TestMomentumBuysRisingTrend(t *testing.T) {
	book := exchange.New(nil)
	b := NewBot("m1", 10000, 0, book, prng.NewSource(7), NewMomentumStrategy(DefaultMomentumConfig()), DefaultConfig(), nil)

	history := []float64{10, 10.2, 10.4, 10.6, 10.8, 11}
	ctx := ctxAt(11, history, book)
	ctx.Guide = 11

	// the probability gate means not every poll acts; with a fixed seed
	// some poll within a few attempts must submit
	placed := false
	for i := 0; i < 20 && !placed; i++ {
		placed = b.Poll(ctx)
	}
	require.True(t, placed, "momentum bot never bought a rising trend")
	assert.True(t, b.HasBuyOrders())
	assert.Greater(t, b.LockedCash(), 0.0)
}

func TestMomentumIgnoresFlatMarket(t *testing.T) {
	book := exchange.New(nil)
	b := NewBot("m1", 10000, 0, book, prng.NewSource(7), NewMomentumStrategy(DefaultMomentumConfig()), DefaultConfig(), nil)

	ctx := ctxAt(10, flatHistory(10, 10), book)
	for i := 0; i < 50; i++ {
		assert.False(t, b.Poll(ctx))
	}
	assert.False(t, b.HasBuyOrders())
}

func TestMeanReversionBuysDip(t *testing.T) {
	book := exchange.New(nil)
	b := NewBot("r1", 10000, 0, book, prng.NewSource(3), NewMeanReversionStrategy(DefaultMeanReversionConfig()), DefaultConfig(), nil)

	history := flatHistory(20, 10)
	ctx := ctxAt(9.5, history, book) // well below the 10 average
	ctx.Guide = 9.5

	placed := false
	for i := 0; i < 20 && !placed; i++ {
		placed = b.Poll(ctx)
	}
	require.True(t, placed)
	assert.True(t, b.HasBuyOrders())
}

func TestDecisionIdempotentOnOpenIntent(t *testing.T) {
	book := exchange.New(nil)
	cfg := DefaultMeanReversionConfig()
	cfg.ActChance = 1 // remove the probability gate
	b := NewBot("r1", 100000, 0, book, prng.NewSource(3), NewMeanReversionStrategy(cfg), DefaultConfig(), nil)

	ctx := ctxAt(9.5, flatHistory(20, 10), book)
	ctx.Guide = 9.5

	require.True(t, b.Poll(ctx))
	levels := book.OpenLevelCount(b.ID, core.SideBuy)
	locked := b.LockedCash()

	// same state, same target price: no duplicate order
	assert.False(t, b.Poll(ctx))
	assert.Equal(t, levels, book.OpenLevelCount(b.ID, core.SideBuy))
	assert.Equal(t, locked, b.LockedCash())
}

func TestInformedCapturesMispricing(t *testing.T) {
	book := exchange.New(nil)

	// a resting seller provides liquidity below value
	seller := participant.New("seller", "seller", 0, 1000, book, prng.NewSource(1))
	require.NoError(t, seller.PlaceLimitSell(10, 100, 1))

	b := NewBot("i1", 10000, 0, book, prng.NewSource(2), NewInformedStrategy(DefaultInformedConfig()), DefaultConfig(), nil)

	ctx := ctxAt(10, flatHistory(10, 10), book)
	ctx.Intrinsic = 12 // current 10 < 0.95*12
	ctx.Snapshot = book.Snapshot()

	require.True(t, b.Poll(ctx))
	assert.Greater(t, b.Shares()+b.LockedShares(), int64(0))
	assert.LessOrEqual(t, b.AvailableCash(), 10000.0-10*float64(b.OrderSize()))
	assert.Equal(t, 0.0, b.LockedCash(), "market buy must not leave cash locked")

	// acquired shares are listed for sale above value
	assert.True(t, b.HasSellOrders())
}

func TestInformedKeepsCorrectlyPositionedOrders(t *testing.T) {
	book := exchange.New(nil)
	b := NewBot("i1", 10000, 100, book, prng.NewSource(2), NewInformedStrategy(DefaultInformedConfig()), DefaultConfig(), nil)

	require.NoError(t, b.PlaceLimitSell(12.6, 10, 1)) // above intrinsic: keep

	ctx := ctxAt(12, flatHistory(10, 12), book)
	ctx.Intrinsic = 12
	b.Poll(ctx)
	assert.True(t, b.HasSellAt(12.6), "sell above intrinsic should not be pruned")

	// intrinsic jumps; the sell is now below value and gets pruned
	ctx2 := ctxAt(12, flatHistory(10, 12), book)
	ctx2.Intrinsic = 20
	b.Poll(ctx2)
	assert.False(t, b.HasSellAt(12.6), "sell below intrinsic must be pruned")
}

func TestRandomRespectsLevelCap(t *testing.T) {
	book := exchange.New(nil)
	cfg := DefaultRandomConfig()
	cfg.BuyAbove = 0 // always buy
	cfg.SellBelow = -1
	cfg.MarketRatio = 0 // always limit
	b := NewBot("n1", 1000000, 0, book, prng.NewSource(11), NewRandomStrategy(cfg), DefaultConfig(), nil)

	ctx := ctxAt(10, flatHistory(5, 10), book)
	for i := 0; i < 500; i++ {
		ctx.Now = int64(i + 1)
		b.Poll(ctx)
	}
	assert.LessOrEqual(t, book.OpenLevelCount(b.ID, core.SideBuy), cfg.MaxLevels+1)
}

func TestLiquidityQuotesBothSides(t *testing.T) {
	book := exchange.New(nil)
	b := NewBot("l1", 100000, 50, book, prng.NewSource(5), NewLiquidityStrategy(DefaultLiquidityConfig()), DefaultConfig(), nil)

	ctx := ctxAt(10, flatHistory(20, 10), book)
	require.True(t, b.Poll(ctx))
	assert.True(t, b.HasBuyOrders())
	assert.True(t, b.HasSellOrders())

	bid, _, okBid := book.BestBid()
	ask, _, okAsk := book.BestAsk()
	require.True(t, okBid)
	require.True(t, okAsk)
	assert.Less(t, bid, 10.0)
	assert.Greater(t, ask, 10.0)
}

func TestLiquiditySpreadWidensWithVolatility(t *testing.T) {
	s := NewLiquidityStrategy(DefaultLiquidityConfig())

	calm := flatHistory(20, 10)
	wild := make([]float64, 20)
	for i := range wild {
		if i%2 == 0 {
			wild[i] = 10
		} else {
			wild[i] = 11
		}
	}

	calmSpread := s.effectiveSpread(calm)
	wildSpread := s.effectiveSpread(wild)
	assert.Greater(t, wildSpread, calmSpread)
	assert.LessOrEqual(t, wildSpread, s.cfg.MaxSpread, "spread must stay capped")
	assert.Equal(t, s.cfg.BaseSpread, calmSpread, "flat history keeps the base spread")
}

func TestLiquidityRebalancesExcessInventory(t *testing.T) {
	book := exchange.New(nil)
	cfg := DefaultLiquidityConfig()
	cfg.TargetInventory = 10
	cfg.MaxDeviation = 5
	b := NewBot("l1", 100000, 100, book, prng.NewSource(5), NewLiquidityStrategy(cfg), DefaultConfig(), nil)

	// a resting buyer to absorb the rebalance
	buyer := participant.New("buyer", "buyer", 100000, 0, book, prng.NewSource(1))
	require.NoError(t, buyer.PlaceLimitBuy(10, 100, 1))

	ctx := ctxAt(10, flatHistory(20, 10), book)
	require.True(t, b.Poll(ctx))
	assert.Less(t, b.Shares(), int64(100), "excess inventory should be sold down")
}

func TestSpreadQuotesInsideWideSpread(t *testing.T) {
	book := exchange.New(nil)
	outside := participant.New("o", "o", 100000, 100, book, prng.NewSource(1))
	require.NoError(t, outside.PlaceLimitBuy(9, 10, 1))
	require.NoError(t, outside.PlaceLimitSell(11, 10, 2))

	b := NewBot("s1", 10000, 50, book, prng.NewSource(4), NewSpreadStrategy(DefaultSpreadConfig()), DefaultConfig(), nil)

	ctx := ctxAt(10, flatHistory(5, 10), book)
	ctx.Snapshot = book.Snapshot()
	require.True(t, b.Poll(ctx))

	bid, _, _ := book.BestBid()
	ask, _, _ := book.BestAsk()
	assert.Greater(t, bid, 9.0, "new best bid inside the old spread")
	assert.Less(t, ask, 11.0, "new best ask inside the old spread")
}

func TestSpreadIgnoresTightSpread(t *testing.T) {
	book := exchange.New(nil)
	outside := participant.New("o", "o", 100000, 100, book, prng.NewSource(1))
	require.NoError(t, outside.PlaceLimitBuy(9.99, 10, 1))
	require.NoError(t, outside.PlaceLimitSell(10.01, 10, 2))

	b := NewBot("s1", 10000, 50, book, prng.NewSource(4), NewSpreadStrategy(DefaultSpreadConfig()), DefaultConfig(), nil)
	ctx := ctxAt(10, flatHistory(5, 10), book)
	ctx.Snapshot = book.Snapshot()
	assert.False(t, b.Poll(ctx))
}

func TestPollIsolatesPanics(t *testing.T) {
	book := exchange.New(nil)
	b := NewBot("p1", 1000, 0, book, prng.NewSource(1), panicStrategy{}, DefaultConfig(), nil)

	assert.NotPanics(t, func() {
		assert.False(t, b.Poll(ctxAt(10, nil, book)))
	})
}

type panicStrategy struct{}

func (panicStrategy) Name() string               { return "panic" }
func (panicStrategy) PruneOrders(*Bot, *Context) {}
func (panicStrategy) Decide(*Bot, *Context) bool { panic("boom") }

func TestCancelStale(t *testing.T) {
	book := exchange.New(nil)
	b := NewBot("c1", 10000, 0, book, prng.NewSource(1), NewRandomStrategy(DefaultRandomConfig()), DefaultConfig(), nil)

	old := time.Now().Add(-10 * time.Second).UnixNano()
	require.NoError(t, b.PlaceLimitBuy(9, 5, old))
	fresh := time.Now().UnixNano()
	require.NoError(t, b.PlaceLimitBuy(8, 5, fresh))

	b.CancelStale(core.SideBuy, 5*time.Second, time.Now().UnixNano())
	assert.False(t, b.HasBuyAt(9), "old order canceled")
	assert.True(t, b.HasBuyAt(8), "fresh order kept")
}

func TestCatalogMatchesConstructors(t *testing.T) {
	for _, d := range Catalog() {
		s, err := NewStrategy(d.Name)
		require.NoError(t, err, d.Name)
		assert.Equal(t, d.Name, s.Name())
	}
	_, err := NewStrategy("nope")
	assert.Error(t, err)
}
