package participant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwars/pitwars/internal/exchange"
	"github.com/pitwars/pitwars/internal/orderbook/core"
	"github.com/pitwars/pitwars/internal/prng"
)

func newAccount(t *testing.T, id string, cash float64, shares int64, book *exchange.Book) *Participant {
	t.Helper()
	return New(id, id, cash, shares, book, prng.NewSource(1))
}

func TestPlaceLimitBuyLocksCash(t *testing.T) {
	book := exchange.New(nil)
	p := newAccount(t, "alice", 1000, 0, book)

	require.NoError(t, p.PlaceLimitBuy(10, 20, 1))
	assert.Equal(t, 800.0, p.AvailableCash())
	assert.Equal(t, 200.0, p.LockedCash())
}

func TestPlaceLimitBuyInsufficientCash(t *testing.T) {
	book := exchange.New(nil)
	p := newAccount(t, "alice", 100, 0, book)

	err := p.PlaceLimitBuy(10, 20, 1)
	assert.ErrorIs(t, err, ErrInsufficientCash)
	assert.Equal(t, 100.0, p.AvailableCash())
	assert.Equal(t, 0.0, p.LockedCash())
}

func TestPlaceLimitSellLocksShares(t *testing.T) {
	book := exchange.New(nil)
	p := newAccount(t, "alice", 0, 50, book)

	require.NoError(t, p.PlaceLimitSell(10, 30, 1))
	assert.Equal(t, int64(20), p.Shares())
	assert.Equal(t, int64(30), p.LockedShares())

	assert.ErrorIs(t, p.PlaceLimitSell(10, 30, 2), ErrInsufficientShares)
}

func TestPlaceCancelRoundTrip(t *testing.T) {
	book := exchange.New(nil)
	p := newAccount(t, "alice", 1000, 40, book)

	require.NoError(t, p.PlaceLimitBuy(9.5, 10, 1))
	require.NoError(t, p.PlaceLimitSell(11, 15, 2))

	p.CancelAll(core.SideBuy)
	p.CancelAll(core.SideSell)

	assert.Equal(t, 1000.0, p.AvailableCash())
	assert.Equal(t, 0.0, p.LockedCash())
	assert.Equal(t, int64(40), p.Shares())
	assert.Equal(t, int64(0), p.LockedShares())
}

func TestFullFillSettlement(t *testing.T) {
	book := exchange.New(nil)
	seller := newAccount(t, "seller", 0, 100, book)
	buyer := newAccount(t, "buyer", 1000, 0, book)

	require.NoError(t, seller.PlaceLimitSell(10, 10, 1))
	require.NoError(t, buyer.PlaceLimitBuy(10, 10, 2))

	assert.Equal(t, 900.0, buyer.AvailableCash())
	assert.Equal(t, 0.0, buyer.LockedCash())
	assert.Equal(t, int64(10), buyer.Shares())

	assert.Equal(t, 100.0, seller.AvailableCash())
	assert.Equal(t, int64(90), seller.Shares())
	assert.Equal(t, int64(0), seller.LockedShares())
}

func TestPartialFillCreditsExactlyFilledQuantity(t *testing.T) {
	book := exchange.New(nil)
	seller := newAccount(t, "seller", 0, 100, book)
	buyer := newAccount(t, "buyer", 1000, 0, book)

	require.NoError(t, buyer.PlaceLimitBuy(10, 10, 1))
	require.NoError(t, seller.PlaceLimitSell(10, 4, 2))

	// buyer got 4 of 10; 60 still locked for the open remainder
	assert.Equal(t, int64(4), buyer.Shares())
	assert.Equal(t, 60.0, buyer.LockedCash())
	assert.Equal(t, 900.0, buyer.AvailableCash())

	assert.Equal(t, 40.0, seller.AvailableCash())
	assert.Equal(t, int64(96), seller.Shares())
}

func TestMarketBuyAgainstEmptyBookUnchanged(t *testing.T) {
	book := exchange.New(nil)
	p := newAccount(t, "alice", 1000, 0, book)

	leftover, err := p.PlaceMarketBuy(5, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), leftover)
	assert.Equal(t, 1000.0, p.AvailableCash())
	assert.Equal(t, 0.0, p.LockedCash())
}

func TestMarketBuySettlesWithNoResidualLock(t *testing.T) {
	book := exchange.New(nil)
	seller := newAccount(t, "seller", 0, 100, book)
	buyer := newAccount(t, "buyer", 1000, 0, book)

	require.NoError(t, seller.PlaceLimitSell(10, 3, 1))
	require.NoError(t, seller.PlaceLimitSell(11, 3, 2))

	leftover, err := buyer.PlaceMarketBuy(5, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), leftover)
	assert.Equal(t, int64(5), buyer.Shares())
	assert.Equal(t, 0.0, buyer.LockedCash())
	assert.InDelta(t, 1000-(3*10.0+2*11.0), buyer.AvailableCash(), 1e-9)
}

func TestMarketBuyCappedByCash(t *testing.T) {
	book := exchange.New(nil)
	seller := newAccount(t, "seller", 0, 100, book)
	buyer := newAccount(t, "buyer", 25, 0, book)

	require.NoError(t, seller.PlaceLimitSell(10, 10, 1))

	leftover, err := buyer.PlaceMarketBuy(5, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), leftover, "can only afford 2 of 5")
	assert.Equal(t, int64(2), buyer.Shares())
	assert.True(t, buyer.BalancesValid())
}

func TestMarketSellLeftover(t *testing.T) {
	book := exchange.New(nil)
	seller := newAccount(t, "seller", 0, 100, book)
	buyer := newAccount(t, "buyer", 1000, 0, book)

	require.NoError(t, buyer.PlaceLimitBuy(10, 4, 1))

	leftover, err := seller.PlaceMarketSell(10, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(6), leftover)
	assert.Equal(t, int64(96), seller.Shares(), "only the filled 4 left the account")
	assert.Equal(t, int64(0), seller.LockedShares())
	assert.Equal(t, 40.0, seller.AvailableCash())
}

func TestTradingDisabledBlocksAllPlacement(t *testing.T) {
	book := exchange.New(nil)
	other := newAccount(t, "other", 0, 100, book)
	require.NoError(t, other.PlaceLimitSell(10, 10, 1))

	p := newAccount(t, "alice", 1000, 50, book)
	p.SetTradingDisabled(true)

	assert.ErrorIs(t, p.PlaceLimitBuy(10, 1, 2), ErrTradingDisabled)
	assert.ErrorIs(t, p.PlaceLimitSell(10, 1, 3), ErrTradingDisabled)
	if _, err := p.PlaceMarketBuy(1, 4); !assert.ErrorIs(t, err, ErrTradingDisabled) {
		t.FailNow()
	}
	assert.Equal(t, 1000.0, p.AvailableCash())
	assert.Equal(t, int64(50), p.Shares())

	p.SetTradingDisabled(false)
	assert.NoError(t, p.PlaceLimitBuy(10, 1, 5))
}

func TestPortfolioPnL(t *testing.T) {
	book := exchange.New(nil)
	seller := newAccount(t, "seller", 0, 100, book)
	buyer := newAccount(t, "buyer", 1000, 0, book)

	require.NoError(t, seller.PlaceLimitSell(10, 10, 1))
	require.NoError(t, buyer.PlaceLimitBuy(10, 10, 2))

	pf := buyer.Portfolio(12)
	assert.Equal(t, 900.0, pf.Cash)
	assert.Equal(t, int64(10), pf.Shares)
	assert.InDelta(t, 900+10*12.0-1000, pf.PnL, 1e-9)
}

func TestConservationAcrossCounterparties(t *testing.T) {
	book := exchange.New(nil)
	a := newAccount(t, "a", 100000, 100, book)
	b := newAccount(t, "b", 100000, 100, book)

	// a ladder of crossing orders in both directions
	now := int64(1)
	for i := 0; i < 20; i++ {
		price := 10 + float64(i%3)
		require.NoError(t, a.PlaceLimitSell(price, 5, now))
		now++
		require.NoError(t, b.PlaceLimitBuy(price, 5, now))
		now++
		require.NoError(t, b.PlaceLimitSell(price, 2, now))
		now++
		require.NoError(t, a.PlaceLimitBuy(price, 2, now))
		now++
	}
	a.CancelAll(core.SideBuy)
	a.CancelAll(core.SideSell)
	b.CancelAll(core.SideBuy)
	b.CancelAll(core.SideSell)

	final := book.LastTradePrice()
	total := a.Wealth(final) + b.Wealth(final)
	want := 2 * (100000 + 100*final)
	assert.InDelta(t, want, total, 0.01*40, "wealth must be conserved within rounding")
	assert.True(t, a.BalancesValid())
	assert.True(t, b.BalancesValid())
}
