package participant

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/pitwars/pitwars/internal/exchange"
	"github.com/pitwars/pitwars/internal/orderbook/core"
	"github.com/pitwars/pitwars/internal/prng"
)

// Under any interleaving of placements, fills, and cancels, every
// participant's balances stay non-negative and total wealth across all
// participants is conserved.
func TestProperty_AccountingInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		book := exchange.New(nil)

		const startCash = 10000.0
		const startShares = 100
		accounts := make([]*Participant, 3)
		for i := range accounts {
			accounts[i] = New(fmt.Sprintf("p%d", i), fmt.Sprintf("p%d", i), startCash, startShares, book, prng.NewSource(int64(i)))
		}

		now := int64(1)
		n := rapid.IntRange(1, 80).Draw(t, "ops")
		for i := 0; i < n; i++ {
			p := accounts[rapid.IntRange(0, len(accounts)-1).Draw(t, fmt.Sprintf("who%d", i))]
			price := float64(rapid.IntRange(5, 15).Draw(t, fmt.Sprintf("price%d", i)))
			qty := int64(rapid.IntRange(1, 10).Draw(t, fmt.Sprintf("qty%d", i)))

			switch rapid.IntRange(0, 4).Draw(t, fmt.Sprintf("op%d", i)) {
			case 0:
				p.PlaceLimitBuy(price, qty, now)
			case 1:
				p.PlaceLimitSell(price, qty, now)
			case 2:
				p.PlaceMarketBuy(qty, now)
			case 3:
				p.PlaceMarketSell(qty, now)
			case 4:
				for _, side := range []core.Side{core.SideBuy, core.SideSell} {
					open := p.Book().OpenOrders(p.ID, side)
					if len(open) > 0 {
						p.CancelOrder(open[0].ID)
					}
				}
			}
			now++

			for _, a := range accounts {
				if !a.BalancesValid() {
					t.Fatalf("balances invalid for %s: cash=%v locked=%v shares=%v lockedShares=%v",
						a.ID, a.AvailableCash(), a.LockedCash(), a.Shares(), a.LockedShares())
				}
			}
		}

		// flatten and check conservation
		for _, a := range accounts {
			a.CancelAll(core.SideBuy)
			a.CancelAll(core.SideSell)
		}
		price := book.LastTradePrice()
		if price == 0 {
			price = 10
		}
		var total float64
		for _, a := range accounts {
			total += a.Wealth(price)
		}
		want := float64(len(accounts)) * (startCash + startShares*price)
		if diff := total - want; diff > 0.01*float64(n) || diff < -0.01*float64(n) {
			t.Fatalf("wealth not conserved: total %v, want %v", total, want)
		}
	})
}
