package exchange

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/pitwars/pitwars/internal/orderbook/core"
)

// After any sequence of limit submits, market submits, and cancels, the
// per-client books must mirror the matching book exactly: for every side
// and price, the sum of per-client sizes equals the book's level size.
func TestProperty_PerClientBooksMirrorBook(t *testing.T) {
	participants := []string{"p0", "p1", "p2"}

	rapid.Check(t, func(t *rapid.T) {
		x := New(nil)
		for _, p := range participants {
			x.RegisterParticipant(p, func(Fill) {})
		}

		var live []string
		n := rapid.IntRange(1, 50).Draw(t, "ops")
		for i := 0; i < n; i++ {
			p := participants[rapid.IntRange(0, len(participants)-1).Draw(t, fmt.Sprintf("p%d", i))]
			side := core.SideBuy
			if rapid.Bool().Draw(t, fmt.Sprintf("side%d", i)) {
				side = core.SideSell
			}
			qty := int64(rapid.IntRange(1, 10).Draw(t, fmt.Sprintf("qty%d", i)))

			switch rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("op%d", i)) {
			case 0, 1:
				price := float64(rapid.IntRange(95, 105).Draw(t, fmt.Sprintf("price%d", i)))
				id := x.NextOrderID(p, int64(i+1))
				x.AddLimit(p, id, side, price, qty, int64(i+1))
				live = append(live, id)
			case 2:
				id := x.NextOrderID(p, int64(i+1))
				x.AddMarket(p, id, side, qty, int64(i+1), nil)
			case 3:
				if len(live) > 0 {
					idx := rapid.IntRange(0, len(live)-1).Draw(t, fmt.Sprintf("idx%d", i))
					x.Cancel(live[idx])
					live = append(live[:idx], live[idx+1:]...)
				}
			}

			for _, side := range []core.Side{core.SideBuy, core.SideSell} {
				perPrice := make(map[float64]int64)
				for _, p := range participants {
					for _, o := range x.OpenOrders(p, side) {
						perPrice[o.Price] += o.Size
					}
				}
				levels := make(map[float64]int64)
				bids, asks := x.Depth()
				rows := bids
				if side == core.SideSell {
					rows = asks
				}
				for _, l := range rows {
					levels[l[0]] = int64(l[1])
				}
				if len(perPrice) != len(levels) {
					t.Fatalf("side %v: per-client levels %v != book levels %v", side, perPrice, levels)
				}
				for price, size := range levels {
					if perPrice[price] != size {
						t.Fatalf("side %v price %v: per-client %d != book %d", side, price, perPrice[price], size)
					}
				}
			}
		}
	})
}
