package core

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

// The book must never cross: after any sequence of submits and cancels,
// best bid < best ask whenever both sides are populated.
func TestProperty_BookNeverCrossed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := NewBook()
		n := rapid.IntRange(1, 60).Draw(t, "ops")

		var live []string
		for i := 0; i < n; i++ {
			if len(live) > 0 && rapid.Float64Range(0, 1).Draw(t, fmt.Sprintf("cancel%d", i)) < 0.2 {
				idx := rapid.IntRange(0, len(live)-1).Draw(t, fmt.Sprintf("idx%d", i))
				b.Cancel(live[idx], int64(i+1))
				live = append(live[:idx], live[idx+1:]...)
			} else {
				side := SideBuy
				if rapid.Bool().Draw(t, fmt.Sprintf("side%d", i)) {
					side = SideSell
				}
				o := Order{
					ID:    fmt.Sprintf("o#%d", i),
					Side:  side,
					Kind:  OrderKindLimit,
					Price: float64(rapid.IntRange(90, 110).Draw(t, fmt.Sprintf("price%d", i))),
					Size:  int64(rapid.IntRange(1, 20).Draw(t, fmt.Sprintf("size%d", i))),
					Time:  int64(i + 1),
				}
				report, _, err := b.SubmitLimit(o)
				if err != nil {
					t.Fatalf("submit failed: %v", err)
				}
				if report.Rested {
					live = append(live, o.ID)
				}
				// drop filled makers from the live set
				kept := live[:0]
				for _, id := range live {
					if _, ok := b.Resting(id); ok {
						kept = append(kept, id)
					}
				}
				live = kept
			}

			bid, _, hasBid := b.BestBid()
			ask, _, hasAsk := b.BestAsk()
			if hasBid && hasAsk && bid >= ask {
				t.Fatalf("book crossed: bid %v >= ask %v", bid, ask)
			}
		}
	})
}
