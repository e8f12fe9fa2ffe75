package pricing

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"github.com/pitwars/pitwars/internal/prng"
)

func TestDeterministicReplay(t *testing.T) {
	run := func() ([]float64, []float64) {
		g := NewGenerator(Config{OpeningPrice: 10, Volatility: 0.05, MeanReversion: 0.1}, prng.NewSource(42))
		var intr, guide []float64
		for i := 0; i < 300; i++ {
			iv, gv := g.Tick()
			intr = append(intr, iv)
			guide = append(guide, gv)
		}
		return intr, guide
	}

	i1, g1 := run()
	i2, g2 := run()
	for k := range g1 {
		if i1[k] != i2[k] || g1[k] != g2[k] {
			t.Fatalf("tick %d diverged: (%v,%v) vs (%v,%v)", k, i1[k], g1[k], i2[k], g2[k])
		}
	}
}

func TestPricesFlooredAndRounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Int64().Draw(t, "seed")
		opening := rapid.Float64Range(0.01, 10000).Draw(t, "opening")
		vol := rapid.Float64Range(0.001, 1).Draw(t, "vol")

		g := NewGenerator(Config{OpeningPrice: opening, Volatility: vol, MeanReversion: 0.2}, prng.NewSource(seed))
		for i := 0; i < 50; i++ {
			iv, gv := g.Tick()
			for _, p := range []float64{iv, gv} {
				if p < MinPrice {
					t.Fatalf("price below floor: %v", p)
				}
				if p != RoundUp2(p) {
					t.Fatalf("price not ceil-rounded to 2 decimals: %v", p)
				}
			}
		}
	})
}

func TestShockPushesGuideThenExpires(t *testing.T) {
	g := NewGenerator(Config{OpeningPrice: 100, Volatility: 0.001, MeanReversion: 0}, prng.NewSource(1))

	base := g.Guide()
	g.Shock(0.05, 5)
	for i := 0; i < 5; i++ {
		g.Tick()
	}
	if g.shock != nil {
		t.Fatal("shock did not expire after its duration")
	}
	if g.Guide() <= base {
		t.Fatalf("positive shock did not raise the guide: %v -> %v", base, g.Guide())
	}
}

func TestShockReplacesExisting(t *testing.T) {
	g := NewGenerator(DefaultConfig(), prng.NewSource(1))
	g.Shock(0.5, 100)
	g.Shock(-0.1, 3)
	if g.shock.intensity != -0.1 || g.shock.ticksRemaining != 3 {
		t.Fatalf("second shock did not replace the first: %+v", g.shock)
	}
}

func TestShockDefaultDuration(t *testing.T) {
	g := NewGenerator(DefaultConfig(), prng.NewSource(1))
	g.Shock(0.1, 0)
	if g.shock.ticksRemaining != DefaultShockTicks {
		t.Fatalf("expected default duration %d, got %d", DefaultShockTicks, g.shock.ticksRemaining)
	}
}

func TestMeanReversionPullsGuideToIntrinsic(t *testing.T) {
	g := NewGenerator(Config{OpeningPrice: 100, Volatility: 0.001, MeanReversion: 0.5}, prng.NewSource(3))

	// knock the guide far above the intrinsic value
	g.guide = 200
	before := math.Abs(g.guide - g.intrinsic)
	for i := 0; i < 20; i++ {
		g.Tick()
	}
	after := math.Abs(g.guide - g.intrinsic)
	if after >= before {
		t.Fatalf("reversion did not close the gap: %v -> %v", before, after)
	}
}

func TestIntrinsicShock(t *testing.T) {
	g := NewGenerator(Config{OpeningPrice: 100, Volatility: 0.05}, prng.NewSource(1))
	g.IntrinsicShock(0.10)
	if got := g.Intrinsic(); math.Abs(got-110) > 0.01 {
		t.Fatalf("expected intrinsic ~110, got %v", got)
	}
	g.IntrinsicShock(-0.9999999)
	if got := g.Intrinsic(); got < MinPrice {
		t.Fatalf("intrinsic fell below floor: %v", got)
	}
}

func TestHistoryBounded(t *testing.T) {
	g := NewGenerator(DefaultConfig(), prng.NewSource(9))
	for i := 0; i < 100; i++ {
		g.Tick()
	}
	h := g.History()
	if len(h) != historyCap {
		t.Fatalf("history length %d, want %d", len(h), historyCap)
	}
	if h[len(h)-1] != g.Guide() {
		t.Fatalf("history tail %v != current guide %v", h[len(h)-1], g.Guide())
	}
}

func TestRoundUp2(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{1.001, 1.01},
		{1.0, 1.0},
		{0.004, 0.01},
		{2.999, 3.0},
	}
	for _, c := range cases {
		if got := RoundUp2(c.in); got != c.want {
			t.Errorf("RoundUp2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
