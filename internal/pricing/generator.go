// Package pricing implements the per-room price model: a slowly drifting
// intrinsic value and a noisy guide price that random-walks around it.
// Informed strategies trade on the intrinsic value; everyone else only
// sees the guide.
package pricing

import (
	"math"

	"github.com/pitwars/pitwars/internal/prng"
)

const (
	// MinPrice is the floor for every generated price.
	MinPrice = 0.01

	// DefaultShockTicks is how long a shock decays when the caller does
	// not pick a duration.
	DefaultShockTicks = 10

	historyCap = 20
)

// Config holds the model parameters for a Generator.
type Config struct {
	OpeningPrice  float64
	Drift         float64
	Volatility    float64 // (0, 1]
	MeanReversion float64 // [0, 1]
}

// DefaultConfig returns model parameters that produce a lively but
// stable market.
func DefaultConfig() Config {
	return Config{
		OpeningPrice:  1,
		Drift:         0,
		Volatility:    0.05,
		MeanReversion: 0.1,
	}
}

type shockState struct {
	intensity      float64
	ticksRemaining int
}

// Generator produces the (intrinsicValue, guidePrice) sequence for one
// room. It is driven exclusively from the room loop; it is not safe for
// concurrent use.
type Generator struct {
	cfg Config
	rnd *prng.Source

	intrinsic float64
	guide     float64
	shock     *shockState
	history   []float64
}

// NewGenerator creates a Generator starting at the opening price.
func NewGenerator(cfg Config, rnd *prng.Source) *Generator {
	if cfg.OpeningPrice < MinPrice {
		cfg.OpeningPrice = MinPrice
	}
	if cfg.Volatility <= 0 {
		cfg.Volatility = DefaultConfig().Volatility
	}
	if cfg.Volatility > 1 {
		cfg.Volatility = 1
	}
	if cfg.MeanReversion < 0 {
		cfg.MeanReversion = 0
	}
	if cfg.MeanReversion > 1 {
		cfg.MeanReversion = 1
	}

	g := &Generator{
		cfg:       cfg,
		rnd:       rnd,
		intrinsic: cfg.OpeningPrice,
		guide:     cfg.OpeningPrice,
		history:   make([]float64, 0, historyCap),
	}
	g.pushHistory(RoundUp2(g.guide))
	return g
}

// Tick advances the model by one step and returns the rounded
// (intrinsicValue, guidePrice) pair.
func (g *Generator) Tick() (intrinsic, guide float64) {
	totalDrift := g.cfg.Drift

	if g.shock != nil {
		totalDrift += g.shock.intensity
		g.shock.ticksRemaining--
		if g.shock.ticksRemaining <= 0 {
			g.shock = nil
		}
	}

	// pull the guide back toward the intrinsic value
	totalDrift += -((g.guide - g.intrinsic) / g.intrinsic) * g.cfg.MeanReversion

	z := g.rnd.Norm()
	vol := g.cfg.Volatility

	// geometric Brownian motion step with dt = 1
	g.guide *= math.Exp(totalDrift - 0.5*vol*vol + vol*z)
	if g.guide < MinPrice {
		g.guide = MinPrice
	}

	guide = RoundUp2(g.guide)
	g.pushHistory(guide)
	return RoundUp2(g.intrinsic), guide
}

// Shock applies a transient additive drift term for durationTicks ticks.
// Intensity is in natural (fractional) units per tick; callers convert
// whatever scale they use before calling. A new shock replaces any
// existing one. durationTicks <= 0 uses DefaultShockTicks.
func (g *Generator) Shock(intensity float64, durationTicks int) {
	if durationTicks <= 0 {
		durationTicks = DefaultShockTicks
	}
	g.shock = &shockState{intensity: intensity, ticksRemaining: durationTicks}
}

// IntrinsicShock reprices the fundamental value by pct (e.g. 0.05 = +5%).
func (g *Generator) IntrinsicShock(pct float64) {
	g.intrinsic *= 1 + pct
	if g.intrinsic < MinPrice {
		g.intrinsic = MinPrice
	}
}

// DriftIntrinsic nudges the intrinsic value by ±pct, sign drawn from the
// generator's PRNG. The simulator calls this at its precomputed drift
// timestamps.
func (g *Generator) DriftIntrinsic(pct float64) {
	if g.rnd.Float64() < 0.5 {
		pct = -pct
	}
	g.IntrinsicShock(pct)
}

// Intrinsic returns the current rounded intrinsic value.
func (g *Generator) Intrinsic() float64 { return RoundUp2(g.intrinsic) }

// Guide returns the current rounded guide price.
func (g *Generator) Guide() float64 { return RoundUp2(g.guide) }

// Volatility returns the current volatility parameter.
func (g *Generator) Volatility() float64 { return g.cfg.Volatility }

// SetVolatility overrides the volatility parameter, clamped to (0, 1].
// Powers use this; the pre-power value is the caller's to remember.
func (g *Generator) SetVolatility(v float64) {
	if v <= 0 {
		v = 0.001
	}
	if v > 1 {
		v = 1
	}
	g.cfg.Volatility = v
}

// History returns the most recent guide prices, oldest first. The
// returned slice is a copy.
func (g *Generator) History() []float64 {
	out := make([]float64, len(g.history))
	copy(out, g.history)
	return out
}

func (g *Generator) pushHistory(p float64) {
	if len(g.history) == historyCap {
		copy(g.history, g.history[1:])
		g.history[historyCap-1] = p
		return
	}
	g.history = append(g.history, p)
}

// RoundUp2 coerces a price to two decimals, rounding up:
// ceil(100x) / 100. The epsilon keeps exact cent values from being
// bumped a cent by float representation (0.07*100 is slightly above 7).
func RoundUp2(x float64) float64 {
	return math.Ceil(x*100-1e-9) / 100
}

// Round2 coerces a price to the nearest two decimals. Order entry uses
// this so that submitted prices land on the same grid the book keys on.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
