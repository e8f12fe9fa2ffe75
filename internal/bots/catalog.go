package bots

import "fmt"

// Descriptor describes one bot kind for the catalogue endpoint and for
// room settings' bot selection.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog lists every bot kind a room can spawn.
func Catalog() []Descriptor {
	return []Descriptor{
		{Name: "momentum", Description: "Follows short-term trends; buys strength, sells weakness."},
		{Name: "mean-reversion", Description: "Fades moves away from the rolling average price."},
		{Name: "informed", Description: "Trades on the true fundamental value of the asset."},
		{Name: "partially-informed", Description: "Trades on a noisy estimate of the fundamental value."},
		{Name: "liquidity", Description: "Quotes both sides, widening with volatility and skewing against inventory."},
		{Name: "random", Description: "Uninformed noise trading."},
		{Name: "spread", Description: "Quotes inside wide spreads on both sides."},
	}
}

// NewStrategy constructs a strategy by catalogue name with default
// parameters.
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case "momentum":
		return NewMomentumStrategy(DefaultMomentumConfig()), nil
	case "mean-reversion":
		return NewMeanReversionStrategy(DefaultMeanReversionConfig()), nil
	case "informed":
		return NewInformedStrategy(DefaultInformedConfig()), nil
	case "partially-informed":
		return NewPartiallyInformedStrategy(DefaultPartiallyInformedConfig()), nil
	case "liquidity":
		return NewLiquidityStrategy(DefaultLiquidityConfig()), nil
	case "random":
		return NewRandomStrategy(DefaultRandomConfig()), nil
	case "spread":
		return NewSpreadStrategy(DefaultSpreadConfig()), nil
	default:
		return nil, fmt.Errorf("unknown bot kind %q", name)
	}
}
