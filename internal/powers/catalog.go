package powers

import (
	"fmt"
	"math"

	"github.com/pitwars/pitwars/internal/news"
	"github.com/pitwars/pitwars/internal/pricing"
)

// Catalog is the fixed set of powers briefcases draw from.
func Catalog() []Descriptor {
	return []Descriptor{
		{
			ID:            "volatility-storm",
			Title:         "Volatility Storm",
			Description:   "Quadruples market volatility for a while.",
			Rarity:        3,
			Type:          TypeMarket,
			DurationTicks: 20,
		},
		{
			ID:          "rumor-mill",
			Title:       "Rumor Mill",
			Description: "Plants a rumor that jolts the market.",
			Rarity:      2,
			Type:        TypeMarket,
		},
		{
			ID:          "cash-heritage",
			Title:       "Unexpected Heritage",
			Description: "A distant relative leaves you a fortune.",
			Rarity:      4,
			Type:        TypeClient,
			IsInstant:   true,
		},
		{
			ID:          "the-homeless-gift",
			Title:       "The Homeless Gift",
			Description: "A stranger hands you a dollar. Every bit helps.",
			Rarity:      1,
			Type:        TypeClient,
			IsInstant:   true,
		},
		{
			ID:            "the-hacker-ddos",
			Title:         "The Hacker",
			Description:   "Knocks every other trader's terminal offline.",
			Rarity:        5,
			Type:          TypeOthers,
			DurationTicks: 15,
		},
	}
}

// bind attaches the effect callbacks for a power. Called at consume
// time so closures capture the pre-activation state they must restore.
func bind(p *Power, env Env) error {
	switch p.ID {
	case "volatility-storm":
		var prev float64
		p.OnConsume = func() {
			prev = env.Gen.Volatility()
			env.Gen.SetVolatility(math.Min(1, prev*4))
			if env.Notify != nil {
				env.Notify("", "warning", p.Title, "Market volatility has surged.")
			}
		}
		p.OnEnd = func() {
			env.Gen.SetVolatility(prev)
			if env.Notify != nil {
				env.Notify("", "info", p.Title, "Volatility is back to normal.")
			}
		}

	case "rumor-mill":
		p.OnConsume = func() {
			item := news.NewItem("Rumor Mill", "A juicy rumor is making the rounds.", 0)
			// shock intensity in natural per-tick drift units
			intensity := 0.1 * env.Rnd.Float64()
			item.OnStart = func() { env.Gen.Shock(intensity, pricing.DefaultShockTicks) }
			env.PublishNews(item)
		}

	case "cash-heritage":
		p.OnConsume = func() {
			amount := 1000 + math.Floor(env.Rnd.Float64()*env.StartingCash())
			env.GrantCash(p.OwnerID, amount)
			if env.Notify != nil {
				env.Notify("", "success", p.Title, "A player came into serious money.")
			}
		}

	case "the-homeless-gift":
		p.OnConsume = func() {
			env.GrantCash(p.OwnerID, 1)
			if env.Notify != nil {
				env.Notify(p.OwnerID, "info", p.Title, "You received one dollar.")
			}
		}

	case "the-hacker-ddos":
		p.OnConsume = func() {
			env.SetOthersTradingDisabled(p.OwnerID, true)
			if env.Notify != nil {
				env.Notify("", "error", p.Title, "Trading terminals are under attack.")
			}
		}
		p.OnEnd = func() {
			env.SetOthersTradingDisabled(p.OwnerID, false)
			if env.Notify != nil {
				env.Notify("", "success", p.Title, "Terminals are back online.")
			}
		}

	default:
		return fmt.Errorf("unknown power %q", p.ID)
	}
	return nil
}
