package news

import (
	"github.com/pitwars/pitwars/internal/pricing"
	"github.com/pitwars/pitwars/internal/prng"
)

// Descriptor is one catalogue entry. Bind closes it over a room's price
// generator, producing the callbacks the resulting item runs.
type Descriptor struct {
	Title         string
	Description   string
	DurationTicks int
	Bind          func(gen *pricing.Generator, rnd *prng.Source, item *Item)
}

// Catalog is the fixed set of news events a room can draw from.
func Catalog() []Descriptor {
	return []Descriptor{
		{
			Title:         "Earnings beat expectations",
			Description:   "Quarterly results come in far above consensus estimates.",
			DurationTicks: 10,
			Bind: func(gen *pricing.Generator, rnd *prng.Source, item *Item) {
				item.OnStart = func() { gen.Shock(0.02+0.02*rnd.Float64(), item.DurationTicks) }
			},
		},
		{
			Title:         "Surprise profit warning",
			Description:   "Management slashes guidance for the rest of the year.",
			DurationTicks: 10,
			Bind: func(gen *pricing.Generator, rnd *prng.Source, item *Item) {
				item.OnStart = func() { gen.Shock(-0.02-0.02*rnd.Float64(), item.DurationTicks) }
			},
		},
		{
			Title:         "Breakthrough product announced",
			Description:   "A new flagship product reprices the company's prospects.",
			DurationTicks: 0,
			Bind: func(gen *pricing.Generator, rnd *prng.Source, item *Item) {
				item.OnStart = func() { gen.IntrinsicShock(0.05 + 0.05*rnd.Float64()) }
			},
		},
		{
			Title:         "Regulatory probe opened",
			Description:   "Authorities announce a formal investigation into the company.",
			DurationTicks: 0,
			Bind: func(gen *pricing.Generator, rnd *prng.Source, item *Item) {
				item.OnStart = func() { gen.IntrinsicShock(-0.05 - 0.05*rnd.Float64()) }
			},
		},
		{
			Title:         "Short squeeze rumored",
			Description:   "Chatter about trapped shorts spreads across trading desks.",
			DurationTicks: 15,
			Bind: func(gen *pricing.Generator, rnd *prng.Source, item *Item) {
				item.OnStart = func() { gen.Shock(0.03*rnd.Float64(), item.DurationTicks) }
			},
		},
		{
			Title:         "Sector-wide selloff",
			Description:   "The whole sector trades down on macro fears.",
			DurationTicks: 15,
			Bind: func(gen *pricing.Generator, rnd *prng.Source, item *Item) {
				item.OnStart = func() { gen.Shock(-0.03*rnd.Float64(), item.DurationTicks) }
			},
		},
		{
			Title:         "Analyst day scheduled",
			Description:   "The company announces an investor presentation. Nothing moves yet.",
			DurationTicks: 5,
			Bind:          func(gen *pricing.Generator, rnd *prng.Source, item *Item) {},
		},
		{
			Title:         "Flash crash scare",
			Description:   "An erroneous block trade rattles the tape before being busted.",
			DurationTicks: 5,
			Bind: func(gen *pricing.Generator, rnd *prng.Source, item *Item) {
				item.OnStart = func() { gen.Shock(-0.08, item.DurationTicks) }
				item.OnEnd = func() { gen.Shock(0.04, item.DurationTicks) }
			},
		},
	}
}
