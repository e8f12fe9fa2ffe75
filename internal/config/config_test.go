package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/pitwars/pitwars/internal/protocol"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8123")
	t.Setenv("LOG_LEVEL", "debug")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsBadLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	_, err := Load()
	assert.Error(t, err)
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 10_000.0, s.StartingCash)
	assert.Equal(t, 1.0, s.OpeningPrice)
	assert.Equal(t, int64(42), s.Seed)
	assert.Equal(t, 5.0, s.MarketVolatility)
	assert.Equal(t, 5, s.GameDuration)
	assert.True(t, s.EnableRandomNews)
	assert.Equal(t, 0, s.Bots)
	assert.Equal(t, "AAPL", s.TickerName)
}

func TestClampBoundaries(t *testing.T) {
	s := DefaultSettings()

	s.Bots = -1
	assert.Equal(t, 0, ClampSettings(s).Bots)
	s.Bots = 1_000_000
	assert.Equal(t, 50, ClampSettings(s).Bots)

	s.MarketVolatility = 0
	assert.Equal(t, 0.001, ClampSettings(s).MarketVolatility)
	assert.InDelta(t, 0.00001, VolatilityFraction(s), 1e-12)

	s.MarketVolatility = 10_000
	assert.Equal(t, 1.0, ClampSettings(s).MarketVolatility)
	assert.InDelta(t, 0.01, VolatilityFraction(s), 1e-12)

	s.StartingCash = -5
	assert.Equal(t, 0.0, ClampSettings(s).StartingCash)
	s.StartingCash = 1e12
	assert.Equal(t, float64(MaxStartingCash), ClampSettings(s).StartingCash)

	s.GameDuration = 0
	assert.Equal(t, 1, ClampSettings(s).GameDuration)
	s.GameDuration = 600
	assert.Equal(t, 60, ClampSettings(s).GameDuration)

	s.OpeningPrice = 0
	assert.Equal(t, 0.01, ClampSettings(s).OpeningPrice)
	s.OpeningPrice = 1e9
	assert.Equal(t, 10_000.0, ClampSettings(s).OpeningPrice)
}

func TestProperty_ClampedValuesInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := protocol.GameSettings{
			StartingCash:     rapid.Float64Range(-1e12, 1e12).Draw(t, "cash"),
			OpeningPrice:     rapid.Float64Range(-1e6, 1e9).Draw(t, "open"),
			MarketVolatility: rapid.Float64Range(-100, 1e6).Draw(t, "vol"),
			GameDuration:     rapid.IntRange(-100, 10000).Draw(t, "dur"),
			Bots:             rapid.IntRange(-100, 1e7).Draw(t, "bots"),
		}
		c := ClampSettings(s)
		if c.Bots < MinBots || c.Bots > MaxBots {
			t.Fatalf("bots out of range: %d", c.Bots)
		}
		if c.MarketVolatility < MinVolatilityPct || c.MarketVolatility > MaxVolatilityPct {
			t.Fatalf("volatility out of range: %v", c.MarketVolatility)
		}
		if c.StartingCash < MinStartingCash || c.StartingCash > MaxStartingCash {
			t.Fatalf("cash out of range: %v", c.StartingCash)
		}
		if c.GameDuration < MinGameDurationMin || c.GameDuration > MaxGameDurationMin {
			t.Fatalf("duration out of range: %d", c.GameDuration)
		}
		if c.OpeningPrice < MinOpeningPrice || c.OpeningPrice > MaxOpeningPrice {
			t.Fatalf("price out of range: %v", c.OpeningPrice)
		}
	})
}

func TestApplyPatchSeedZero(t *testing.T) {
	s := DefaultSettings()
	zero := int64(0)
	s = ApplyPatch(s, protocol.SettingsPatch{Seed: &zero})
	assert.Equal(t, int64(0), s.Seed, "seed 0 is a value, not unset")

	s = ApplyPatch(s, protocol.SettingsPatch{})
	assert.Equal(t, int64(0), s.Seed, "absent seed keeps previous value")
}
