// Package config loads server configuration and owns the game-settings
// defaults and clamping rules.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/pitwars/pitwars/internal/protocol"
)

// Server holds process-level configuration, loaded from the
// environment.
type Server struct {
	Port     int
	LogLevel string
}

// Load reads server configuration from environment variables with
// defaults applied.
func Load() (*Server, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", 3000)
	v.SetDefault("LOG_LEVEL", "info")

	cfg := &Server{
		Port:     v.GetInt("PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d", cfg.Port)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q", cfg.LogLevel)
	}
	return cfg, nil
}

// Game-settings bounds.
const (
	MinBots = 0
	MaxBots = 50

	MinVolatilityPct = 0.001
	MaxVolatilityPct = 1

	MinStartingCash = 0
	MaxStartingCash = 999_999_999

	MinGameDurationMin = 1
	MaxGameDurationMin = 60

	MinOpeningPrice = 0.01
	MaxOpeningPrice = 10_000
)

// DefaultSettings returns the documented game-settings defaults.
func DefaultSettings() protocol.GameSettings {
	return protocol.GameSettings{
		StartingCash:     10_000,
		OpeningPrice:     1,
		Seed:             42,
		MarketVolatility: 5,
		GameDuration:     5,
		EnableRandomNews: true,
		Bots:             0,
		TickerName:       "AAPL",
	}
}

// ApplyPatch merges a partial update into settings. Seed 0 is a valid
// value: only absent fields keep their previous value.
func ApplyPatch(s protocol.GameSettings, patch protocol.SettingsPatch) protocol.GameSettings {
	if patch.StartingCash != nil {
		s.StartingCash = *patch.StartingCash
	}
	if patch.OpeningPrice != nil {
		s.OpeningPrice = *patch.OpeningPrice
	}
	if patch.Seed != nil {
		s.Seed = *patch.Seed
	}
	if patch.MarketVolatility != nil {
		s.MarketVolatility = *patch.MarketVolatility
	}
	if patch.GameDuration != nil {
		s.GameDuration = *patch.GameDuration
	}
	if patch.EnableRandomNews != nil {
		s.EnableRandomNews = *patch.EnableRandomNews
	}
	if patch.Bots != nil {
		s.Bots = *patch.Bots
	}
	if patch.TickerName != nil {
		s.TickerName = *patch.TickerName
	}
	if patch.BotSelection != nil {
		s.BotSelection = *patch.BotSelection
	}
	return s
}

// ClampSettings coerces every value into its documented range.
func ClampSettings(s protocol.GameSettings) protocol.GameSettings {
	s.Bots = clampInt(s.Bots, MinBots, MaxBots)
	s.MarketVolatility = clampFloat(s.MarketVolatility, MinVolatilityPct, MaxVolatilityPct)
	s.StartingCash = clampFloat(s.StartingCash, MinStartingCash, MaxStartingCash)
	s.GameDuration = clampInt(s.GameDuration, MinGameDurationMin, MaxGameDurationMin)
	s.OpeningPrice = clampFloat(s.OpeningPrice, MinOpeningPrice, MaxOpeningPrice)
	return s
}

// VolatilityFraction converts the percent-denominated setting into the
// fractional volatility the price model consumes.
func VolatilityFraction(s protocol.GameSettings) float64 {
	return clampFloat(s.MarketVolatility, MinVolatilityPct, MaxVolatilityPct) / 100
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
