// Package config loads the freerouter JSON config file, deep-merges it into
// built-in defaults, and exposes an atomically swappable snapshot.
package config

import (
	"fmt"

	"github.com/openfreerouter/freerouter/internal/classify"
	"github.com/openfreerouter/freerouter/internal/router"
)

// Provider describes one upstream endpoint.
type Provider struct {
	BaseURL string            `json:"baseUrl"`
	API     string            `json:"api"` // anthropic | openai
	Headers map[string]string `json:"headers,omitempty"`
}

// AuthConfig holds credential sources for a provider. Inline values support
// $ENV substitution; file paths support ~ expansion.
type AuthConfig struct {
	Token      string `json:"token,omitempty"`
	APIKey     string `json:"apiKey,omitempty"`
	TokenFile  string `json:"tokenFile,omitempty"`
	APIKeyFile string `json:"apiKeyFile,omitempty"`
}

// ThinkingConfig controls extended-thinking attachment per model.
type ThinkingConfig struct {
	// Adaptive lists model-id substrings that support adaptive thinking.
	Adaptive []string `json:"adaptive"`
	Enabled  struct {
		Models []string `json:"models,omitempty"`
		Budget int      `json:"budget"`
	} `json:"enabled"`
}

// Config is the full file-backed configuration.
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	LogLevel string `json:"logLevel"`

	Providers map[string]Provider `json:"providers"`

	Tiers        router.TierTable `json:"tiers"`
	AgenticTiers router.TierTable `json:"agenticTiers,omitempty"`
	// AgenticMode forces the agentic tier table for every request,
	// regardless of the classifier's agentic score.
	AgenticMode bool `json:"agenticMode,omitempty"`

	// TierBoundaries overrides scoring.boundaries when present.
	TierBoundaries *classify.Boundaries `json:"tierBoundaries,omitempty"`

	Thinking ThinkingConfig `json:"thinking"`

	Auth map[string]AuthConfig `json:"auth,omitempty"`

	Scoring classify.ScoringConfig `json:"scoring"`

	// Models overrides or extends the price catalog.
	Models        router.Catalog `json:"models,omitempty"`
	BaselineModel string         `json:"baselineModel,omitempty"`

	// Per-tier attempt deadlines, seconds.
	TierTimeoutSecs  map[router.Tier]int `json:"tierTimeoutSecs,omitempty"`
	StallTimeoutSecs int                 `json:"stallTimeoutSecs"`

	Tracing TracingConfig `json:"tracing"`
}

// TracingConfig is the opt-in OTel exporter configuration.
type TracingConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint,omitempty"`
}

// Default returns the built-in configuration used when no file is found.
func Default() *Config {
	return &Config{
		Host:     "127.0.0.1",
		Port:     8402,
		LogLevel: "info",
		Providers: map[string]Provider{
			"anthropic": {BaseURL: "https://api.anthropic.com", API: "anthropic"},
			"openai":    {BaseURL: "https://api.openai.com", API: "openai"},
		},
		Tiers:   router.DefaultTierTable(),
		Scoring: classify.DefaultScoringConfig(),
		Thinking: func() ThinkingConfig {
			var t ThinkingConfig
			t.Adaptive = []string{"opus-4-6", "opus-4.6"}
			t.Enabled.Budget = 4096
			return t
		}(),
		Models:        router.DefaultCatalog(),
		BaselineModel: "anthropic/claude-opus-4-6",
		TierTimeoutSecs: map[router.Tier]int{
			router.TierSimple:    30,
			router.TierMedium:    60,
			router.TierComplex:   120,
			router.TierReasoning: 120,
		},
		StallTimeoutSecs: 30,
	}
}

// Validate checks cross-references: every tier primary resolves to a known
// provider, and both tier tables are complete.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if err := c.Tiers.Validate(); err != nil {
		return fmt.Errorf("tiers: %w", err)
	}
	if c.AgenticTiers != nil {
		if err := c.AgenticTiers.Validate(); err != nil {
			return fmt.Errorf("agenticTiers: %w", err)
		}
	}
	check := func(table router.TierTable, name string) error {
		for tier, route := range table {
			for _, m := range append([]string{route.Primary}, route.Fallback...) {
				if m == "" {
					continue
				}
				provider, _ := router.SplitModelID(m)
				if _, ok := c.Providers[provider]; !ok {
					return fmt.Errorf("%s[%s]: model %q references unknown provider %q", name, tier, m, provider)
				}
			}
		}
		return nil
	}
	if err := check(c.Tiers, "tiers"); err != nil {
		return err
	}
	if c.AgenticTiers != nil {
		if err := check(c.AgenticTiers, "agenticTiers"); err != nil {
			return err
		}
	}
	for id, p := range c.Providers {
		if p.BaseURL == "" {
			return fmt.Errorf("provider %q: baseUrl is required", id)
		}
		if p.API != "anthropic" && p.API != "openai" {
			return fmt.Errorf("provider %q: api must be anthropic or openai, got %q", id, p.API)
		}
	}
	return nil
}

// EffectiveScoring returns the scoring config with the top-level
// tierBoundaries override applied.
func (c *Config) EffectiveScoring() classify.ScoringConfig {
	s := c.Scoring
	if c.TierBoundaries != nil {
		s.Boundaries = *c.TierBoundaries
	}
	return s
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
