package router

import (
	"fmt"
	"math"
)

// TierRoute names the primary model for a tier plus its ordered fallbacks.
type TierRoute struct {
	Primary  string   `json:"primary"`
	Fallback []string `json:"fallback,omitempty"`
}

// TierTable maps each tier to its route. Every tier in an active table must
// have a non-empty primary; Validate enforces that.
type TierTable map[Tier]TierRoute

// Validate checks that all four tiers resolve to a primary model.
func (t TierTable) Validate() error {
	for _, tier := range AllTiers() {
		route, ok := t[tier]
		if !ok || route.Primary == "" {
			return fmt.Errorf("tier %s has no primary model", tier)
		}
	}
	return nil
}

// DefaultTierTable routes each tier to a current-generation Anthropic model.
func DefaultTierTable() TierTable {
	return TierTable{
		TierSimple:    {Primary: "anthropic/claude-haiku-4-5", Fallback: []string{"anthropic/claude-sonnet-4-5"}},
		TierMedium:    {Primary: "anthropic/claude-sonnet-4-5", Fallback: []string{"anthropic/claude-haiku-4-5"}},
		TierComplex:   {Primary: "anthropic/claude-opus-4-6", Fallback: []string{"anthropic/claude-sonnet-4-5"}},
		TierReasoning: {Primary: "anthropic/claude-opus-4-6", Fallback: []string{"anthropic/claude-sonnet-4-5"}},
	}
}

// Selector resolves a tier to a routing decision plus a fallback chain.
// It is a pure value; a new one is built per config snapshot.
type Selector struct {
	Tiers         TierTable
	AgenticTiers  TierTable // nil means no agentic split configured
	Catalog       Catalog
	BaselineModel string // empty means use the built-in Opus pricing
}

// chainHeadroom is the context-window safety factor: a model is dropped from
// the chain when its window is under totalTokens * chainHeadroom.
const chainHeadroom = 1.1

// table picks the active tier table for a request. The agentic table is only
// consulted when configured.
func (s *Selector) table(agentic bool) TierTable {
	if agentic && s.AgenticTiers != nil {
		return s.AgenticTiers
	}
	return s.Tiers
}

// Chain returns the fallback chain [primary, fallbacks...] for a tier with
// duplicates removed, filtered by context window. If filtering would empty
// the chain, the unfiltered chain is returned instead.
func (s *Selector) Chain(tier Tier, agentic bool, totalTokens int) []string {
	route := s.table(agentic)[tier]

	chain := make([]string, 0, 1+len(route.Fallback))
	seen := map[string]bool{}
	for _, m := range append([]string{route.Primary}, route.Fallback...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		chain = append(chain, m)
	}

	if totalTokens <= 0 {
		return chain
	}
	need := int(math.Ceil(float64(totalTokens) * chainHeadroom))
	filtered := make([]string, 0, len(chain))
	for _, m := range chain {
		p, ok := s.Catalog.Lookup(m)
		if ok && p.ContextWindow > 0 && p.ContextWindow < need {
			continue
		}
		filtered = append(filtered, m)
	}
	if len(filtered) == 0 {
		return chain
	}
	return filtered
}

// Decide produces the routing decision for a classified request.
// maxOutputTokens is the caller's output budget (or a default when unset).
func (s *Selector) Decide(tier Tier, agentic bool, confidence float64, method, reasoning string, inputTokens, maxOutputTokens int) Decision {
	primary := s.table(agentic)[tier].Primary
	estimate := s.Catalog.EstimateCost(primary, inputTokens, maxOutputTokens)
	baseline := s.Catalog.BaselineCost(s.BaselineModel, inputTokens, maxOutputTokens)
	return Decision{
		Model:        primary,
		Tier:         tier,
		Confidence:   confidence,
		Method:       method,
		Reasoning:    reasoning,
		CostEstimate: estimate,
		BaselineCost: baseline,
		Savings:      Savings(baseline, estimate),
	}
}

// DecideExplicit builds the decision for a caller-specified model: no
// classification, single-entry chain, tier reported as EXPLICIT.
func (s *Selector) DecideExplicit(modelID string, inputTokens, maxOutputTokens int) Decision {
	estimate := s.Catalog.EstimateCost(modelID, inputTokens, maxOutputTokens)
	baseline := s.Catalog.BaselineCost(s.BaselineModel, inputTokens, maxOutputTokens)
	return Decision{
		Model:        modelID,
		Tier:         TierComplex,
		Explicit:     true,
		Confidence:   1,
		Method:       "explicit",
		Reasoning:    "caller specified model " + modelID,
		CostEstimate: estimate,
		BaselineCost: baseline,
		Savings:      Savings(baseline, estimate),
	}
}
