package router

import (
	"fmt"
	"strings"
)

// Tier is the complexity class a request is routed under. Ordering matters:
// minimum-tier upgrades compare tiers numerically.
type Tier int

const (
	TierSimple Tier = iota
	TierMedium
	TierComplex
	TierReasoning
)

var tierNames = [...]string{"SIMPLE", "MEDIUM", "COMPLEX", "REASONING"}

func (t Tier) String() string {
	if t < TierSimple || t > TierReasoning {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

// ParseTier resolves a tier name, case-insensitive. Returns false for
// anything outside the four-tier set.
func ParseTier(s string) (Tier, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SIMPLE":
		return TierSimple, true
	case "MEDIUM":
		return TierMedium, true
	case "COMPLEX":
		return TierComplex, true
	case "REASONING":
		return TierReasoning, true
	}
	return TierSimple, false
}

// AllTiers returns the four tiers in ascending order.
func AllTiers() []Tier {
	return []Tier{TierSimple, TierMedium, TierComplex, TierReasoning}
}

// modeAliases maps in-prompt override words to tiers. Unlisted words are not
// overrides.
var modeAliases = map[string]Tier{
	"simple":    TierSimple,
	"basic":     TierSimple,
	"cheap":     TierSimple,
	"medium":    TierMedium,
	"balanced":  TierMedium,
	"complex":   TierComplex,
	"advanced":  TierComplex,
	"max":       TierReasoning,
	"reasoning": TierReasoning,
	"think":     TierReasoning,
	"deep":      TierReasoning,
}

// TierFromAlias maps a mode-override word (e.g. "max", "cheap") to a tier.
func TierFromAlias(word string) (Tier, bool) {
	t, ok := modeAliases[strings.ToLower(word)]
	return t, ok
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	parsed, ok := ParseTier(string(b))
	if !ok {
		return fmt.Errorf("unknown tier %q", string(b))
	}
	*t = parsed
	return nil
}
