package classify

import (
	"regexp"

	"github.com/openfreerouter/freerouter/internal/router"
)

// Override is a user-supplied tier directive found at the start of the
// prompt. The directive is a user contract: it bypasses classification
// entirely and the prefix never reaches the upstream.
type Override struct {
	Tier     router.Tier
	Word     string
	Stripped string
}

// The three directive shapes, each anchored at the start and
// case-insensitive: "/max ...", "deep mode: ...", "[complex] ...".
var (
	slashRe   = regexp.MustCompile(`(?is)^/([a-z]+)\s+(.*)$`)
	modeRe    = regexp.MustCompile(`(?is)^([a-z]+)\s+mode[:,\s]+(.*)$`)
	bracketRe = regexp.MustCompile(`(?is)^\[([a-z]+)\]\s?(.*)$`)
)

// DetectOverride checks the classification input for a mode directive.
// Patterns are tried in order; a matched word outside the alias table is not
// an override and the text is left untouched.
func DetectOverride(input string) (Override, bool) {
	for _, re := range []*regexp.Regexp{slashRe, modeRe, bracketRe} {
		m := re.FindStringSubmatch(input)
		if m == nil {
			continue
		}
		tier, ok := router.TierFromAlias(m[1])
		if !ok {
			continue
		}
		return Override{Tier: tier, Word: m[1], Stripped: m[2]}, true
	}
	return Override{}, false
}

// StripOverride removes the directive prefix from text if present, for
// rewriting the forwarded user message.
func StripOverride(text string) string {
	if o, ok := DetectOverride(text); ok {
		return o.Stripped
	}
	return text
}
