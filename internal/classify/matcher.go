package classify

import (
	"regexp"
	"strings"
)

// matcher counts keyword occurrences in lowercased text. Single Latin words
// are matched on word boundaries (so "not" never fires inside "notebook");
// phrases and non-Latin keywords are matched by substring.
type matcher struct {
	phrases []string
	wordRe  *regexp.Regexp
}

func newMatcher(keywords []string) *matcher {
	m := &matcher{}
	var words []string
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if isBareWord(kw) {
			words = append(words, regexp.QuoteMeta(kw))
		} else {
			m.phrases = append(m.phrases, kw)
		}
	}
	if len(words) > 0 {
		m.wordRe = regexp.MustCompile(`\b(?:` + strings.Join(words, "|") + `)\b`)
	}
	return m
}

// count returns the total keyword hits in text. text must be lowercased.
func (m *matcher) count(text string) int {
	n := 0
	if m.wordRe != nil {
		n += len(m.wordRe.FindAllStringIndex(text, -1))
	}
	for _, p := range m.phrases {
		n += strings.Count(text, p)
	}
	return n
}

// isBareWord reports whether kw is a single ASCII word (letters and
// apostrophes only).
func isBareWord(kw string) bool {
	for _, r := range kw {
		if (r < 'a' || r > 'z') && r != '\'' {
			return false
		}
	}
	return len(kw) > 0
}
