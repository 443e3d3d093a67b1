package classify

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/openfreerouter/freerouter/internal/router"
)

// ErrNoUserMessage is returned when the message list has no user turn to
// classify.
var ErrNoUserMessage = errors.New("messages must contain at least one user message")

// contextMessages is how many trailing conversation turns feed the
// classifier; contextTruncate caps each non-final turn.
const (
	contextMessages = 3
	contextTruncate = 500
)

// Extracted is the classifier input derived from a message list.
type Extracted struct {
	// SystemPrompt is every system and developer message joined in order.
	// It is excluded from complexity scoring.
	SystemPrompt string

	// Prompt is the classification input: recent context (truncated) plus
	// the full final user turn.
	Prompt string

	// LastUserIndex is the position of the final user message in the
	// original list, for mode-override stripping.
	LastUserIndex int
}

// Extract splits messages into system prompt and classification input.
// The last three non-system turns form the context; every turn except the
// final user one is truncated to 500 characters so a short follow-up still
// inherits the discussion without a long transcript dominating the score.
func Extract(messages []router.Message) (Extracted, error) {
	var system []string
	var convo []router.Message
	convoIdx := make([]int, 0, len(messages))

	for i, m := range messages {
		switch m.Role {
		case "system", "developer":
			if s := m.Content.Flatten(); s != "" {
				system = append(system, s)
			}
		default:
			convo = append(convo, m)
			convoIdx = append(convoIdx, i)
		}
	}

	lastUser := -1
	for i := len(convo) - 1; i >= 0; i-- {
		if convo[i].Role == "user" {
			lastUser = i
			break
		}
	}
	if lastUser < 0 {
		return Extracted{}, ErrNoUserMessage
	}

	start := len(convo) - contextMessages
	if start < 0 {
		start = 0
	}
	var parts []string
	for i := start; i < len(convo); i++ {
		if i == lastUser {
			continue
		}
		parts = append(parts, truncate(convo[i].Content.Flatten(), contextTruncate))
	}
	parts = append(parts, convo[lastUser].Content.Flatten())

	return Extracted{
		SystemPrompt:  strings.Join(system, "\n"),
		Prompt:        strings.Join(parts, "\n"),
		LastUserIndex: convoIdx[lastUser],
	}, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
