package providers

import (
	"fmt"
	"strconv"
	"strings"
)

// maxErrorBody caps how much of an upstream error body is carried in the
// error message.
const maxErrorBody = 512

// StatusError captures a non-2xx provider response: the status, a bounded
// slice of the body for error messages and logs, and any Retry-After hint.
type StatusError struct {
	StatusCode     int
	Body           string
	RetryAfterSecs int
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, body)
}

// ParseRetryAfter records a Retry-After header value when it is a plain
// seconds count. HTTP-date forms are ignored.
func (e *StatusError) ParseRetryAfter(header string) {
	header = strings.TrimSpace(header)
	if header == "" {
		return
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		e.RetryAfterSecs = secs
	}
}
