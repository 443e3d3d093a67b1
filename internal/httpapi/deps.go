// Package httpapi mounts the OpenAI-compatible HTTP surface: the chat
// completions lifecycle (classify, route, attempt, fall back) plus the
// models, health, stats, config, and reload endpoints.
package httpapi

import (
	"time"

	"github.com/openfreerouter/freerouter/internal/classify"
	"github.com/openfreerouter/freerouter/internal/config"
	"github.com/openfreerouter/freerouter/internal/health"
	"github.com/openfreerouter/freerouter/internal/metrics"
	"github.com/openfreerouter/freerouter/internal/router"
	"github.com/openfreerouter/freerouter/internal/stats"
)

// Snapshot is the immutable per-request view of the running configuration.
// Handlers take one snapshot at request start and hold it for the request's
// duration, so a concurrent reload never tears state mid-request.
type Snapshot struct {
	Config     *config.Config
	Classifier *classify.Classifier
	Selector   *router.Selector
	Adapters   *router.Registry

	Timeouts     map[router.Tier]time.Duration
	StallTimeout time.Duration
}

// Dependencies carries everything the handlers need. Snapshot is a function
// so reloads swap the routing state without remounting routes.
type Dependencies struct {
	Snapshot func() *Snapshot

	Stats   *stats.Collector
	Metrics *metrics.Registry
	Health  *health.Tracker

	Version string

	RedactedConfig func() map[string]any
	ReloadCreds    func() error
	ReloadConfig   func() error
}
