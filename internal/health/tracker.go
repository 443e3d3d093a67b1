// Package health tracks per-upstream availability from observed request
// outcomes. Repeated failures move a model through degraded to down with a
// short cooldown; the states are surfaced on /health for operators and do
// not alter routing, which stays purely tier-driven.
package health

import (
	"sync"
	"time"
)

// State is the coarse availability of one upstream model.
type State string

const (
	StateHealthy  State = "healthy"
	StateDegraded State = "degraded"
	StateDown     State = "down"
)

// Stats captures runtime health for a single upstream model.
type Stats struct {
	Model         string    `json:"model"`
	State         State     `json:"state"`
	TotalRequests int64     `json:"total_requests"`
	TotalErrors   int64     `json:"total_errors"`
	ConsecErrors  int       `json:"consec_errors"`
	LastError     string    `json:"last_error,omitempty"`
	LastErrorAt   time.Time `json:"last_error_at,omitempty"`
	LastSuccessAt time.Time `json:"last_success_at,omitempty"`
	CooldownUntil time.Time `json:"cooldown_until,omitempty"`
}

// TrackerConfig sets the state-transition thresholds.
type TrackerConfig struct {
	ConsecErrorsForDegraded int
	ConsecErrorsForDown     int
	CooldownDuration        time.Duration
}

func DefaultConfig() TrackerConfig {
	return TrackerConfig{
		ConsecErrorsForDegraded: 2,
		ConsecErrorsForDown:     5,
		CooldownDuration:        30 * time.Second,
	}
}

// Tracker records outcomes keyed by namespaced model id.
type Tracker struct {
	cfg TrackerConfig

	mu    sync.RWMutex
	stats map[string]*Stats
}

func NewTracker(cfg TrackerConfig) *Tracker {
	return &Tracker{
		cfg:   cfg,
		stats: make(map[string]*Stats),
	}
}

// RecordSuccess resets the error streak and clears any cooldown.
func (t *Tracker) RecordSuccess(model string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.getOrCreate(model)
	s.TotalRequests++
	s.ConsecErrors = 0
	s.LastSuccessAt = time.Now()
	s.State = StateHealthy
	s.CooldownUntil = time.Time{}
}

// RecordError advances the error streak and may transition the model to
// degraded or down.
func (t *Tracker) RecordError(model, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.getOrCreate(model)
	s.TotalRequests++
	s.TotalErrors++
	s.ConsecErrors++
	s.LastError = errMsg
	s.LastErrorAt = time.Now()

	if s.ConsecErrors >= t.cfg.ConsecErrorsForDown {
		s.State = StateDown
		s.CooldownUntil = time.Now().Add(t.cfg.CooldownDuration)
	} else if s.ConsecErrors >= t.cfg.ConsecErrorsForDegraded {
		s.State = StateDegraded
	}
}

// IsAvailable reports whether a model should receive requests. Unknown
// models are assumed available; a down model becomes available again once
// its cooldown expires.
func (t *Tracker) IsAvailable(model string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.stats[model]
	if !ok {
		return true
	}
	if s.State == StateDown && time.Now().Before(s.CooldownUntil) {
		return false
	}
	return true
}

// GetStats returns a copy of the health stats for one model.
func (t *Tracker) GetStats(model string) *Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.stats[model]
	if !ok {
		return &Stats{Model: model, State: StateHealthy}
	}
	cp := *s
	return &cp
}

// AllStats returns a copy of health stats for every model seen so far.
func (t *Tracker) AllStats() []Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]Stats, 0, len(t.stats))
	for _, s := range t.stats {
		result = append(result, *s)
	}
	return result
}

func (t *Tracker) getOrCreate(model string) *Stats {
	s, ok := t.stats[model]
	if !ok {
		s = &Stats{Model: model, State: StateHealthy}
		t.stats[model] = s
	}
	return s
}
