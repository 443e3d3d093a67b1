// Package stats keeps in-process request counters for the /stats and /health
// endpoints. Counters reset on restart; durable metrics live in Prometheus.
package stats

import (
	"sync"
	"time"

	"github.com/openfreerouter/freerouter/internal/router"
)

// Record is a single data point for one completed routing attempt.
type Record struct {
	Tier      router.Tier
	Model     string
	Provider  string
	LatencyMs float64
	Savings   float64 // estimated USD saved vs the baseline model
	Fallback  bool    // served by a fallback, not the tier primary
	Err       bool
	Timeout   bool
}

// Summary is the JSON shape served by /stats.
type Summary struct {
	TotalRequests  int64                  `json:"total_requests"`
	Classified     int64                  `json:"classified"`
	Explicit       int64                  `json:"explicit"`
	Errors         int64                  `json:"errors"`
	Timeouts       int64                  `json:"timeouts"`
	Fallbacks      int64                  `json:"fallbacks"`
	ByTier         map[string]int64       `json:"by_tier"`
	ByModel        map[string]ModelStats  `json:"by_model"`
	EstimatedSaved float64                `json:"estimated_savings_usd"`
	UptimeSecs     float64                `json:"uptime_secs"`
}

// ModelStats aggregates per-model counters.
type ModelStats struct {
	Requests     int64   `json:"requests"`
	Errors       int64   `json:"errors"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// Collector accumulates counters since process start.
type Collector struct {
	start time.Time

	mu        sync.Mutex
	total     int64
	classed   int64
	explicit  int64
	errors    int64
	timeouts  int64
	fallbacks int64
	byTier    map[router.Tier]int64
	byModel   map[string]*modelAccum
	saved     float64
}

type modelAccum struct {
	requests int64
	errors   int64
	latency  float64 // running weighted average
}

func NewCollector() *Collector {
	return &Collector{
		start:   time.Now(),
		byTier:  make(map[router.Tier]int64),
		byModel: make(map[string]*modelAccum),
	}
}

// RecordDecision counts a routing decision before any upstream attempt.
func (c *Collector) RecordDecision(d *router.Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	if d.Explicit {
		c.explicit++
	} else {
		c.classed++
		c.byTier[d.Tier]++
	}
}

// Record counts the outcome of an upstream attempt.
func (c *Collector) Record(r Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.Err {
		c.errors++
	}
	if r.Timeout {
		c.timeouts++
	}
	if r.Fallback {
		c.fallbacks++
	}
	if !r.Err {
		c.saved += r.Savings
	}

	m, ok := c.byModel[r.Model]
	if !ok {
		m = &modelAccum{}
		c.byModel[r.Model] = m
	}
	m.requests++
	if r.Err {
		m.errors++
	} else if m.requests == 1 {
		m.latency = r.LatencyMs
	} else {
		m.latency = m.latency*0.9 + r.LatencyMs*0.1
	}
}

// Summary returns a copy of all counters.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{
		TotalRequests:  c.total,
		Classified:     c.classed,
		Explicit:       c.explicit,
		Errors:         c.errors,
		Timeouts:       c.timeouts,
		Fallbacks:      c.fallbacks,
		ByTier:         make(map[string]int64, len(c.byTier)),
		ByModel:        make(map[string]ModelStats, len(c.byModel)),
		EstimatedSaved: c.saved,
		UptimeSecs:     time.Since(c.start).Seconds(),
	}
	for tier, n := range c.byTier {
		s.ByTier[tier.String()] = n
	}
	for model, m := range c.byModel {
		s.ByModel[model] = ModelStats{
			Requests:     m.requests,
			Errors:       m.errors,
			AvgLatencyMs: m.latency,
		}
	}
	return s
}

// Uptime returns the duration since the collector was created.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.start)
}
