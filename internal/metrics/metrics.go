// Package metrics exposes Prometheus counters for the /metrics endpoint.
// A private registry keeps the default Go collectors out of the scrape.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	RequestsTotal  *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
	FallbacksTotal *prometheus.CounterVec
	SavingsUSD     *prometheus.CounterVec
}

func New() *Registry {
	reg := prometheus.NewRegistry()
	m := &Registry{
		reg: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freerouter_requests_total",
			Help: "Total chat completion requests routed",
		}, []string{"tier", "model", "provider", "status"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "freerouter_request_latency_ms",
			Help:    "Upstream request latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		}, []string{"tier", "model", "provider"}),
		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freerouter_fallbacks_total",
			Help: "Requests served by a fallback model after a primary failure",
		}, []string{"provider"}),
		SavingsUSD: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freerouter_estimated_savings_usd_total",
			Help: "Estimated USD saved versus always routing to the baseline model",
		}, []string{"model"}),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestLatency, m.FallbacksTotal, m.SavingsUSD)
	return m
}

func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
