package httpapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/openfreerouter/freerouter/internal/router"
)

// ModelsHandler serves GET /v1/models: the "auto" pseudo-model plus every
// model in the price catalog, OpenAI list shape.
func ModelsHandler(d Dependencies) http.HandlerFunc {
	type modelObj struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		Created int64  `json:"created"`
		OwnedBy string `json:"owned_by"`
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := d.Snapshot()
		created := time.Now().Unix()

		data := []modelObj{{
			ID:      "auto",
			Object:  "model",
			Created: created,
			OwnedBy: router.Namespace,
		}}
		ids := make([]string, 0, len(snap.Config.Models))
		for id := range snap.Config.Models {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			provider, _ := router.SplitModelID(id)
			data = append(data, modelObj{
				ID:      id,
				Object:  "model",
				Created: created,
				OwnedBy: provider,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
		})
	}
}

// HealthHandler serves GET /health with process status, uptime, counters,
// and per-upstream availability.
func HealthHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"version":   d.Version,
			"uptime":    d.Stats.Uptime().String(),
			"stats":     d.Stats.Summary(),
			"upstreams": d.Health.AllStats(),
		})
	}
}

// StatsHandler serves GET /stats.
func StatsHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"stats":     d.Stats.Summary(),
			"upstreams": d.Health.AllStats(),
		})
	}
}

// ConfigHandler serves GET /config: the active config with every
// credential-bearing value masked.
func ConfigHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(d.RedactedConfig())
	}
}

// ReloadHandler serves POST /reload: credentials only.
func ReloadHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if err := d.ReloadCreds(); err != nil {
			writeOpenAIError(w, "credential reload: "+err.Error(), "server_error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "reloaded": "credentials"})
	}
}

// ReloadConfigHandler serves POST /reload-config: config file plus
// credentials. A parse or validation failure leaves the running snapshot
// active and reports the error.
func ReloadConfigHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if err := d.ReloadConfig(); err != nil {
			writeOpenAIError(w, "config reload: "+err.Error(), "server_error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "reloaded": "config"})
	}
}
