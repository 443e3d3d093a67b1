package httpapi

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the full HTTP surface. The chat and models endpoints
// are mounted with and without the /v1 prefix; some OpenAI clients use one,
// some the other.
func MountRoutes(r chi.Router, d Dependencies) {
	chat := ChatCompletionsHandler(d)
	models := ModelsHandler(d)

	r.Post("/v1/chat/completions", chat)
	r.Post("/chat/completions", chat)
	r.Get("/v1/models", models)
	r.Get("/models", models)

	r.Get("/health", HealthHandler(d))
	r.Get("/stats", StatsHandler(d))
	r.Get("/config", ConfigHandler(d))
	r.Post("/reload", ReloadHandler(d))
	r.Post("/reload-config", ReloadConfigHandler(d))

	r.Handle("/metrics", d.Metrics.Handler())

	r.NotFound(NotFoundHandler())
	r.MethodNotAllowed(NotFoundHandler())
}
