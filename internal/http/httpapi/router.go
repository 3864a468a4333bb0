// Package httpapi assembles the chi router: middleware chain first, then the
// tool, output and reporting routes.
package httpapi

import (
	"time"

	"github.com/go-chi/chi/v5"

	"multitool/internal/http/handlers"
	"multitool/internal/infra"
	"multitool/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, lookup middleware.CountryLookup) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(app.Log, lookup))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	if cfg.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
	}

	r.Get("/api/health", app.Health)
	r.Get("/api/history", app.History)
	r.Get("/api/stats", app.Stats)

	// Static routes win over the wildcard in chi, so the video stubs can sit
	// alongside the generic dispatcher.
	r.Post("/api/video/download", app.VideoStub)
	r.Post("/api/video/extract-audio", app.VideoStub)
	r.Post("/api/video/trim", app.VideoStub)
	r.Post("/api/video/convert-format", app.VideoStub)
	r.Post("/api/{category}/{operation}", app.Dispatch)

	r.Get("/api/output/{filename}/info", app.OutputInfo)
	r.Get("/output/{filename}", app.ServeOutput)

	return r
}
