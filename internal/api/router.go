package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/tourservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, is mounted at GET /events inside the auth group and
// receives the change events the handlers publish.
func NewRouter(svc *tourservice.Service, authEnabled bool, token string, broker *sse.Broker) chi.Router {
	h := NewHandler(svc, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Project document.
	r.Get("/project", h.GetProject)
	r.Put("/project/title", h.SetTitle)

	// Scenes.
	r.Post("/import", h.Import)
	r.Route("/scenes/{sceneID}", func(r chi.Router) {
		r.Delete("/", h.DeleteScene)
		r.Put("/name", h.RenameScene)
		r.Put("/view", h.SetInitialView)
		r.Put("/panorama", h.ReimportScene)

		// Hotspots.
		r.Post("/hotspots", h.AddHotspot)
		r.Delete("/hotspots", h.ClearHotspots)
		r.Put("/hotspots/{hotspotID}", h.UpdateHotspot)
		r.Delete("/hotspots/{hotspotID}", h.DeleteHotspot)
	})

	// Normalized payloads for live preview.
	r.Get("/assets/{sceneID}", h.GetAsset)

	// Export.
	r.Post("/export", h.Export)

	// SSE endpoint (protected by same auth middleware).
	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	return r
}
