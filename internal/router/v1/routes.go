package v1

import (
	"net/http"

	"github.com/evyataryagoni/iptracker/internal/handler"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures the /v1 JSON API. rateLimit guards the route
// that calls the upstream lookup service.
func SetupRoutes(h *handler.TrackerHandler, rateLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/state", h.State)
	r.Put("/input", h.UpdateInput)
	r.With(rateLimit).Post("/lookup", h.Lookup)
	r.Post("/map/init", h.InitMap)
	r.Get("/layout", h.Layout)

	return r
}
