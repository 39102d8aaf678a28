package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// NewRouter wires the handler onto the HTTP surface. CORS is wide
// open: the overlay UI talks to the daemon from a webview origin.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	}))

	r.Route("/spots", func(rr chi.Router) {
		rr.Post("/", h.CreateSpot)
		rr.Get("/", h.ListSpots)
		rr.Get("/{id}/samples", h.ListSamples)
		rr.Get("/{id}/rate", h.SpotRate)
	})

	r.Post("/samples", h.RecordSample)
	r.Get("/rates", h.ListRates)

	r.Get("/active-spot", h.GetActiveSpot)
	r.Put("/active-spot", h.SetActiveSpot)

	r.Get("/interval", h.GetInterval)
	r.Put("/interval", h.SetInterval)

	r.Route("/sampler", func(rr chi.Router) {
		rr.Get("/", h.SamplerStatus)
		rr.Post("/start", h.StartSampler)
		rr.Post("/stop", h.StopSampler)
	})

	r.Put("/manual", h.SetManualValues)

	r.Get("/monitors", h.ListMonitors)

	r.Route("/profiles", func(rr chi.Router) {
		rr.Get("/{name}", h.ReadProfile)
		rr.Put("/{name}", h.WriteProfile)
	})

	return r
}
