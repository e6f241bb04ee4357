/*
server.go - HTTP router setup

PURPOSE:
  Wires the API handlers onto a chi router with standard middleware
  (request IDs, logging, panic recovery) and permissive CORS for
  browser clients.

SEE ALSO:
  - handlers.go: the handlers mounted here
  - cmd/server/main.go: process entry point
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the HTTP router for the given handler.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/milestone-sets", func(r chi.Router) {
		r.Get("/", h.ListMilestoneSets)
		r.Post("/", h.CreateMilestoneSet)
		r.Get("/{id}", h.GetMilestoneSet)
		r.Delete("/{id}", h.DeleteMilestoneSet)
	})

	r.Route("/api/holidays", func(r chi.Router) {
		r.Get("/", h.ListHolidays)
		r.Post("/", h.CreateHoliday)
		r.Delete("/{id}", h.DeleteHoliday)
	})

	r.Route("/api/entities/{id}", func(r chi.Router) {
		r.Get("/config", h.GetScheduleConfig)
		r.Put("/config", h.PutScheduleConfig)
		r.Get("/schedule/{year}", h.GenerateSchedule)
	})

	return r
}
