package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/prepportal/internal/errors"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(userMiddleware)
		r.Get("/progress", s.handleListProgress)
		r.Delete("/progress", s.handleResetProgress)
		r.Put("/progress/{track}/{day}", s.handleUpdateProgress)
		r.Get("/stats", s.handleGetStats)
		r.Put("/stats", s.handleUpdateStats)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handleError(w, r, errors.NewNotFoundError("route", r.URL.Path))
	})
	return r
}
