package api

import (
	"net/http"

	"github.com/vytor/prepportal/internal/models"
)

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := s.StatsService.GetStats(ctx, userFromContext(ctx))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, r, stats)
}

func (s *Server) handleUpdateStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var update models.StatsUpdate
	if err := decodeBody(w, r, &update); err != nil {
		handleError(w, r, err)
		return
	}

	stats, err := s.StatsService.UpdateStats(ctx, userFromContext(ctx), update)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, r, stats)
}
