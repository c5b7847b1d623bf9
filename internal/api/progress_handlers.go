package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/logger"
	"github.com/vytor/prepportal/internal/models"
)

var errNoDatabase = errors.New("database not configured")

// maxBodyBytes bounds PUT bodies. A day's task map is small.
const maxBodyBytes = 1 << 20

func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	track := r.URL.Query().Get("track")
	logger.FromContext(ctx).Debug("handling list progress: track=%q", track)

	rows, err := s.ProgressService.ListProgress(ctx, userFromContext(ctx), track)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, r, rows)
}

func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	track := chi.URLParam(r, "track")
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		handleError(w, r, errors.NewValidationError("day", "must be an integer"))
		return
	}

	var update models.DayUpdate
	if err := decodeBody(w, r, &update); err != nil {
		handleError(w, r, err)
		return
	}
	if update.TasksCompleted == nil {
		update.TasksCompleted = models.TaskFlags{}
	}

	stored, err := s.ProgressService.UpdateProgress(ctx, userFromContext(ctx), track, day, update)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeData(w, r, stored)
}

func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.ProgressService.ResetProgress(ctx, userFromContext(ctx)); err != nil {
		handleError(w, r, err)
		return
	}
	writeMessage(w, r, "progress reset")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return errors.NewBadRequestError("invalid JSON body: " + err.Error())
	}
	return nil
}
