package api

import (
	"net/http"

	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/logger"
)

// handleError centralizes error handling for HTTP responses
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var appErr *errors.AppError
	if !errors.As(err, &appErr) || appErr.Status == 0 {
		// Unknown errors, and portal-side kinds with no status, become internal errors
		appErr = errors.NewInternalError(err)
	}

	if appErr.Status >= 500 {
		log.Error("server error: %v", appErr)
	} else {
		log.Warn("client error: %v", appErr)
	}

	writeJSON(w, r, appErr.Status, envelope{
		Success: false,
		Error:   appErr.Code,
		Message: appErr.Message,
	})
}
