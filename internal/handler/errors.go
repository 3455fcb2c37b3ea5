package handler

import (
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/httputil"
)

// handleError maps an error to its HTTP response. Domain errors carry their
// own status code; validation errors from request DTOs become 400; anything
// else is a logged 500 with a generic body.
func handleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
		return
	}

	var valErrs validation.Errors
	if errors.As(err, &valErrs) {
		httputil.RespondError(w, http.StatusBadRequest, valErrs.Error())
		return
	}

	logger.Error("unhandled error", "error", err)
	httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
}

// requireIdentity pulls the authenticated identity or writes a 401.
func requireIdentity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := httputil.GetIdentity(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Authentication required")
	}
	return id, ok
}
