package handler

import (
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/httputil"
	"github.com/HaronZ/cdrrmo-file-manager/internal/service/preferences"
)

// PreferencesHandler serves per-user view settings.
type PreferencesHandler struct {
	logger *slog.Logger
	prefs  *preferences.Service
}

func NewPreferencesHandler(logger *slog.Logger, prefs *preferences.Service) *PreferencesHandler {
	return &PreferencesHandler{logger: logger, prefs: prefs}
}

// Get handles GET /preferences
func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	prefs, err := h.prefs.Get(r.Context(), actor.UserID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, prefs)
}

type preferencesRequest struct {
	ViewMode       *string `json:"view_mode"`
	VisibleColumns *string `json:"visible_columns"`
	SortKey        *string `json:"sort_key"`
	SortDirection  *string `json:"sort_direction"`
	Theme          *string `json:"theme"`
}

func (r preferencesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ViewMode, validation.When(r.ViewMode != nil, validation.In("grid", "list"))),
		validation.Field(&r.SortDirection, validation.When(r.SortDirection != nil, validation.In("asc", "desc"))),
		validation.Field(&r.Theme, validation.When(r.Theme != nil, validation.In("light", "dark", "system"))),
	)
}

// Update handles PUT /preferences
func (h *PreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req preferencesRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, h.logger, err)
		return
	}

	updated, err := h.prefs.Update(r.Context(), actor.UserID, &models.UserPreferencesUpdate{
		ViewMode:       req.ViewMode,
		VisibleColumns: req.VisibleColumns,
		SortKey:        req.SortKey,
		SortDirection:  req.SortDirection,
		Theme:          req.Theme,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, updated)
}
