package handler

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/httputil"
)

type batchRequest struct {
	FileIDs []int64 `json:"file_ids"`
}

func (r batchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FileIDs, validation.Required, validation.Length(1, 500)),
	)
}

// BatchDelete handles POST /files/batch/delete
func (h *FileHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req batchRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.storage.BulkDelete(r.Context(), actor, req.FileIDs))
}

type batchMoveRequest struct {
	FileIDs []int64 `json:"file_ids"`
	Folder  string  `json:"folder"`
}

func (r batchMoveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FileIDs, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.Folder, validation.Required),
	)
}

// BatchMove handles POST /files/batch/move
func (h *FileHandler) BatchMove(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req batchMoveRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.storage.BulkMove(r.Context(), actor, req.FileIDs, req.Folder))
}

type batchAssignRequest struct {
	FileIDs      []int64               `json:"file_ids"`
	AssignedToID models.OptionalInt64  `json:"assigned_to_id"`
	Instruction  models.OptionalString `json:"instruction"`
	DueDate      models.OptionalTime   `json:"due_date"`
}

func (r batchAssignRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FileIDs, validation.Required, validation.Length(1, 500)),
	)
}

// BatchAssign handles POST /files/batch/assign
func (h *FileHandler) BatchAssign(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req batchAssignRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, h.logger, err)
		return
	}
	result := h.storage.BulkAssign(r.Context(), actor, req.FileIDs, req.AssignedToID, req.Instruction, req.DueDate)
	httputil.RespondJSON(w, http.StatusOK, result)
}

// BatchDownload handles POST /files/batch/download
func (h *FileHandler) BatchDownload(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	var req batchRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="files.zip"`)
	if err := h.storage.BulkDownload(r.Context(), w, req.FileIDs); err != nil {
		var httpErr domain.HTTPError
		if errors.As(err, &httpErr) {
			// Failed before any byte went out; headers can still be replaced.
			httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
			return
		}
		// Mid-stream failure; the response is already committed.
		h.logger.Error("batch download failed", "error", err)
	}
}
