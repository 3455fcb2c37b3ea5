package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/httputil"
)

type createDirectoryRequest struct {
	Folder string `json:"folder"`
	Name   string `json:"name"`
}

func (r createDirectoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

// CreateDirectory handles POST /directories
func (h *FileHandler) CreateDirectory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req createDirectoryRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, h.logger, err)
		return
	}
	rec, err := h.storage.CreateDirectory(r.Context(), actor, req.Folder, req.Name)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, rec)
}

// DeleteDirectory handles DELETE /directories?folder=
func (h *FileHandler) DeleteDirectory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	removed, err := h.storage.DeleteDirectory(r.Context(), actor, r.URL.Query().Get("folder"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

// DownloadDirectory handles GET /directories/download?folder=
func (h *FileHandler) DownloadDirectory(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	folder := r.URL.Query().Get("folder")
	name := path.Base(folder)
	if name == "/" || name == "." || name == "" {
		name = "files"
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".zip"))
	if err := h.storage.DownloadDirectory(r.Context(), w, folder); err != nil {
		var httpErr domain.HTTPError
		if errors.As(err, &httpErr) {
			httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
			return
		}
		h.logger.Error("directory download failed", "folder", folder, "error", err)
	}
}
