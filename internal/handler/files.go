package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/httputil"
	"github.com/HaronZ/cdrrmo-file-manager/internal/service/storage"
)

// FileHandler serves every file, folder, and version route.
type FileHandler struct {
	logger      *slog.Logger
	storage     *storage.Service
	maxBodySize int64
}

func NewFileHandler(logger *slog.Logger, store *storage.Service, maxFileSize int64) *FileHandler {
	return &FileHandler{
		logger:  logger,
		storage: store,
		// multipart framing overhead on top of the file itself
		maxBodySize: maxFileSize + 1<<20,
	}
}

// Upload handles POST /files/upload (multipart: file, folder, overwrite,
// assigned_to_id, instruction, due_date)
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	opts, err := parseUploadOptions(r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.storage.Upload(r.Context(), actor, r.FormValue("folder"), header.Filename, file, opts)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, rec)
}

// parseUploadOptions reads the optional upload form fields. Empty fields are
// simply absent; malformed ones are an error rather than a silent default.
func parseUploadOptions(r *http.Request) (storage.UploadOptions, error) {
	var opts storage.UploadOptions
	if v := r.FormValue("overwrite"); v != "" {
		overwrite, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid overwrite value %q", v)
		}
		opts.Overwrite = overwrite
	}
	if v := r.FormValue("assigned_to_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid assigned_to_id %q", v)
		}
		opts.AssignedToID = &id
	}
	if v := r.FormValue("instruction"); v != "" {
		opts.Instruction = &v
	}
	if v := r.FormValue("due_date"); v != "" {
		due, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, fmt.Errorf("invalid due_date %q, want RFC 3339", v)
		}
		opts.DueDate = &due
	}
	return opts, nil
}

// List handles GET /files?folder=
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	entries, err := h.storage.List(r.Context(), actor, r.URL.Query().Get("folder"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, entries)
}

// Search handles GET /files/search?query=
func (h *FileHandler) Search(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	entries, err := h.storage.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, entries)
}

type advancedSearchRequest struct {
	Query        string     `json:"query"`
	Folder       string     `json:"folder"`
	Extension    string     `json:"extension"`
	DateFrom     *time.Time `json:"date_from"`
	DateTo       *time.Time `json:"date_to"`
	UploaderID   int64      `json:"uploader_id"`
	Status       string     `json:"status"`
	AssignedToID int64      `json:"assigned_to_id"`
	HasDueDate   *bool      `json:"has_due_date"`
	OverdueOnly  bool       `json:"overdue_only"`
	Skip         int        `json:"skip"`
	Limit        int        `json:"limit"`
}

// AdvancedSearch handles POST /files/search/advanced
func (h *FileHandler) AdvancedSearch(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	var req advancedSearchRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := h.storage.AdvancedSearch(r.Context(), &models.FileFilter{
		Query:        req.Query,
		Folder:       req.Folder,
		Extension:    req.Extension,
		DateFrom:     req.DateFrom,
		DateTo:       req.DateTo,
		UploaderID:   req.UploaderID,
		Status:       req.Status,
		AssignedToID: req.AssignedToID,
		HasDueDate:   req.HasDueDate,
		OverdueOnly:  req.OverdueOnly,
		Skip:         req.Skip,
		Limit:        req.Limit,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, recs)
}

// Mine handles GET /files/mine
func (h *FileHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	recs, err := h.storage.Mine(r.Context(), actor)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, recs)
}

// AssignedToMe handles GET /files/assigned
func (h *FileHandler) AssignedToMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	recs, err := h.storage.AssignedTo(r.Context(), actor.UserID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, recs)
}

// AllAssigned handles GET /files/assigned/all
func (h *FileHandler) AllAssigned(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	recs, err := h.storage.AllAssigned(r.Context(), actor)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, recs)
}

// Sync handles POST /files/sync
func (h *FileHandler) Sync(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	created, err := h.storage.Sync(r.Context(), actor)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]int{"indexed": created})
}

// Details handles GET /files/{id}
func (h *FileHandler) Details(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	id, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, versionCount, err := h.storage.Details(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"file":          rec,
		"version_count": versionCount,
	})
}

// Download handles GET /files/{id}/download
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	id, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	path, rec, err := h.storage.Download(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Filename))
	http.ServeFile(w, r, path)
}

// Preview handles GET /files/{id}/preview
func (h *FileHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	id, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	path, rec, err := h.storage.Preview(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", rec.Filename))
	http.ServeFile(w, r, path)
}

// Delete handles DELETE /files/{id}
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.storage.Delete(r.Context(), actor, id); err != nil {
		handleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (r statusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.Length(1, 50)),
	)
}

// UpdateStatus handles PUT /files/{id}/status
func (h *FileHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req statusRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, h.logger, err)
		return
	}
	rec, err := h.storage.UpdateStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rec)
}

type assignRequest struct {
	AssignedToID models.OptionalInt64  `json:"assigned_to_id"`
	Instruction  models.OptionalString `json:"instruction"`
	DueDate      models.OptionalTime   `json:"due_date"`
}

// Assign handles PUT /files/{id}/assign
func (h *FileHandler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req assignRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.storage.Assign(r.Context(), actor, id, req.AssignedToID, req.Instruction, req.DueDate)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rec)
}

type renameRequest struct {
	Filename string `json:"filename"`
}

func (r renameRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Filename, validation.Required, validation.Length(1, 255)),
	)
}

// Rename handles PUT /files/{id}/rename
func (h *FileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req renameRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, h.logger, err)
		return
	}
	rec, err := h.storage.Rename(r.Context(), actor, id, req.Filename)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rec)
}

type moveRequest struct {
	Folder string `json:"folder"`
}

// Move handles PUT /files/{id}/move
func (h *FileHandler) Move(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req moveRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.storage.Move(r.Context(), actor, id, req.Folder)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rec)
}

// Versions handles GET /files/{id}/versions
func (h *FileHandler) Versions(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	id, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	versions, err := h.storage.ListVersions(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if versions == nil {
		versions = []*models.FileVersion{}
	}
	httputil.RespondJSON(w, http.StatusOK, versions)
}

// DownloadVersion handles GET /files/{id}/versions/{versionID}/download
func (h *FileHandler) DownloadVersion(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	id, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	versionID, err := httputil.PathInt64(r, "versionID")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	path, version, err := h.storage.DownloadVersion(r.Context(), id, versionID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	name := fmt.Sprintf("v%d_%s", version.VersionNumber, version.Filename)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

// RestoreVersion handles POST /files/{id}/versions/{versionID}/restore
func (h *FileHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	versionID, err := httputil.PathInt64(r, "versionID")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.storage.RestoreVersion(r.Context(), actor, id, versionID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rec)
}
