package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/HaronZ/cdrrmo-file-manager/internal/config"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/repositories"
)

// EventSink receives side-channel events (activity log entries and user
// notifications) from storage operations. Implementations must not block;
// delivery is best-effort and never fails the triggering operation.
type EventSink interface {
	Activity(userID int64, action, details string)
	Notify(userID int64, notificationType, message string, fileID *int64, urgent bool)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Activity(int64, string, string)             {}
func (NopSink) Notify(int64, string, string, *int64, bool) {}

// Service implements the file-management core: uploads, listings reconciled
// against the disk, version capture and restore, task assignment, and bulk
// operations. The database is the source of truth for metadata; the disk is
// the source of truth for bytes.
type Service struct {
	cfg      *config.Config
	logger   *slog.Logger
	resolver *Resolver
	files    repositories.FileRepository
	versions repositories.FileVersionRepository
	tx       repositories.TransactionManager
	locks    *lockTable
	events   EventSink
}

// NewService wires the storage service. Pass NopSink when no event delivery
// is needed (tests, one-shot tools).
func NewService(
	cfg *config.Config,
	logger *slog.Logger,
	files repositories.FileRepository,
	versions repositories.FileVersionRepository,
	tx repositories.TransactionManager,
	events EventSink,
) (*Service, error) {
	resolver, err := NewResolver(cfg.StorageRoot, cfg.VersionsDir)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = NopSink{}
	}
	return &Service{
		cfg:      cfg,
		logger:   logger,
		resolver: resolver,
		files:    files,
		versions: versions,
		tx:       tx,
		locks:    newLockTable(),
		events:   events,
	}, nil
}

// EnsureLayout creates the storage root, the versions directory, and one
// subdirectory per department. Safe to call on every startup.
func (s *Service) EnsureLayout(departments *config.Departments) error {
	if err := os.MkdirAll(s.resolver.Root(), 0o755); err != nil {
		return fmt.Errorf("create storage root: %w", err)
	}
	if err := os.MkdirAll(s.resolver.VersionsDir(), 0o755); err != nil {
		return fmt.Errorf("create versions dir: %w", err)
	}
	for _, name := range departments.Folders {
		dir, err := s.resolver.FilePath(RootFolder, name)
		if err != nil {
			return fmt.Errorf("department %q: %w", name, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create department dir %q: %w", name, err)
		}
	}
	return nil
}

// Details returns a single record with its size refreshed from disk and the
// number of captured versions.
func (s *Service) Details(ctx context.Context, id int64) (*models.FileMetadata, int, error) {
	rec, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	s.refreshSize(rec)
	count, err := s.versions.CountByFileID(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	return rec, count, nil
}

// Download resolves the live path for a file and verifies the bytes exist.
func (s *Service) Download(ctx context.Context, id int64) (string, *models.FileMetadata, error) {
	rec, err := s.files.GetByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if rec.IsDir {
		return "", nil, &domain.ValidationError{Message: "Cannot download a directory as a file"}
	}
	path, err := s.resolver.FilePath(rec.Folder, rec.Filename)
	if err != nil {
		return "", nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return "", nil, &domain.NotFoundError{Message: "File exists in the index but its content is missing from disk"}
	}
	return path, rec, nil
}

// Preview resolves the live path for inline display. Only extensions in the
// preview allowlist are served inline; everything else must be downloaded.
func (s *Service) Preview(ctx context.Context, id int64) (string, *models.FileMetadata, error) {
	path, rec, err := s.Download(ctx, id)
	if err != nil {
		return "", nil, err
	}
	ext := strings.ToLower(filepath.Ext(rec.Filename))
	if !contains(s.cfg.PreviewExtensions, ext) {
		return "", nil, &domain.ValidationError{Message: fmt.Sprintf("Preview is not supported for %s files", ext)}
	}
	return path, rec, nil
}

// Delete removes a file's record, its live bytes, and every captured
// snapshot. Only the owner or an admin may delete.
func (s *Service) Delete(ctx context.Context, actor models.Identity, id int64) error {
	rec, err := s.files.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin && rec.OwnerID != actor.UserID {
		return &domain.ForbiddenError{Message: "Only the owner or an admin can delete this file"}
	}

	release := s.locks.Acquire(id)
	defer release()

	// Remove snapshot files before the record; the row delete cascades to
	// version rows.
	snapshots, err := s.versions.ListByFileID(ctx, id)
	if err != nil {
		return err
	}
	for _, v := range snapshots {
		if err := os.Remove(v.StoredPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove snapshot", "path", v.StoredPath, "error", err)
		}
	}

	if !rec.IsDir {
		path, err := s.resolver.FilePath(rec.Folder, rec.Filename)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove file: %w", err)
		}
	}

	if err := s.files.Delete(ctx, id); err != nil {
		return err
	}

	s.events.Activity(actor.UserID, "delete", fmt.Sprintf("Deleted %q from %s", rec.Filename, rec.Folder))
	return nil
}

// CreateDirectory creates a subdirectory and its persisted record.
func (s *Service) CreateDirectory(ctx context.Context, actor models.Identity, folder, name string) (*models.FileMetadata, error) {
	folder, err := s.resolver.NormalizeFolder(folder)
	if err != nil {
		return nil, err
	}
	path, err := s.resolver.FilePath(folder, name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err == nil {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("%q already exists in %s", name, folder),
			ResourceType: "directory",
		}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	rec := &models.FileMetadata{
		Filename: name,
		Folder:   folder,
		OwnerID:  actor.UserID,
		Status:   models.StatusSynced,
		IsDir:    true,
	}
	if err := s.files.Create(ctx, rec); err != nil {
		var conflict *domain.ConflictError
		if !errors.As(err, &conflict) {
			return nil, err
		}
		// Directory existed on disk only; adopt the fresh record's id.
		rec.ID = conflict.ResourceID
	}

	s.events.Activity(actor.UserID, "create_folder", fmt.Sprintf("Created folder %q in %s", name, folder))
	return rec, nil
}

// DeleteDirectory removes a directory tree from disk and all records whose
// folder falls under it. Admin only.
func (s *Service) DeleteDirectory(ctx context.Context, actor models.Identity, folder string) (int64, error) {
	if !actor.IsAdmin {
		return 0, &domain.ForbiddenError{Message: "Only admins can delete directories"}
	}
	folder, err := s.resolver.NormalizeFolder(folder)
	if err != nil {
		return 0, err
	}
	if folder == RootFolder {
		return 0, &domain.ValidationError{Message: "Cannot delete the storage root"}
	}
	dir, err := s.resolver.FolderPath(folder)
	if err != nil {
		return 0, err
	}

	if err := os.RemoveAll(dir); err != nil {
		return 0, fmt.Errorf("remove directory tree: %w", err)
	}

	// The tree's records and the directory's own record (kept in its
	// parent folder) go in one transaction so a crash can't leave the
	// directory row pointing at deleted children.
	var removed int64
	err = s.tx.ExecTx(ctx, func(ctx context.Context) error {
		var txErr error
		removed, txErr = s.files.DeleteByFolderPrefix(ctx, folder)
		if txErr != nil {
			return txErr
		}
		parent, name := splitFolderKey(folder)
		if rec, getErr := s.files.GetByFolderAndName(ctx, parent, name); getErr == nil && rec.IsDir {
			if delErr := s.files.Delete(ctx, rec.ID); delErr != nil {
				return delErr
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.events.Activity(actor.UserID, "delete_folder", fmt.Sprintf("Deleted folder %s (%d records)", folder, removed))
	return removed, nil
}

// Assign sets or clears the task fields on a file: assignee, instruction,
// and due date. Admin only. Assigning notifies the assignee and resets the
// status to Pending.
func (s *Service) Assign(ctx context.Context, actor models.Identity, id int64, assigneeID models.OptionalInt64, instruction models.OptionalString, dueDate models.OptionalTime) (*models.FileMetadata, error) {
	if !actor.IsAdmin {
		return nil, &domain.ForbiddenError{Message: "Only admins can assign tasks"}
	}
	if instruction.Present && instruction.Value != nil && len(*instruction.Value) > config.MaxInstructionLen {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("Instruction exceeds %d characters", config.MaxInstructionLen)}
	}

	upd := &models.FileMetadataUpdate{
		AssignedToID: assigneeID,
		Instruction:  instruction,
		DueDate:      dueDate,
	}
	if assigneeID.Present && assigneeID.Value != nil {
		status := models.StatusPending
		upd.Status = &status
	}

	rec, err := s.files.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	if assigneeID.Present && assigneeID.Value != nil {
		s.events.Notify(*assigneeID.Value, models.NotificationTaskAssigned,
			fmt.Sprintf("You have been assigned %q", rec.Filename), &rec.ID, rec.DueDate != nil)
	}
	s.events.Activity(actor.UserID, "assign", fmt.Sprintf("Updated assignment on %q", rec.Filename))
	return rec, nil
}

// UpdateStatus changes a file's status. Allowed for the owner, the current
// assignee, or an admin.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Identity, id int64, status string) (*models.FileMetadata, error) {
	if strings.TrimSpace(status) == "" {
		return nil, &domain.ValidationError{Message: "Status must not be empty"}
	}
	rec, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	assigned := rec.AssignedToID != nil && *rec.AssignedToID == actor.UserID
	if !actor.IsAdmin && rec.OwnerID != actor.UserID && !assigned {
		return nil, &domain.ForbiddenError{Message: "You cannot change the status of this file"}
	}

	updated, err := s.files.Update(ctx, id, &models.FileMetadataUpdate{Status: &status})
	if err != nil {
		return nil, err
	}

	if status == models.StatusDone && rec.OwnerID != actor.UserID {
		s.events.Notify(rec.OwnerID, models.NotificationFileUpdate,
			fmt.Sprintf("%q was marked done", rec.Filename), &rec.ID, false)
	}
	s.events.Activity(actor.UserID, "status", fmt.Sprintf("Set %q to %s", rec.Filename, status))
	return updated, nil
}

// Rename changes a file's name, moving the live bytes. The version chain
// stays attached to the record; snapshot filenames keep the old name.
func (s *Service) Rename(ctx context.Context, actor models.Identity, id int64, newName string) (*models.FileMetadata, error) {
	rec, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && rec.OwnerID != actor.UserID {
		return nil, &domain.ForbiddenError{Message: "Only the owner or an admin can rename this file"}
	}
	if err := ValidateFilename(newName); err != nil {
		return nil, err
	}
	if newName == rec.Filename {
		return rec, nil
	}
	if !rec.IsDir {
		if ext := strings.ToLower(filepath.Ext(newName)); !contains(s.cfg.AllowedExtensions, ext) {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("File type %s is not allowed", ext)}
		}
	}

	release := s.locks.Acquire(id)
	defer release()

	oldPath, err := s.resolver.FilePath(rec.Folder, rec.Filename)
	if err != nil {
		return nil, err
	}
	newPath, err := s.resolver.FilePath(rec.Folder, newName)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(newPath); err == nil {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("%q already exists in %s", newName, rec.Folder),
			ResourceType: "file",
		}
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return nil, fmt.Errorf("rename: %w", err)
	}

	updated, err := s.files.Update(ctx, id, &models.FileMetadataUpdate{Filename: &newName})
	if err != nil {
		// Put the bytes back so disk and index stay consistent.
		if rerr := os.Rename(newPath, oldPath); rerr != nil {
			s.logger.Error("rename rollback failed", "path", newPath, "error", rerr)
		}
		return nil, err
	}

	s.events.Activity(actor.UserID, "rename", fmt.Sprintf("Renamed %q to %q", rec.Filename, newName))
	return updated, nil
}

// Move relocates a file to another folder, carrying its metadata and version
// chain along.
func (s *Service) Move(ctx context.Context, actor models.Identity, id int64, targetFolder string) (*models.FileMetadata, error) {
	rec, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && rec.OwnerID != actor.UserID {
		return nil, &domain.ForbiddenError{Message: "Only the owner or an admin can move this file"}
	}
	target, err := s.resolver.NormalizeFolder(targetFolder)
	if err != nil {
		return nil, err
	}
	if target == rec.Folder {
		return rec, nil
	}

	release := s.locks.Acquire(id)
	defer release()

	oldPath, err := s.resolver.FilePath(rec.Folder, rec.Filename)
	if err != nil {
		return nil, err
	}
	targetDir, err := s.resolver.FolderPath(target)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(targetDir); err != nil || !info.IsDir() {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("Folder %s does not exist", target)}
	}
	newPath, err := s.resolver.FilePath(target, rec.Filename)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(newPath); err == nil {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("%q already exists in %s", rec.Filename, target),
			ResourceType: "file",
		}
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return nil, fmt.Errorf("move: %w", err)
	}

	updated, err := s.files.Update(ctx, id, &models.FileMetadataUpdate{Folder: &target})
	if err != nil {
		if rerr := os.Rename(newPath, oldPath); rerr != nil {
			s.logger.Error("move rollback failed", "path", newPath, "error", rerr)
		}
		return nil, err
	}

	s.events.Activity(actor.UserID, "move", fmt.Sprintf("Moved %q from %s to %s", rec.Filename, rec.Folder, target))
	return updated, nil
}

// AssignedTo lists the files assigned to one user, sizes refreshed.
func (s *Service) AssignedTo(ctx context.Context, userID int64) ([]*models.FileMetadata, error) {
	recs, err := s.files.ListAssignedTo(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		s.refreshSize(rec)
	}
	return recs, nil
}

// AllAssigned lists every file with an assignee. Admin only.
func (s *Service) AllAssigned(ctx context.Context, actor models.Identity) ([]*models.FileMetadata, error) {
	if !actor.IsAdmin {
		return nil, &domain.ForbiddenError{Message: "Only admins can view all assignments"}
	}
	recs, err := s.files.ListAssigned(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		s.refreshSize(rec)
	}
	return recs, nil
}

// AdvancedSearch runs a filtered metadata query. The extension filter is
// normalized here so callers can pass "pdf" or ".PDF".
func (s *Service) AdvancedSearch(ctx context.Context, filter *models.FileFilter) ([]*models.FileMetadata, error) {
	if filter.Extension != "" {
		ext := strings.ToLower(strings.TrimSpace(filter.Extension))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		filter.Extension = ext
	}
	if filter.Folder != "" && filter.Folder != RootFolder {
		folder, err := s.resolver.NormalizeFolder(filter.Folder)
		if err != nil {
			return nil, err
		}
		filter.Folder = folder
	}
	if filter.Limit <= 0 || filter.Limit > config.MaxPageSize {
		filter.Limit = config.DefaultPageSize
	}
	if filter.Skip < 0 {
		filter.Skip = 0
	}

	recs, err := s.files.AdvancedSearch(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		s.refreshSize(rec)
	}
	return recs, nil
}

// Mine lists the files a user owns or is assigned.
func (s *Service) Mine(ctx context.Context, actor models.Identity) ([]*models.FileMetadata, error) {
	return s.AdvancedSearch(ctx, &models.FileFilter{RestrictToUserID: actor.UserID})
}

// refreshSize overwrites the record's size with the current size on disk.
// A record whose bytes are gone gets size 0, marking it stale without
// hiding it. Directory records get the recursive sum of their files.
func (s *Service) refreshSize(rec *models.FileMetadata) {
	path, err := s.resolver.FilePath(rec.Folder, rec.Filename)
	if err != nil {
		rec.Size = 0
		return
	}
	if rec.IsDir {
		rec.Size = directorySize(path)
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		rec.Size = 0
		return
	}
	rec.Size = info.Size()
}

// splitFolderKey splits a non-root folder key into its parent key and leaf
// name.
func splitFolderKey(folder string) (parent, name string) {
	idx := strings.LastIndex(folder, "/")
	if idx < 0 {
		return RootFolder, folder
	}
	return folder[:idx], folder[idx+1:]
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
