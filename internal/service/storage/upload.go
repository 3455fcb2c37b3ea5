package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
)

// UploadOptions carries the optional upload form fields. Overwrite must be
// set explicitly to replace an existing file; the assignment fields let an
// admin hand the file to someone in the same request.
type UploadOptions struct {
	Overwrite    bool
	AssignedToID *int64
	Instruction  *string
	DueDate      *time.Time
}

// Upload stores an uploaded file under the given folder. Replacing an
// existing file requires the overwrite flag and captures the current bytes
// as a new version before they are replaced, so no overwrite ever loses
// data. Without the flag an occupied target fails with a conflict and
// nothing changes.
func (s *Service) Upload(ctx context.Context, actor models.Identity, folder, filename string, content io.Reader, opts UploadOptions) (*models.FileMetadata, error) {
	folder, err := s.resolver.NormalizeFolder(folder)
	if err != nil {
		return nil, err
	}
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !contains(s.cfg.AllowedExtensions, ext) {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("File type %s is not allowed (allowed: %s)", ext, strings.Join(s.cfg.AllowedExtensions, ", ")),
		}
	}

	dir, err := s.resolver.FolderPath(folder)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("Folder %s does not exist", folder)}
	}
	livePath, err := s.resolver.FilePath(folder, filename)
	if err != nil {
		return nil, err
	}

	liveExists := false
	if info, err := os.Stat(livePath); err == nil {
		if info.IsDir() {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("%q is a directory", filename),
				ResourceType: "directory",
			}
		}
		liveExists = true
	}

	rec, err := s.files.GetByFolderAndName(ctx, folder, filename)
	switch {
	case err == nil:
		if liveExists && !opts.Overwrite {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("%q already exists in %s", filename, folder),
				ResourceType: "file",
				ResourceID:   rec.ID,
			}
		}
		return s.overwrite(ctx, actor, rec, livePath, content, opts)
	case errors.Is(err, domain.ErrNotFound):
		if liveExists {
			if !opts.Overwrite {
				return nil, &domain.ConflictError{
					Message:      fmt.Sprintf("%q already exists in %s", filename, folder),
					ResourceType: "file",
				}
			}
			// Unindexed bytes at the target: adopt them first so the
			// pre-overwrite content still gets captured as a version.
			info, serr := os.Stat(livePath)
			if serr != nil {
				return nil, fmt.Errorf("stat live file: %w", serr)
			}
			adopted, aerr := s.adoptFile(ctx, actor, folder, filename, info.Size())
			if aerr != nil {
				return nil, aerr
			}
			return s.overwrite(ctx, actor, adopted, livePath, content, opts)
		}
		return s.uploadNew(ctx, actor, folder, filename, livePath, content, opts)
	default:
		return nil, err
	}
}

// uploadNew creates the record first, then writes the bytes under the new
// record's lock. Losing the creation race to a concurrent upload is a
// conflict unless the caller granted overwrite, in which case the winner's
// record is replaced instead.
func (s *Service) uploadNew(ctx context.Context, actor models.Identity, folder, filename, livePath string, content io.Reader, opts UploadOptions) (*models.FileMetadata, error) {
	rec := &models.FileMetadata{
		Filename:     filename,
		Folder:       folder,
		OwnerID:      actor.UserID,
		Status:       models.StatusPending,
		AssignedToID: opts.AssignedToID,
		Instruction:  opts.Instruction,
		DueDate:      opts.DueDate,
	}
	if err := s.files.Create(ctx, rec); err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) && conflict.ResourceID != 0 {
			if !opts.Overwrite {
				return nil, err
			}
			existing, gerr := s.files.GetByID(ctx, conflict.ResourceID)
			if gerr != nil {
				return nil, gerr
			}
			return s.overwrite(ctx, actor, existing, livePath, content, opts)
		}
		return nil, err
	}

	release := s.locks.Acquire(rec.ID)
	defer release()

	size, err := s.writeAtomic(livePath, content)
	if err != nil {
		if derr := s.files.Delete(ctx, rec.ID); derr != nil {
			s.logger.Error("failed to remove record after write failure", "id", rec.ID, "error", derr)
		}
		return nil, err
	}

	updated, err := s.files.Update(ctx, rec.ID, &models.FileMetadataUpdate{Size: &size})
	if err != nil {
		return nil, err
	}

	s.logger.Info("file uploaded", "id", updated.ID, "folder", folder, "filename", filename, "size", size)
	s.events.Activity(actor.UserID, "upload", fmt.Sprintf("Uploaded %q to %s", filename, folder))
	s.notifyAssignment(updated, actor, opts)
	return updated, nil
}

// overwrite snapshots the current bytes, then replaces them. The record's
// owner is unchanged; the status resets to Pending since the content is new.
func (s *Service) overwrite(ctx context.Context, actor models.Identity, rec *models.FileMetadata, livePath string, content io.Reader, opts UploadOptions) (*models.FileMetadata, error) {
	if rec.IsDir {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("%q is a directory", rec.Filename),
			ResourceType: "directory",
			ResourceID:   rec.ID,
		}
	}

	release := s.locks.Acquire(rec.ID)
	defer release()

	if _, err := os.Stat(livePath); err == nil {
		if _, err := s.captureVersion(ctx, actor, rec, livePath); err != nil {
			return nil, err
		}
	}

	size, err := s.writeAtomic(livePath, content)
	if err != nil {
		return nil, err
	}

	status := models.StatusPending
	upd := &models.FileMetadataUpdate{Size: &size, Status: &status}
	if opts.AssignedToID != nil {
		upd.AssignedToID = models.SetInt64(*opts.AssignedToID)
	}
	if opts.Instruction != nil {
		upd.Instruction = models.SetString(*opts.Instruction)
	}
	if opts.DueDate != nil {
		upd.DueDate = models.SetTime(*opts.DueDate)
	}
	updated, err := s.files.Update(ctx, rec.ID, upd)
	if err != nil {
		return nil, err
	}

	s.logger.Info("file replaced", "id", rec.ID, "folder", rec.Folder, "filename", rec.Filename, "size", size)
	s.events.Activity(actor.UserID, "upload", fmt.Sprintf("Replaced %q in %s", rec.Filename, rec.Folder))
	if opts.AssignedToID != nil {
		s.notifyAssignment(updated, actor, opts)
	} else if rec.AssignedToID != nil && *rec.AssignedToID != actor.UserID {
		s.events.Notify(*rec.AssignedToID, models.NotificationFileUpdate,
			fmt.Sprintf("%q was updated", rec.Filename), &rec.ID, false)
	}
	return updated, nil
}

// notifyAssignment tells the assignee about a task attached at upload time.
// A task with a due date is urgent.
func (s *Service) notifyAssignment(rec *models.FileMetadata, actor models.Identity, opts UploadOptions) {
	if opts.AssignedToID == nil || *opts.AssignedToID == actor.UserID {
		return
	}
	s.events.Notify(*opts.AssignedToID, models.NotificationTaskAssigned,
		fmt.Sprintf("You have been assigned %q", rec.Filename), &rec.ID, opts.DueDate != nil)
}

// writeAtomic streams content to a temp file in the target directory, then
// renames it into place. Readers never observe a half-written file, and the
// size cap is enforced while copying so an oversized body is dropped without
// touching the live path.
func (s *Service) writeAtomic(path string, content io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, io.LimitReader(content, s.cfg.MaxFileSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("write content: %w", err)
	}
	if written > s.cfg.MaxFileSize {
		os.Remove(tmpName)
		return 0, &domain.PayloadTooLargeError{
			Message: fmt.Sprintf("File exceeds the %d MB limit", s.cfg.MaxFileSize>>20),
		}
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("finalize upload: %w", err)
	}
	return written, nil
}
