package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/HaronZ/cdrrmo-file-manager/internal/config"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
)

// captureVersionAttempts bounds retries when two processes race for the same
// version number and the unique constraint rejects the loser.
const captureVersionAttempts = 3

// captureVersion copies the file's current bytes into the snapshot directory
// and records them as the next version. Callers must hold the file's lock.
//
// Snapshots are named "{file_id}_{version}_{tag}_{filename}" so a snapshot
// directory remains legible without the database, and the random tag keeps
// names unique even if a version row is deleted and its number reissued.
func (s *Service) captureVersion(ctx context.Context, actor models.Identity, rec *models.FileMetadata, livePath string) (*models.FileVersion, error) {
	info, err := os.Stat(livePath)
	if err != nil {
		return nil, fmt.Errorf("stat live file: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < captureVersionAttempts; attempt++ {
		maxVersion, err := s.versions.MaxVersionNumber(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		number := maxVersion + 1

		tag := uuid.NewString()[:config.SnapshotTagLength]
		storedName := fmt.Sprintf("%d_%d_%s_%s", rec.ID, number, tag, rec.Filename)
		storedPath := filepath.Join(s.resolver.VersionsDir(), storedName)

		if err := copyFile(livePath, storedPath); err != nil {
			return nil, fmt.Errorf("copy snapshot: %w", err)
		}

		version := &models.FileVersion{
			FileID:        rec.ID,
			VersionNumber: number,
			Filename:      rec.Filename,
			StoredPath:    storedPath,
			Size:          info.Size(),
			CreatedByID:   actor.UserID,
		}
		err = s.versions.Create(ctx, version)
		if err == nil {
			s.logger.Info("version captured", "file_id", rec.ID, "version", number, "size", info.Size())
			return version, nil
		}

		os.Remove(storedPath)
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("allocate version number for file %d: %w", rec.ID, lastErr)
}

// ListVersions returns a file's version chain, newest first.
func (s *Service) ListVersions(ctx context.Context, fileID int64) ([]*models.FileVersion, error) {
	if _, err := s.files.GetByID(ctx, fileID); err != nil {
		return nil, err
	}
	return s.versions.ListByFileID(ctx, fileID)
}

// DownloadVersion resolves the stored path of one snapshot.
func (s *Service) DownloadVersion(ctx context.Context, fileID, versionID int64) (string, *models.FileVersion, error) {
	version, err := s.getVersionOf(ctx, fileID, versionID)
	if err != nil {
		return "", nil, err
	}
	if _, err := os.Stat(version.StoredPath); err != nil {
		return "", nil, &domain.NotFoundError{Message: "Version snapshot is missing from disk"}
	}
	return version.StoredPath, version, nil
}

// RestoreVersion replaces the live bytes with a snapshot's bytes. The
// current live bytes are captured as a new version first, so a restore is
// itself undoable and the chain only ever grows.
func (s *Service) RestoreVersion(ctx context.Context, actor models.Identity, fileID, versionID int64) (*models.FileMetadata, error) {
	rec, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && rec.OwnerID != actor.UserID {
		assigned := rec.AssignedToID != nil && *rec.AssignedToID == actor.UserID
		if !assigned {
			return nil, &domain.ForbiddenError{Message: "You cannot restore versions of this file"}
		}
	}
	version, err := s.getVersionOf(ctx, fileID, versionID)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(version.StoredPath); err != nil {
		return nil, &domain.NotFoundError{Message: "Version snapshot is missing from disk"}
	}

	release := s.locks.Acquire(fileID)
	defer release()

	livePath, err := s.resolver.FilePath(rec.Folder, rec.Filename)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(livePath); err == nil {
		if _, err := s.captureVersion(ctx, actor, rec, livePath); err != nil {
			return nil, err
		}
	}

	src, err := os.Open(version.StoredPath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer src.Close()

	size, err := s.writeAtomic(livePath, src)
	if err != nil {
		return nil, err
	}

	updated, err := s.files.Update(ctx, fileID, &models.FileMetadataUpdate{Size: &size})
	if err != nil {
		return nil, err
	}

	s.logger.Info("version restored", "file_id", fileID, "version", version.VersionNumber)
	s.events.Activity(actor.UserID, "restore",
		fmt.Sprintf("Restored %q to version %d", rec.Filename, version.VersionNumber))
	return updated, nil
}

// getVersionOf fetches a version and verifies it belongs to the given file.
func (s *Service) getVersionOf(ctx context.Context, fileID, versionID int64) (*models.FileVersion, error) {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.FileID != fileID {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("Version %d does not belong to file %d", versionID, fileID)}
	}
	return version, nil
}

// copyFile copies src to dst without fsync; snapshots are re-capturable from
// the live file if a crash loses one.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
	}
	return err
}
