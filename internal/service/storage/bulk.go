package storage

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
)

// BulkError records why one item of a bulk operation failed.
type BulkError struct {
	FileID int64  `json:"file_id"`
	Error  string `json:"error"`
}

// BulkResult reports a bulk operation's per-item outcome. Bulk operations
// never abort on a failing item: every id is attempted, Count says how many
// went through, and Errors explains the rest.
type BulkResult struct {
	Count     int         `json:"count"`
	Succeeded []int64     `json:"succeeded"`
	Errors    []BulkError `json:"errors"`
}

func newBulkResult(n int) *BulkResult {
	return &BulkResult{Succeeded: make([]int64, 0, n), Errors: []BulkError{}}
}

func (r *BulkResult) record(id int64, err error) {
	if err != nil {
		r.Errors = append(r.Errors, BulkError{FileID: id, Error: err.Error()})
		return
	}
	r.Count++
	r.Succeeded = append(r.Succeeded, id)
}

// BulkDelete deletes each file independently.
func (s *Service) BulkDelete(ctx context.Context, actor models.Identity, ids []int64) *BulkResult {
	result := newBulkResult(len(ids))
	for _, id := range ids {
		result.record(id, s.Delete(ctx, actor, id))
	}
	return result
}

// BulkMove moves each file to the target folder independently.
func (s *Service) BulkMove(ctx context.Context, actor models.Identity, ids []int64, targetFolder string) *BulkResult {
	result := newBulkResult(len(ids))
	for _, id := range ids {
		_, err := s.Move(ctx, actor, id, targetFolder)
		result.record(id, err)
	}
	return result
}

// BulkAssign applies the same assignment to each file independently.
func (s *Service) BulkAssign(ctx context.Context, actor models.Identity, ids []int64, assigneeID models.OptionalInt64, instruction models.OptionalString, dueDate models.OptionalTime) *BulkResult {
	result := newBulkResult(len(ids))
	for _, id := range ids {
		_, err := s.Assign(ctx, actor, id, assigneeID, instruction, dueDate)
		result.record(id, err)
	}
	return result
}

// BulkDownload streams the given files as a zip archive. Entries are placed
// under their folder path inside the archive. Files whose bytes are missing
// from disk are skipped; an archive with some files beats no archive.
func (s *Service) BulkDownload(ctx context.Context, w io.Writer, ids []int64) error {
	type item struct {
		path  string
		entry string
	}
	// Resolve everything before the first byte goes out so an all-missing
	// request can still get a clean error response.
	var items []item
	for _, id := range ids {
		path, rec, err := s.Download(ctx, id)
		if err != nil {
			s.logger.Warn("bulk download: skipping file", "id", id, "error", err)
			continue
		}
		items = append(items, item{path: path, entry: zipEntryName(rec.Folder, rec.Filename)})
	}
	if len(items) == 0 {
		return &domain.NotFoundError{Message: "None of the requested files are available for download"}
	}

	zw := zip.NewWriter(w)
	for _, it := range items {
		if err := addZipEntry(zw, it.path, it.entry); err != nil {
			zw.Close()
			return fmt.Errorf("archive %q: %w", it.entry, err)
		}
	}
	return zw.Close()
}

// DownloadDirectory streams one folder's tree as a zip archive with paths
// relative to that folder.
func (s *Service) DownloadDirectory(ctx context.Context, w io.Writer, folder string) error {
	folder, err := s.resolver.NormalizeFolder(folder)
	if err != nil {
		return err
	}
	dir, err := s.resolver.FolderPath(folder)
	if err != nil {
		return err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return &domain.NotFoundError{Message: fmt.Sprintf("Folder %s does not exist", folder)}
	}

	zw := zip.NewWriter(w)
	err = filepath.WalkDir(dir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(de.Name(), ".") {
			if de.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if de.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return addZipEntry(zw, path, filepath.ToSlash(rel))
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("archive folder %s: %w", folder, err)
	}
	return zw.Close()
}

// zipEntryName builds the archive path for a file: its folder key plus name,
// with root-folder files at the archive top level.
func zipEntryName(folder, filename string) string {
	if folder == RootFolder {
		return filename
	}
	return folder + "/" + filename
}

func addZipEntry(zw *zip.Writer, srcPath, entryName string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer f.Close()

	entry, err := zw.Create(entryName)
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, f)
	return err
}
