package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
)

// List reconciles one folder's database records against the directory on
// disk and returns the merged view:
//
//   - a record whose file is present gets its size refreshed from disk
//   - a record whose file is gone is kept with size 0 rather than hidden
//   - a disk file with no record is persisted on the spot (status Synced),
//     so anything dropped into the tree out-of-band becomes indexed the
//     first time anyone looks at its folder
//   - a subdirectory with no record appears as a transient entry with a
//     synthetic negative id
//
// Two concurrent listings may race to persist the same unknown file; the
// loser's insert hits the unique (folder, filename) constraint and re-reads
// the winner's row.
func (s *Service) List(ctx context.Context, actor models.Identity, folder string) ([]models.Entry, error) {
	folder, err := s.resolver.NormalizeFolder(folder)
	if err != nil {
		return nil, err
	}
	dir, err := s.resolver.FolderPath(folder)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("Folder %s does not exist", folder)}
		}
		return nil, fmt.Errorf("read folder: %w", err)
	}

	records, err := s.files.ListByFolder(ctx, folder)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*models.FileMetadata, len(records))
	for _, rec := range records {
		byName[rec.Filename] = rec
	}

	entries := make([]models.Entry, 0, len(dirEntries)+len(records))
	onDisk := make(map[string]bool, len(dirEntries))

	for _, de := range dirEntries {
		name := de.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		onDisk[name] = true
		info, err := de.Info()
		if err != nil {
			continue
		}

		if rec, ok := byName[name]; ok {
			if rec.IsDir {
				rec.Size = directorySize(filepath.Join(dir, name))
			} else {
				rec.Size = info.Size()
			}
			entries = append(entries, models.IndexedEntry(rec))
			continue
		}

		if de.IsDir() {
			entries = append(entries, models.UnindexedEntry(&models.TransientEntry{
				Filename:  name,
				Folder:    folder,
				AbsPath:   filepath.Join(dir, name),
				Size:      directorySize(filepath.Join(dir, name)),
				CreatedAt: info.ModTime(),
				IsDir:     true,
				Status:    models.StatusSynced,
			}))
			continue
		}

		rec, err := s.adoptFile(ctx, actor, folder, name, info.Size())
		if err != nil {
			s.logger.Warn("failed to index file found on disk", "folder", folder, "filename", name, "error", err)
			continue
		}
		entries = append(entries, models.IndexedEntry(rec))
	}

	// Stale records: indexed but gone from disk.
	for _, rec := range records {
		if !onDisk[rec.Filename] {
			rec.Size = 0
			entries = append(entries, models.IndexedEntry(rec))
		}
	}

	sortEntries(entries)
	return entries, nil
}

// Search matches persisted records by name, then walks the disk for matching
// files the index has never seen and returns those as transient Unindexed
// entries. Unlike List, search never writes: a search must stay cheap and
// side-effect free, and the file will be adopted the next time its folder is
// listed or a sync runs.
func (s *Service) Search(ctx context.Context, query string) ([]models.Entry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &domain.ValidationError{Message: "Search query must not be empty"}
	}

	records, err := s.files.SearchByName(ctx, query)
	if err != nil {
		return nil, err
	}
	entries := make([]models.Entry, 0, len(records))
	for _, rec := range records {
		s.refreshSize(rec)
		entries = append(entries, models.IndexedEntry(rec))
	}

	indexed, err := s.indexedNames(ctx)
	if err != nil {
		return nil, err
	}

	lowered := strings.ToLower(query)
	err = s.walkFiles(func(folder, name, absPath string, info fs.FileInfo) {
		if !strings.Contains(strings.ToLower(name), lowered) {
			return
		}
		if indexed[folder+"\x00"+name] {
			return
		}
		entries = append(entries, models.UnindexedEntry(&models.TransientEntry{
			Filename:  name,
			Folder:    folder,
			AbsPath:   absPath,
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
			Status:    models.StatusUnindexed,
		}))
	})
	if err != nil {
		return nil, err
	}

	sortEntries(entries)
	return entries, nil
}

// Sync walks the whole storage tree and persists a record for every file the
// index has never seen. Admin only; idempotent, so running it twice in a row
// creates nothing the second time.
func (s *Service) Sync(ctx context.Context, actor models.Identity) (int, error) {
	if !actor.IsAdmin {
		return 0, &domain.ForbiddenError{Message: "Only admins can run a full sync"}
	}

	indexed, err := s.indexedNames(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	err = s.walkFiles(func(folder, name, absPath string, info fs.FileInfo) {
		if indexed[folder+"\x00"+name] {
			return
		}
		if _, err := s.adoptFile(ctx, actor, folder, name, info.Size()); err != nil {
			s.logger.Warn("sync: failed to index file", "folder", folder, "filename", name, "error", err)
			return
		}
		created++
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("sync completed", "created", created)
	s.events.Activity(actor.UserID, "sync", fmt.Sprintf("Indexed %d files from disk", created))
	return created, nil
}

// adoptFile persists a record for a file discovered on disk. A concurrent
// adopter winning the insert race is not an error; the winner's row is
// returned instead.
func (s *Service) adoptFile(ctx context.Context, actor models.Identity, folder, name string, size int64) (*models.FileMetadata, error) {
	rec := &models.FileMetadata{
		Filename: name,
		Folder:   folder,
		OwnerID:  actor.UserID,
		Status:   models.StatusSynced,
		Size:     size,
	}
	err := s.files.Create(ctx, rec)
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, domain.ErrConflict) {
		return s.files.GetByFolderAndName(ctx, folder, name)
	}
	return nil, err
}

// indexedNames returns the set of persisted (folder, filename) pairs.
func (s *Service) indexedNames(ctx context.Context) (map[string]bool, error) {
	records, err := s.files.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(records))
	for _, rec := range records {
		set[rec.Folder+"\x00"+rec.Filename] = true
	}
	return set, nil
}

// walkFiles visits every regular file under the storage root, skipping
// hidden entries. The visit callback receives the file's folder key.
// Entries the walk cannot read are logged and skipped; one bad
// subdirectory must not take down a whole search or sync.
func (s *Service) walkFiles(visit func(folder, name, absPath string, info fs.FileInfo)) error {
	root := s.resolver.Root()
	return filepath.WalkDir(root, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("walk: skipping unreadable entry", "path", path, "error", err)
			if de != nil && de.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		name := de.Name()
		if strings.HasPrefix(name, ".") && path != root {
			if de.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if de.IsDir() {
			return nil
		}
		info, err := de.Info()
		if err != nil {
			return nil
		}
		folder, err := s.resolver.FolderKey(filepath.Dir(path))
		if err != nil {
			return nil
		}
		visit(folder, name, path, info)
		return nil
	})
}

// directorySize sums the sizes of every regular file under path, recursing
// into subdirectories. Entries that cannot be read are skipped.
func directorySize(path string) int64 {
	var total int64
	filepath.WalkDir(path, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			if de != nil && de.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if de.IsDir() {
			return nil
		}
		if info, ierr := de.Info(); ierr == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// sortEntries orders a merged listing: directories first, then files, each
// group alphabetically.
func sortEntries(entries []models.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := entryIsDir(entries[i]), entryIsDir(entries[j])
		if di != dj {
			return di
		}
		return strings.ToLower(entryName(entries[i])) < strings.ToLower(entryName(entries[j]))
	})
}

func entryIsDir(e models.Entry) bool {
	if e.Record != nil {
		return e.Record.IsDir
	}
	return e.Transient.IsDir
}

func entryName(e models.Entry) string {
	if e.Record != nil {
		return e.Record.Filename
	}
	return e.Transient.Filename
}
