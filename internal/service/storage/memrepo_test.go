package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HaronZ/cdrrmo-file-manager/internal/config"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/repositories"
)

// In-memory repositories mirroring the postgres implementations' contract:
// ConflictError with the existing row's id on duplicates, NotFoundError on
// missing rows, partial updates applied field-by-field.

type memFileRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.FileMetadata

	// mirrors the versions table's ON DELETE CASCADE
	versions *memVersionRepo
}

func newMemFileRepo() *memFileRepo {
	return &memFileRepo{rows: make(map[int64]*models.FileMetadata)}
}

func (r *memFileRepo) Create(ctx context.Context, file *models.FileMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Folder == file.Folder && row.Filename == file.Filename {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("%q already exists in %s", file.Filename, file.Folder),
				ResourceType: "file",
				ResourceID:   row.ID,
			}
		}
	}
	r.nextID++
	file.ID = r.nextID
	file.CreatedAt = time.Now()
	clone := *file
	r.rows[file.ID] = &clone
	return nil
}

func (r *memFileRepo) GetByID(ctx context.Context, id int64) (*models.FileMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("File %d not found", id)}
	}
	clone := *row
	return &clone, nil
}

func (r *memFileRepo) GetByFolderAndName(ctx context.Context, folder, filename string) (*models.FileMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Folder == folder && row.Filename == filename {
			clone := *row
			return &clone, nil
		}
	}
	return nil, &domain.NotFoundError{Message: fmt.Sprintf("%q not found in %s", filename, folder)}
}

func (r *memFileRepo) ListByFolder(ctx context.Context, folder string) ([]*models.FileMetadata, error) {
	return r.list(func(row *models.FileMetadata) bool { return row.Folder == folder })
}

func (r *memFileRepo) ListAll(ctx context.Context) ([]*models.FileMetadata, error) {
	return r.list(func(*models.FileMetadata) bool { return true })
}

func (r *memFileRepo) SearchByName(ctx context.Context, query string) ([]*models.FileMetadata, error) {
	q := strings.ToLower(query)
	return r.list(func(row *models.FileMetadata) bool {
		return !row.IsDir && strings.Contains(strings.ToLower(row.Filename), q)
	})
}

func (r *memFileRepo) AdvancedSearch(ctx context.Context, filter *models.FileFilter) ([]*models.FileMetadata, error) {
	return r.list(func(row *models.FileMetadata) bool {
		if row.IsDir {
			return false
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(row.Filename), strings.ToLower(filter.Query)) {
			return false
		}
		if filter.Folder != "" && row.Folder != filter.Folder {
			return false
		}
		if filter.Extension != "" && !strings.HasSuffix(strings.ToLower(row.Filename), filter.Extension) {
			return false
		}
		if filter.Status != "" && row.Status != filter.Status {
			return false
		}
		if filter.RestrictToUserID != 0 {
			assigned := row.AssignedToID != nil && *row.AssignedToID == filter.RestrictToUserID
			if row.OwnerID != filter.RestrictToUserID && !assigned {
				return false
			}
		}
		return true
	})
}

func (r *memFileRepo) ListAssignedTo(ctx context.Context, userID int64) ([]*models.FileMetadata, error) {
	return r.list(func(row *models.FileMetadata) bool {
		return row.AssignedToID != nil && *row.AssignedToID == userID
	})
}

func (r *memFileRepo) ListAssigned(ctx context.Context) ([]*models.FileMetadata, error) {
	return r.list(func(row *models.FileMetadata) bool { return row.AssignedToID != nil })
}

func (r *memFileRepo) Update(ctx context.Context, id int64, upd *models.FileMetadataUpdate) (*models.FileMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("File %d not found", id)}
	}
	if upd.Filename != nil {
		row.Filename = *upd.Filename
	}
	if upd.Folder != nil {
		row.Folder = *upd.Folder
	}
	if upd.Status != nil {
		row.Status = *upd.Status
	}
	if upd.Size != nil {
		row.Size = *upd.Size
	}
	if upd.AssignedToID.Present {
		row.AssignedToID = upd.AssignedToID.Value
	}
	if upd.Instruction.Present {
		row.Instruction = upd.Instruction.Value
	}
	if upd.DueDate.Present {
		row.DueDate = upd.DueDate.Value
	}
	clone := *row
	return &clone, nil
}

func (r *memFileRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("File %d not found", id)}
	}
	delete(r.rows, id)
	if r.versions != nil {
		r.versions.deleteByFileID(id)
	}
	return nil
}

func (r *memFileRepo) DeleteByFolderPrefix(ctx context.Context, prefix string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, row := range r.rows {
		if row.Folder == prefix || strings.HasPrefix(row.Folder, prefix+"/") {
			delete(r.rows, id)
			removed++
		}
	}
	return removed, nil
}

func (r *memFileRepo) list(match func(*models.FileMetadata) bool) ([]*models.FileMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.FileMetadata
	for _, row := range r.rows {
		if match(row) {
			clone := *row
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memVersionRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.FileVersion
}

func newMemVersionRepo() *memVersionRepo {
	return &memVersionRepo{rows: make(map[int64]*models.FileVersion)}
}

func (r *memVersionRepo) Create(ctx context.Context, version *models.FileVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.FileID == version.FileID && row.VersionNumber == version.VersionNumber {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("Version %d of file %d already exists", version.VersionNumber, version.FileID),
				ResourceType: "version",
				ResourceID:   row.ID,
			}
		}
	}
	r.nextID++
	version.ID = r.nextID
	version.CreatedAt = time.Now()
	clone := *version
	r.rows[version.ID] = &clone
	return nil
}

func (r *memVersionRepo) GetByID(ctx context.Context, id int64) (*models.FileVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("Version %d not found", id)}
	}
	clone := *row
	return &clone, nil
}

func (r *memVersionRepo) ListByFileID(ctx context.Context, fileID int64) ([]*models.FileVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.FileVersion
	for _, row := range r.rows {
		if row.FileID == fileID {
			clone := *row
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

func (r *memVersionRepo) MaxVersionNumber(ctx context.Context, fileID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, row := range r.rows {
		if row.FileID == fileID && row.VersionNumber > max {
			max = row.VersionNumber
		}
	}
	return max, nil
}

func (r *memVersionRepo) deleteByFileID(fileID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.FileID == fileID {
			delete(r.rows, id)
		}
	}
}

func (r *memVersionRepo) CountByFileID(ctx context.Context, fileID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.FileID == fileID {
			n++
		}
	}
	return n, nil
}

// passthroughTx runs the function directly; the in-memory repos have no
// transactions to coordinate.
type passthroughTx struct{}

func (passthroughTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

// recordingSink captures events for assertions.
type recordingSink struct {
	mu            sync.Mutex
	activities    []string
	notifications []sinkNotification
}

type sinkNotification struct {
	userID int64
	kind   string
	urgent bool
}

func (s *recordingSink) Activity(userID int64, action, details string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, action)
}

func (s *recordingSink) Notify(userID int64, notificationType, message string, fileID *int64, urgent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, sinkNotification{userID: userID, kind: notificationType, urgent: urgent})
}

func (s *recordingSink) find(kind string) (sinkNotification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.kind == kind {
			return n, true
		}
	}
	return sinkNotification{}, false
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	return &config.Config{
		StorageRoot:       filepath.Join(base, "files"),
		VersionsDir:       filepath.Join(base, "versions"),
		MaxFileSize:       1 << 20,
		AllowedExtensions: []string{".pdf", ".docx", ".xlsx", ".pptx"},
		PreviewExtensions: []string{".pdf", ".png"},
	}
}

func newTestService(t *testing.T) (*Service, *memFileRepo, *memVersionRepo) {
	t.Helper()
	files := newMemFileRepo()
	versions := newMemVersionRepo()
	files.versions = versions
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := NewService(testConfig(t), logger, files, versions, passthroughTx{}, NopSink{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.EnsureLayout(config.DefaultDepartments()); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}
	return svc, files, versions
}

var (
	testUser  = models.Identity{UserID: 1}
	testAdmin = models.Identity{UserID: 2, IsAdmin: true}
)

// mustUpload grants overwrite so tests can replace files without ceremony;
// the no-overwrite path has its own tests.
func mustUpload(t *testing.T, svc *Service, actor models.Identity, folder, name, content string) *models.FileMetadata {
	t.Helper()
	rec, err := svc.Upload(context.Background(), actor, folder, name, strings.NewReader(content), UploadOptions{Overwrite: true})
	if err != nil {
		t.Fatalf("Upload %s/%s: %v", folder, name, err)
	}
	return rec
}
