package repositories

import (
	"context"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
)

// FileRepository is the metadata store for persisted file records.
// Create returns *domain.ConflictError when (folder, filename) is taken.
type FileRepository interface {
	Create(ctx context.Context, file *models.FileMetadata) error
	GetByID(ctx context.Context, id int64) (*models.FileMetadata, error)
	GetByFolderAndName(ctx context.Context, folder, filename string) (*models.FileMetadata, error)
	ListByFolder(ctx context.Context, folder string) ([]*models.FileMetadata, error)
	ListAll(ctx context.Context) ([]*models.FileMetadata, error)
	SearchByName(ctx context.Context, query string) ([]*models.FileMetadata, error)
	AdvancedSearch(ctx context.Context, filter *models.FileFilter) ([]*models.FileMetadata, error)
	ListAssignedTo(ctx context.Context, userID int64) ([]*models.FileMetadata, error)
	ListAssigned(ctx context.Context) ([]*models.FileMetadata, error)
	Update(ctx context.Context, id int64, upd *models.FileMetadataUpdate) (*models.FileMetadata, error)
	Delete(ctx context.Context, id int64) error
	DeleteByFolderPrefix(ctx context.Context, prefix string) (int64, error)
}

// FileVersionRepository stores the append-only version chain per file.
// Version rows are never mutated after creation; deleting the owning file
// record cascades to its versions.
type FileVersionRepository interface {
	Create(ctx context.Context, version *models.FileVersion) error
	GetByID(ctx context.Context, id int64) (*models.FileVersion, error)
	ListByFileID(ctx context.Context, fileID int64) ([]*models.FileVersion, error)
	MaxVersionNumber(ctx context.Context, fileID int64) (int, error)
	CountByFileID(ctx context.Context, fileID int64) (int, error)
}
