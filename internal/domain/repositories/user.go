package repositories

import (
	"context"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
)

// UserRepository stores user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, skip, limit int, search string) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id int64, upd *models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}
