package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/HaronZ/cdrrmo-file-manager/internal/auth"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/repositories"
)

// Service handles account registration, login, and user administration.
type Service struct {
	logger *slog.Logger
	users  repositories.UserRepository
	tokens *auth.TokenManager
}

func NewService(logger *slog.Logger, users repositories.UserRepository, tokens *auth.TokenManager) *Service {
	return &Service{logger: logger, users: users, tokens: tokens}
}

// Register creates an account. The very first account becomes an admin so a
// fresh deployment can bootstrap itself without seed data.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:       username,
		HashedPassword: hashed,
		IsAdmin:        count == 0,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", username, "is_admin", user.IsAdmin)
	return user, nil
}

// Login verifies credentials and returns a signed access token. The same
// error covers an unknown username and a wrong password so login does not
// reveal which accounts exist.
func (s *Service) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, &domain.UnauthorizedError{Message: "Incorrect username or password"}
		}
		return "", nil, err
	}
	if !auth.VerifyPassword(password, user.HashedPassword) {
		return "", nil, &domain.UnauthorizedError{Message: "Incorrect username or password"}
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// GetUser returns one account for the admin screens. Admins can fetch
// anyone; everyone else only themselves.
func (s *Service) GetUser(ctx context.Context, actor models.Identity, id int64) (*models.User, error) {
	if !actor.IsAdmin && actor.UserID != id {
		return nil, &domain.ForbiddenError{Message: "Only admins can view other users"}
	}
	return s.users.GetByID(ctx, id)
}

// Count returns the number of registered accounts. Public: the frontend uses
// it to decide whether to show the first-run setup screen.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.users.Count(ctx)
}

// List returns users matching an optional username search.
func (s *Service) List(ctx context.Context, skip, limit int, search string) ([]*models.User, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	return s.users.List(ctx, skip, limit, search)
}

// Update changes a user's name or admin flag. Admin only; an admin cannot
// strip their own admin flag, which keeps the system from locking every
// admin out at once.
func (s *Service) Update(ctx context.Context, actor models.Identity, id int64, upd *models.UserUpdate) (*models.User, error) {
	if !actor.IsAdmin {
		return nil, &domain.ForbiddenError{Message: "Only admins can update users"}
	}
	if id == actor.UserID && upd.IsAdmin != nil && !*upd.IsAdmin {
		return nil, &domain.ValidationError{Message: "You cannot remove your own admin role"}
	}
	return s.users.Update(ctx, id, upd)
}

// Delete removes an account. Admin only, and never your own.
func (s *Service) Delete(ctx context.Context, actor models.Identity, id int64) error {
	if !actor.IsAdmin {
		return &domain.ForbiddenError{Message: "Only admins can delete users"}
	}
	if id == actor.UserID {
		return &domain.ValidationError{Message: "You cannot delete your own account"}
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id, "by", actor.UserID)
	return nil
}
