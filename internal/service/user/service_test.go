package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/HaronZ/cdrrmo-file-manager/internal/auth"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
)

type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{rows: make(map[int64]*models.User)}
}

func (r *memUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Username == user.Username {
			return &domain.ConflictError{Message: "Username already registered", ResourceType: "user", ResourceID: row.ID}
		}
	}
	r.nextID++
	user.ID = r.nextID
	clone := *user
	r.rows[user.ID] = &clone
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("User %d not found", id)}
	}
	clone := *row
	return &clone, nil
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Username == username {
			clone := *row
			return &clone, nil
		}
	}
	return nil, &domain.NotFoundError{Message: fmt.Sprintf("User %q not found", username)}
}

func (r *memUserRepo) List(ctx context.Context, skip, limit int, search string) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, row := range r.rows {
		if search != "" && !strings.Contains(strings.ToLower(row.Username), strings.ToLower(search)) {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memUserRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *memUserRepo) Update(ctx context.Context, id int64, upd *models.UserUpdate) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("User %d not found", id)}
	}
	if upd.Username != nil {
		row.Username = *upd.Username
	}
	if upd.IsAdmin != nil {
		row.IsAdmin = *upd.IsAdmin
	}
	clone := *row
	return &clone, nil
}

func (r *memUserRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("User %d not found", id)}
	}
	delete(r.rows, id)
	return nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, newMemUserRepo(), auth.NewTokenManager("0123456789abcdef0123456789abcdef"))
}

func TestFirstRegisteredUserIsAdmin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, "maria", "correct horse battery")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !first.IsAdmin {
		t.Error("first user should be admin")
	}

	second, err := svc.Register(ctx, "juan", "another password!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if second.IsAdmin {
		t.Error("second user should not be admin")
	}
}

func TestGetUserPermissions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	admin, err := svc.Register(ctx, "maria", "correct horse battery")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	member, err := svc.Register(ctx, "juan", "another password!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	adminID := models.Identity{UserID: admin.ID, IsAdmin: true}
	memberID := models.Identity{UserID: member.ID}

	got, err := svc.GetUser(ctx, adminID, member.ID)
	if err != nil {
		t.Fatalf("admin GetUser: %v", err)
	}
	if got.Username != "juan" {
		t.Errorf("Username = %q, want juan", got.Username)
	}

	if _, err := svc.GetUser(ctx, memberID, member.ID); err != nil {
		t.Errorf("self GetUser: %v", err)
	}
	if _, err := svc.GetUser(ctx, memberID, admin.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestLoginUniformFailure(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "maria", "correct horse battery"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, _, wrongPass := svc.Login(ctx, "maria", "wrong password")
	_, _, noUser := svc.Login(ctx, "nobody", "wrong password")
	if !errors.Is(wrongPass, domain.ErrUnauthorized) || !errors.Is(noUser, domain.ErrUnauthorized) {
		t.Fatalf("errors = %v / %v, want ErrUnauthorized for both", wrongPass, noUser)
	}
	if wrongPass.Error() != noUser.Error() {
		t.Errorf("login errors differ: %q vs %q", wrongPass, noUser)
	}
}
