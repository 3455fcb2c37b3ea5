package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HaronZ/cdrrmo-file-manager/internal/auth"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/httputil"
)

func newAuthedServer(t *testing.T) (*auth.TokenManager, http.Handler) {
	t.Helper()
	tokens := auth.NewTokenManager("0123456789abcdef0123456789abcdef")
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := httputil.GetIdentity(r); ok && id.UserID != 0 {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusTeapot) // public route reached without identity
	})
	return tokens, AuthMiddleware(tokens)(inner)
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	_, h := newAuthedServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}
}

func TestAuthMiddlewareRejectsGarbageToken(t *testing.T) {
	_, h := newAuthedServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestAuthMiddlewarePassesIdentity(t *testing.T) {
	tokens, h := newAuthedServer(t)

	token, err := tokens.Issue(&models.User{ID: 5, Username: "maria", IsAdmin: true})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestAuthMiddlewarePublicRoutes(t *testing.T) {
	_, h := newAuthedServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/users"},
		{http.MethodPost, "/api/users/token"},
		{http.MethodGet, "/api/users/count"},
		{http.MethodGet, "/health"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusTeapot {
			t.Errorf("%s %s: status = %d, want public passthrough", route.method, route.path, rr.Code)
		}
	}
}
