package middleware

import (
	"net/http"
	"strings"

	"github.com/HaronZ/cdrrmo-file-manager/internal/auth"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/httputil"
)

// publicRoutes are reachable without a bearer token.
var publicRoutes = map[string]bool{
	"GET /health":           true,
	"POST /api/users":       true,
	"POST /api/users/token": true,
	"GET /api/users/count":  true,
}

// AuthMiddleware verifies the bearer token and stores the caller identity in
// the request context. Routes in publicRoutes pass through unauthenticated.
func AuthMiddleware(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicRoutes[r.Method+" "+strings.TrimSuffix(r.URL.Path, "/")] || publicRoutes[r.Method+" "+r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				httputil.RespondError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			claims, err := tokens.Verify(tokenString)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				httputil.RespondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			r = httputil.WithIdentity(r, models.Identity{
				UserID:  claims.UserID,
				IsAdmin: claims.IsAdmin,
			})
			next.ServeHTTP(w, r)
		})
	}
}
