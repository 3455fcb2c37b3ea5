package httputil

import (
	"context"
	"net/http"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const identityKey contextKey = "identity"

// WithIdentity adds the authenticated caller's identity to the request context
func WithIdentity(r *http.Request, id models.Identity) *http.Request {
	ctx := context.WithValue(r.Context(), identityKey, id)
	return r.WithContext(ctx)
}

// GetIdentity retrieves the caller identity from the context.
// The second return is false for unauthenticated requests.
func GetIdentity(r *http.Request) (models.Identity, bool) {
	id, ok := r.Context().Value(identityKey).(models.Identity)
	return id, ok
}
