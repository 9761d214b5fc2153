package access

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/httpx"
	"gorm.io/gorm"
)

// ErrForbidden is returned when the user lacks a permission.
var ErrForbidden = errors.New("forbidden")

// Gate is the application's authorization checkpoint.
type Gate struct {
	resolver Resolver
	cache    *CachedResolver
}

// NewGate builds a gate resolving roles from the users table, cached for cacheTTL.
func NewGate(db *gorm.DB, cacheTTL time.Duration) *Gate {
	return NewGateWithResolver(NewDBResolver(db), cacheTTL)
}

// NewGateWithResolver builds a gate over any resolver.
func NewGateWithResolver(r Resolver, cacheTTL time.Duration) *Gate {
	cached := NewCachedResolver(r, cacheTTL)
	return &Gate{resolver: cached, cache: cached}
}

// Role returns the role of the user in ctx.
func (g *Gate) Role(ctx context.Context) (*Role, error) {
	uid, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, ErrForbidden
	}
	role, err := g.resolver.Resolve(ctx, uid)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrForbidden
	}
	return role, nil
}

// Authorize returns ErrForbidden unless the user in ctx may perform action on resource.
func (g *Gate) Authorize(ctx context.Context, resource string, action Action) error {
	role, err := g.Role(ctx)
	if err != nil {
		return err
	}
	if !role.HasPermission(NewPermission(resource, action)) {
		return ErrForbidden
	}
	return nil
}

// Can is Authorize as a bool.
func (g *Gate) Can(ctx context.Context, resource string, action Action) bool {
	return g.Authorize(ctx, resource, action) == nil
}

// InvalidateUser forgets the cached role of one user.
func (g *Gate) InvalidateUser(userID uint) {
	g.cache.Invalidate(userID)
}

// RequirePermission returns middleware answering 403 when the permission is missing.
func (g *Gate) RequirePermission(resource string, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.UserIDFromContext(r.Context()); !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			if !g.Can(r.Context(), resource, action) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin only lets through users whose role grants everything.
func (g *Gate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.UserIDFromContext(r.Context()); !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			role, err := g.Role(r.Context())
			if err != nil || !role.IsAdmin() {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
