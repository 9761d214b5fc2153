package access

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/diewo77/go-crm/internal/models"
	"gorm.io/gorm"
)

// Resolver finds the role of a user. A nil role with a nil error means the
// user has no usable role.
type Resolver interface {
	Resolve(ctx context.Context, userID uint) (*Role, error)
}

// DBResolver reads the user's role column.
type DBResolver struct {
	DB *gorm.DB
}

// NewDBResolver creates a database-backed resolver.
func NewDBResolver(db *gorm.DB) *DBResolver {
	return &DBResolver{DB: db}
}

// Resolve implements Resolver.
func (r *DBResolver) Resolve(ctx context.Context, userID uint) (*Role, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Select("id", "role").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return RoleByName(user.Role), nil
}

// CachedResolver wraps a Resolver with TTL-based caching so authorization
// checks do not hit the database on every request.
type CachedResolver struct {
	inner Resolver
	ttl   time.Duration
	now   func() time.Time

	mu    sync.RWMutex
	cache map[uint]cacheEntry
}

type cacheEntry struct {
	role      *Role
	expiresAt time.Time
}

// NewCachedResolver wraps inner; entries live for ttl.
func NewCachedResolver(inner Resolver, ttl time.Duration) *CachedResolver {
	return &CachedResolver{
		inner: inner,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[uint]cacheEntry),
	}
}

// Resolve returns the cached role, fetching it on a miss or after expiry.
func (r *CachedResolver) Resolve(ctx context.Context, userID uint) (*Role, error) {
	r.mu.RLock()
	entry, ok := r.cache[userID]
	r.mu.RUnlock()
	if ok && r.now().Before(entry.expiresAt) {
		return entry.role, nil
	}

	role, err := r.inner.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[userID] = cacheEntry{role: role, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return role, nil
}

// Invalidate drops one user; call it after changing their role.
func (r *CachedResolver) Invalidate(userID uint) {
	r.mu.Lock()
	delete(r.cache, userID)
	r.mu.Unlock()
}

// InvalidateAll clears the cache.
func (r *CachedResolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[uint]cacheEntry)
	r.mu.Unlock()
}

// StaticResolver serves fixed assignments; handy in tests.
type StaticResolver map[uint]*Role

// Resolve implements Resolver.
func (s StaticResolver) Resolve(_ context.Context, userID uint) (*Role, error) {
	return s[userID], nil
}
