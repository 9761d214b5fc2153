package access

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestPermissionMatches(t *testing.T) {
	tests := []struct {
		grant, requested Permission
		want             bool
	}{
		{"quote:send", "quote:send", true},
		{"quote:send", "quote:delete", false},
		{"quote:*", "quote:delete", true},
		{"quote:*", "invoice:delete", false},
		{"*:list", "payment:list", true},
		{"*:list", "payment:create", false},
		{PermissionAll, "user:update", true},
		{"broken", "quote:view", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.grant.Matches(tt.requested), "%s vs %s", tt.grant, tt.requested)
	}
}

func TestPermissionParse(t *testing.T) {
	res, act := NewPermission(ResourceInvoice, ActionSend).Parse()
	assert.Equal(t, "invoice", res)
	assert.Equal(t, ActionSend, act)

	res, act = Permission("invalid").Parse()
	assert.Empty(t, res)
	assert.Empty(t, act)
}

func TestBuiltinRoles(t *testing.T) {
	admin := RoleByName(models.RoleAdmin)
	staff := RoleByName(models.RoleStaff)
	viewer := RoleByName(models.RoleViewer)

	assert.True(t, admin.IsAdmin())
	assert.False(t, staff.IsAdmin())

	assert.True(t, staff.HasPermission(NewPermission(ResourceInvoice, ActionSend)))
	assert.True(t, staff.HasPermission(NewPermission(ResourceDashboard, ActionView)))
	assert.False(t, staff.HasPermission(NewPermission(ResourceUser, ActionUpdate)))
	assert.False(t, staff.HasPermission(NewPermission(ResourceEmail, ActionDelete)))

	assert.True(t, viewer.HasPermission(NewPermission(ResourceQuote, ActionList)))
	assert.False(t, viewer.HasPermission(NewPermission(ResourceQuote, ActionCreate)))
	assert.Nil(t, RoleByName("ghost"))
	assert.False(t, RoleByName("ghost").HasPermission(PermissionAll))
}

type countingResolver struct {
	calls int
	role  *Role
}

func (c *countingResolver) Resolve(context.Context, uint) (*Role, error) {
	c.calls++
	return c.role, nil
}

func TestCachedResolver(t *testing.T) {
	inner := &countingResolver{role: RoleByName(models.RoleStaff)}
	cached := NewCachedResolver(inner, time.Minute)
	now := time.Now()
	cached.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		role, err := cached.Resolve(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, models.RoleStaff, role.Name)
	}
	assert.Equal(t, 1, inner.calls)

	cached.Invalidate(1)
	_, _ = cached.Resolve(ctx, 1)
	assert.Equal(t, 2, inner.calls)

	now = now.Add(2 * time.Minute)
	_, _ = cached.Resolve(ctx, 1)
	assert.Equal(t, 3, inner.calls)

	cached.InvalidateAll()
	_, _ = cached.Resolve(ctx, 1)
	assert.Equal(t, 4, inner.calls)
}

func TestDBResolver(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	u := models.User{Email: "v@example.com", Password: "x", Role: models.RoleViewer}
	require.NoError(t, db.Create(&u).Error)

	r := NewDBResolver(db)
	role, err := r.Resolve(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, role.Name)

	role, err = r.Resolve(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, role)
}

func TestRequirePermission(t *testing.T) {
	g := NewGateWithResolver(StaticResolver{
		1: RoleByName(models.RoleStaff),
		2: RoleByName(models.RoleViewer),
	}, time.Minute)
	h := g.RequirePermission(ResourceQuote, ActionCreate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	cases := []struct {
		name string
		uid  uint
		want int
	}{
		{"anonymous", 0, http.StatusUnauthorized},
		{"staff", 1, http.StatusCreated},
		{"viewer", 2, http.StatusForbidden},
		{"unknown user", 3, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/quotes", nil)
			if tc.uid != 0 {
				req = req.WithContext(auth.WithUserID(req.Context(), tc.uid))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	g := NewGateWithResolver(StaticResolver{
		1: RoleByName(models.RoleAdmin),
		2: RoleByName(models.RoleStaff),
	}, time.Minute)
	h := g.RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for uid, want := range map[uint]int{1: http.StatusOK, 2: http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
		req = req.WithContext(auth.WithUserID(req.Context(), uid))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "user %d", uid)
	}
}
