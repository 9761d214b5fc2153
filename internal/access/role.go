package access

import "github.com/diewo77/go-crm/internal/models"

// Role is a named permission set.
type Role struct {
	Name        string
	permissions []Permission
}

// NewRole creates a role with the given permissions.
func NewRole(name string, perms ...Permission) *Role {
	return &Role{Name: name, permissions: perms}
}

// Permissions returns a copy of the role's permissions.
func (r *Role) Permissions() []Permission {
	return append([]Permission(nil), r.permissions...)
}

// HasPermission checks the requested permission against every grant, wildcards included.
func (r *Role) HasPermission(requested Permission) bool {
	if r == nil {
		return false
	}
	for _, p := range r.permissions {
		if p.Matches(requested) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role holds the all-matching permission.
func (r *Role) IsAdmin() bool {
	return r.HasPermission(PermissionAll)
}

var crmResources = []string{
	ResourceClient, ResourceService, ResourceQuote, ResourceInvoice, ResourcePayment,
}

func staffPermissions() []Permission {
	perms := make([]Permission, 0, len(crmResources)+4)
	for _, res := range crmResources {
		perms = append(perms, NewPermission(res, wildcard))
	}
	return append(perms,
		NewPermission(ResourceEmail, ActionList),
		NewPermission(ResourceEmail, ActionView),
		NewPermission(ResourceDashboard, ActionView),
	)
}

// BuiltinRoles maps the role names stored on users to their permissions.
// Admins may do everything, staff everything except user administration,
// viewers only read.
var BuiltinRoles = map[string]*Role{
	models.RoleAdmin: NewRole(models.RoleAdmin, PermissionAll),
	models.RoleStaff: NewRole(models.RoleStaff, staffPermissions()...),
	models.RoleViewer: NewRole(models.RoleViewer,
		NewPermission(wildcard, ActionList),
		NewPermission(wildcard, ActionView),
	),
}

// RoleByName returns the built-in role or nil.
func RoleByName(name string) *Role {
	return BuiltinRoles[name]
}
