// Package access decides what a signed-in user may do. Each user carries one
// role; a role is a set of "resource:action" permissions with wildcards.
package access

import "strings"

// Action describes the kind of operation a user wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
	ActionSend   Action = "send"
)

// Resources guarded by the gate.
const (
	ResourceClient    = "client"
	ResourceService   = "service"
	ResourceQuote     = "quote"
	ResourceInvoice   = "invoice"
	ResourcePayment   = "payment"
	ResourceEmail     = "email"
	ResourceDashboard = "dashboard"
	ResourceUser      = "user"
)

// Permission is "resource:action", e.g. "invoice:send".
type Permission string

const (
	wildcard = "*"
	// PermissionAll matches every permission.
	PermissionAll Permission = "*:*"
)

// NewPermission creates a permission from resource type and action.
func NewPermission(resource string, action Action) Permission {
	return Permission(resource + ":" + string(action))
}

// Parse splits a permission into resource type and action.
func (p Permission) Parse() (resource string, action Action) {
	res, act, ok := strings.Cut(string(p), ":")
	if !ok {
		return "", ""
	}
	return res, Action(act)
}

// Matches reports whether p grants requested. Either half of p may be "*":
// "quote:*" covers every quote action and "*:list" listing any resource.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionAll || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, reqAct := requested.Parse()
	if res == "" || reqRes == "" {
		return false
	}
	return (res == wildcard || res == reqRes) && (string(act) == wildcard || act == reqAct)
}
