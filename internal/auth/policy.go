package auth

import (
	"github.com/google/uuid"

	"github.com/amo-platform/amo-server/internal/models"
)

// RouteClass names a class of protected routes. Every protected route
// is assigned exactly one class; the policy table below is the single
// source of truth for what each class requires.
type RouteClass string

const (
	// ClassAuthenticated requires any valid session
	ClassAuthenticated RouteClass = "authenticated"
	// ClassAdminAccounts covers the administrative account collection
	ClassAdminAccounts RouteClass = "admin.accounts"
	// ClassAdminTenants covers administrative tenant management
	ClassAdminTenants RouteClass = "admin.tenants"
	// ClassAdminLicenses covers the license ledger
	ClassAdminLicenses RouteClass = "admin.licenses"
	// ClassTenantSelf covers resources scoped to a single tenant: admins
	// may reach any tenant, users only their own
	ClassTenantSelf RouteClass = "tenant.self"
)

// RoutePolicy declares what a route class requires
type RoutePolicy struct {
	Class        RouteClass
	RequiredRole models.Role // empty means any authenticated role
	TenantScoped bool        // resource ownership enforced for USER sessions
}

// policyTable is data, not conditionals, so the whole access policy can
// be tested exhaustively in one place.
var policyTable = []RoutePolicy{
	{Class: ClassAuthenticated},
	{Class: ClassAdminAccounts, RequiredRole: models.RoleAdmin},
	{Class: ClassAdminTenants, RequiredRole: models.RoleAdmin},
	{Class: ClassAdminLicenses, RequiredRole: models.RoleAdmin},
	{Class: ClassTenantSelf, TenantScoped: true},
}

// PolicyFor looks up the policy for a route class
func PolicyFor(class RouteClass) (RoutePolicy, bool) {
	for _, p := range policyTable {
		if p.Class == class {
			return p, true
		}
	}
	return RoutePolicy{}, false
}

// Requirement builds the authorization requirement for one request
// against this policy. tenantID is the owner of the targeted resource,
// taken from the request path; it is ignored unless the class is
// tenant-scoped.
func (p RoutePolicy) Requirement(tenantID *uuid.UUID) Requirement {
	req := Requirement{Role: p.RequiredRole}
	if p.TenantScoped {
		req.TenantID = tenantID
	}
	return req
}
