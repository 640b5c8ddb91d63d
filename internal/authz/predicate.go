// Package authz gates every request on role and tenant membership.
package authz

import (
	"github.com/google/uuid"

	"github.com/lyceum-app/lyceum/internal/shared"
)

// Authorize decides allow/deny for a principal against an action's allowed
// roles and, when known, the target resource's school. Failure ordering is
// fixed: missing principal (401) before wrong role (403) before tenant
// mismatch (403), so a role failure never reveals whether the resource
// exists.
func Authorize(p *shared.Principal, allowed []shared.Role, resourceSchool uuid.UUID) error {
	if len(allowed) == 0 {
		return nil
	}
	if p == nil {
		return shared.ErrUnauthorized
	}
	if !roleAllowed(p.Role, allowed) {
		return shared.ErrForbidden
	}
	if p.Scoped() && resourceSchool != uuid.Nil && p.SchoolID != resourceSchool {
		return shared.ErrForbidden
	}
	return nil
}

// RequireOwner re-checks tenant ownership against a fetched resource.
// Services call this after loading the target, once role membership has
// already passed at the route guard.
func RequireOwner(p *shared.Principal, resourceSchool uuid.UUID) error {
	if p == nil {
		return shared.ErrUnauthorized
	}
	if !p.Owns(resourceSchool) {
		return shared.ErrForbidden
	}
	return nil
}

func roleAllowed(role shared.Role, allowed []shared.Role) bool {
	for _, candidate := range allowed {
		if role == candidate {
			return true
		}
	}
	return false
}
