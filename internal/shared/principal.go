package shared

import "github.com/google/uuid"

// Principal describes the authenticated caller, reconstructed from a
// verified access token on every request. It is never persisted.
type Principal struct {
	UserID   uuid.UUID
	Role     Role
	SchoolID uuid.UUID // uuid.Nil for superadmins
}

// Scoped reports whether the principal is restricted to a single school.
func (p *Principal) Scoped() bool {
	return p != nil && p.Role == RoleSchoolAdmin
}

// Owns reports whether the principal may act on resources of the given
// school. Superadmins own everything.
func (p *Principal) Owns(schoolID uuid.UUID) bool {
	if p == nil {
		return false
	}
	if p.Role == RoleSuperadmin {
		return true
	}
	return p.SchoolID == schoolID
}
