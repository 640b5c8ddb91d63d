package shared

// Role identifies one of the two access levels in the system.
type Role string

const (
	// RoleSuperadmin may act on any school.
	RoleSuperadmin Role = "superadmin"
	// RoleSchoolAdmin is scoped to a single school.
	RoleSchoolAdmin Role = "schoolAdmin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleSuperadmin || r == RoleSchoolAdmin
}
