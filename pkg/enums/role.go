package enums

import "fmt"

// Role is a dealership CRM user role.
type Role string

const (
	RoleSuperAdmin   Role = "super_admin"
	RoleDealerAdmin  Role = "dealer_admin"
	RoleSalesManager Role = "sales_manager"
	RoleSalesRep     Role = "sales_rep"
)

var validRoles = []Role{
	RoleSuperAdmin,
	RoleDealerAdmin,
	RoleSalesManager,
	RoleSalesRep,
}

// Roles returns every known role ordered from most to least privileged.
func Roles() []Role {
	out := make([]Role, len(validRoles))
	copy(out, validRoles)
	return out
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	return r.Rank() > 0
}

// Rank is the role's position in the management hierarchy, 1 being the
// most privileged. Unknown roles rank 0.
func (r Role) Rank() int {
	for i, candidate := range validRoles {
		if candidate == r {
			return i + 1
		}
	}
	return 0
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
