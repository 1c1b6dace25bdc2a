package enums

// UserRole represents the caller's role on the platform.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleCourier  UserRole = "courier"
	UserRoleAdmin    UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleCourier,
	UserRoleAdmin,
}

// IsValid reports whether the role is a known value.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if r == candidate {
			return true
		}
	}
	return false
}

// ParseUserRole casts the raw value after validation.
func ParseUserRole(raw string) (UserRole, bool) {
	role := UserRole(raw)
	if !role.IsValid() {
		return "", false
	}
	return role, true
}
