package domain

// Role enumerates tenant-scoped roles. Every role except RoleTenant is privileged.
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleStaff   Role = "STAFF"
	RoleTenant  Role = "TENANT"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleStaff, RoleTenant:
		return true
	}
	return false
}

// Identity is the caller context supplied for every operation.
type Identity struct {
	TenantID string
	UserID   string
	Roles    []Role
}

// HasRole reports whether the identity carries role.
func (i Identity) HasRole(role Role) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}
