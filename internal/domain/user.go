package domain

import "time"

// Role enumerates access levels for accounts.
type Role string

const (
	RoleUser       Role = "USER"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
)

// IsValidRole reports whether the value is a defined role.
func IsValidRole(role Role) bool {
	switch role {
	case RoleUser, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// User is the domain model for accounts, mirroring identity attributes
// into storage. Supervisors and admins are directory entries eligible
// for ticket assignment.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor is the authenticated entity performing an operation. Services
// receive it explicitly; there is no ambient current-user state.
type Actor struct {
	ID   string
	Role Role
}
