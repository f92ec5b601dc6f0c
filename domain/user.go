// Package domain contains the core entities of the collaboration system.
// No runtime, network, or storage logic should be added here.
package domain

// Role is the position a user holds inside a project.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// User is an account known to the system. PasswordHash never leaves
// the store/auth boundary.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}
