package domain

import "time"

// Role enumerates workflow participants.
type Role string

const (
	RoleLecturer    Role = "LECTURER"
	RoleCoordinator Role = "COORDINATOR"
	RoleManager     Role = "MANAGER"
	RoleHR          Role = "HR"
)

// Valid reports whether the role is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleLecturer, RoleCoordinator, RoleManager, RoleHR:
		return true
	}
	return false
}

// Account models an authenticated workflow participant.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	// LecturerID links a lecturer account to its directory record, when any.
	LecturerID *string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
