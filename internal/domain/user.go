package domain

import "time"

// User is an account that can authenticate against the service:
// invigilators who file tickets and the staff who triage them.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        *string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
