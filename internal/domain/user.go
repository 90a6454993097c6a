package domain

import "time"

// User is an account that can sign in and act on repair tickets.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Department   string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the acting identity for the user.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.Name, Role: u.Role}
}
