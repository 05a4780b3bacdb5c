package models

import "time"

// User represents a registered account in the system.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Bio          *string   `json:"bio,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserSummary is the public identity shown next to bookings and messages.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
