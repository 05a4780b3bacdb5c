package models

import "time"

// Listing represents a rentable property owned by a user.
type Listing struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Size        string    `json:"size"`
	Photo       string    `json:"photo"`
	Price       int       `json:"price"`
	HasPool     bool      `json:"hasPool"`
	IsFenced    bool      `json:"isFenced"`
	HasBarbecue bool      `json:"hasBarbecue"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ListingFilter narrows a listing query by exact match. Empty fields are ignored.
type ListingFilter struct {
	OwnerID  string
	Location string
	Size     string
}
