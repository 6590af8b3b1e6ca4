package domain

import (
	"time"
)

// Artist is the canonical performer identity. NormalizedName is the dedup key.
type Artist struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	Genre          string    `json:"genre,omitempty"`
	Popularity     int       `json:"popularity"`
	SpotifyID      string    `json:"spotify_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Venue struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	State     string    `json:"state,omitempty"`
	Capacity  *int      `json:"capacity,omitempty"`
	VenueType string    `json:"venue_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Ptr returns a pointer to v. Used for optional record fields.
func Ptr[T any](v T) *T {
	return &v
}
