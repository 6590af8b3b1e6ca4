package domain

import (
	"errors"
	"fmt"
)

var (
	ErrArtistNotFound     = errors.New("artist not found")
	ErrVenueNotFound      = errors.New("venue not found")
	ErrEventNotFound      = errors.New("event not found")
	ErrSnapshotNotFound   = errors.New("snapshot not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrDuplicateArtist    = errors.New("artist already exists")
	ErrDuplicateVenue     = errors.New("venue already exists")
	ErrDuplicateEvent     = errors.New("event already exists")
	ErrDuplicateProduct   = errors.New("product already exists")
	ErrExternalAPIFailure = errors.New("external API failure")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrUnknownPlatform    = errors.New("unknown platform")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}
