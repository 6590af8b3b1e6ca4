package collectors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yair/merchpulse/pkg/domain"
)

type VenueRepository struct {
	conn
}

const venueColumns = `id, name, city, state, capacity, venue_type, created_at`

func (r *VenueRepository) Create(ctx context.Context, venue *domain.Venue) error {
	if venue == nil {
		return fmt.Errorf("venue cannot be nil")
	}
	if venue.ID == "" {
		venue.ID = uuid.NewString()
	}
	venue.CreatedAt = time.Now().UTC()

	query := `
	INSERT INTO venues (` + venueColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT DO NOTHING
	`

	res, err := r.exec(ctx, query,
		venue.ID,
		venue.Name,
		venue.City,
		nullString(venue.State),
		nullInt(venue.Capacity),
		nullString(venue.VenueType),
		venue.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateVenue
		}
		return fmt.Errorf("failed to create venue: %w", err)
	}

	ok, err := inserted(res)
	if err != nil {
		return fmt.Errorf("failed to create venue: %w", err)
	}
	if !ok {
		return domain.ErrDuplicateVenue
	}
	return nil
}

func (r *VenueRepository) GetByID(ctx context.Context, id string) (*domain.Venue, error) {
	return r.get(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = ?`, id)
}

func (r *VenueRepository) GetByNameCity(ctx context.Context, name, city string) (*domain.Venue, error) {
	return r.get(ctx, `SELECT `+venueColumns+` FROM venues WHERE name = ? AND city = ?`, name, city)
}

func (r *VenueRepository) get(ctx context.Context, query string, args ...any) (*domain.Venue, error) {
	var venue domain.Venue
	var state, venueType sql.NullString
	var capacity sql.NullInt64

	err := r.queryRow(ctx, query, args...).Scan(
		&venue.ID,
		&venue.Name,
		&venue.City,
		&state,
		&capacity,
		&venueType,
		&venue.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrVenueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}

	venue.State = state.String
	venue.Capacity = intPtr(capacity)
	venue.VenueType = venueType.String
	return &venue, nil
}
