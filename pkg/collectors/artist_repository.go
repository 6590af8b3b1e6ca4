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

type ArtistRepository struct {
	conn
}

const artistColumns = `id, name, normalized_name, genre, popularity, spotify_id, created_at, updated_at`

func (r *ArtistRepository) Create(ctx context.Context, artist *domain.Artist) error {
	if artist == nil {
		return fmt.Errorf("artist cannot be nil")
	}
	if artist.NormalizedName == "" {
		return domain.ValidationError{Field: "normalized_name", Message: "is required"}
	}

	if artist.ID == "" {
		artist.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	artist.CreatedAt = now
	artist.UpdatedAt = now

	query := `
	INSERT INTO artists (` + artistColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT DO NOTHING
	`

	res, err := r.exec(ctx, query,
		artist.ID,
		artist.Name,
		artist.NormalizedName,
		nullString(artist.Genre),
		artist.Popularity,
		nullString(artist.SpotifyID),
		artist.CreatedAt,
		artist.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateArtist
		}
		return fmt.Errorf("failed to create artist: %w", err)
	}

	ok, err := inserted(res)
	if err != nil {
		return fmt.Errorf("failed to create artist: %w", err)
	}
	if !ok {
		return domain.ErrDuplicateArtist
	}
	return nil
}

func (r *ArtistRepository) GetByID(ctx context.Context, id string) (*domain.Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists WHERE id = ?`
	return r.get(ctx, query, id)
}

func (r *ArtistRepository) GetByNormalizedName(ctx context.Context, normalized string) (*domain.Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists WHERE normalized_name = ?`
	return r.get(ctx, query, normalized)
}

func (r *ArtistRepository) get(ctx context.Context, query string, arg any) (*domain.Artist, error) {
	artist, err := scanArtist(r.queryRow(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrArtistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artist: %w", err)
	}
	return artist, nil
}

func (r *ArtistRepository) UpdatePopularity(ctx context.Context, id string, popularity int, spotifyID string) error {
	if popularity < 0 || popularity > 100 {
		return domain.ValidationError{Field: "popularity", Message: "must be between 0 and 100"}
	}

	query := `
	UPDATE artists
	SET popularity = ?, spotify_id = COALESCE(?, spotify_id), updated_at = ?
	WHERE id = ?
	`

	res, err := r.exec(ctx, query, popularity, nullString(spotifyID), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update artist popularity: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrArtistNotFound
	}
	return nil
}

func (r *ArtistRepository) List(ctx context.Context, limit int) ([]domain.Artist, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.query(ctx, `SELECT `+artistColumns+` FROM artists ORDER BY name LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}
	defer rows.Close()

	var artists []domain.Artist
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, *artist)
	}
	return artists, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtist(row rowScanner) (*domain.Artist, error) {
	var artist domain.Artist
	var genre, spotifyID sql.NullString

	err := row.Scan(
		&artist.ID,
		&artist.Name,
		&artist.NormalizedName,
		&genre,
		&artist.Popularity,
		&spotifyID,
		&artist.CreatedAt,
		&artist.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	artist.Genre = genre.String
	artist.SpotifyID = spotifyID.String
	return &artist, nil
}
