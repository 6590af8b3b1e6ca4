package interfaces

import (
	"context"
	"fmt"
	"log"

	"github.com/yair/merchpulse/pkg/domain"
)

// PopularitySource refreshes artist popularity from an external catalogue.
type PopularitySource interface {
	Seed(ctx context.Context, limit int) (int, error)
}

type ArtistService struct {
	repository domain.ArtistRepository
	popularity PopularitySource
}

// NewArtistService builds the artist read side. popularity may be nil when no
// external catalogue is configured.
func NewArtistService(repository domain.ArtistRepository, popularity PopularitySource) *ArtistService {
	return &ArtistService{
		repository: repository,
		popularity: popularity,
	}
}

func (s *ArtistService) ListArtists(ctx context.Context, limit int) ([]domain.Artist, error) {
	artists, err := s.repository.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}
	if artists == nil {
		artists = []domain.Artist{}
	}
	return artists, nil
}

func (s *ArtistService) GetArtist(ctx context.Context, id string) (*domain.Artist, error) {
	if id == "" {
		return nil, domain.ErrInvalidRequest
	}

	artist, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return artist, nil
}

// RefreshPopularity re-seeds popularity for up to limit artists.
func (s *ArtistService) RefreshPopularity(ctx context.Context, limit int) (int, error) {
	if s.popularity == nil {
		return 0, domain.ErrExternalAPIFailure
	}

	updated, err := s.popularity.Seed(ctx, limit)
	if err != nil {
		log.Printf("[artists] popularity refresh stopped after %d updates: %v", updated, err)
		return updated, err
	}
	return updated, nil
}
