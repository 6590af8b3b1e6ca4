// Package resolver maps the noisy artist and venue names found by the source
// adapters onto canonical Artist and Venue rows.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/yair/merchpulse/pkg/analysis"
	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/normalize"
)

// UnknownPlaceholder fills a missing venue name or city so the (name, city)
// key stays well-defined.
const UnknownPlaceholder = "Unknown"

type Resolver struct {
	repos domain.Repositories
}

func New(repos domain.Repositories) *Resolver {
	return &Resolver{repos: repos}
}

// ResolveArtist finds or creates the artist for rawName. contextTitle feeds
// the genre classifier on creation only. Returns nil when the name carries
// no usable characters.
func (r *Resolver) ResolveArtist(ctx context.Context, rawName, contextTitle string) (*domain.Artist, error) {
	name := normalize.CleanText(rawName)
	if name == "" {
		return nil, nil
	}
	key := normalize.ArtistKey(name)
	if key == "" {
		return nil, nil
	}

	artists := r.repos.Artists()
	existing, err := artists.GetByNormalizedName(ctx, key)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrArtistNotFound) {
		return nil, fmt.Errorf("failed to look up artist %q: %w", key, err)
	}

	artist := &domain.Artist{
		Name:           name,
		NormalizedName: key,
		Genre:          analysis.ClassifyGenre(contextTitle, name),
	}
	if err := artists.Create(ctx, artist); err != nil {
		if !errors.Is(err, domain.ErrDuplicateArtist) {
			return nil, fmt.Errorf("failed to create artist %q: %w", key, err)
		}
		// Lost a create race; the winner's row is the canonical one.
		return artists.GetByNormalizedName(ctx, key)
	}

	log.Printf("[resolver] new artist %q (%s, genre %s)", name, key, artist.Genre)
	return artist, nil
}

// ResolveVenue finds or creates the venue keyed by (name, city). It returns
// nil only when neither name nor city is known.
func (r *Resolver) ResolveVenue(ctx context.Context, name, city, state string) (*domain.Venue, error) {
	name = normalize.CleanText(name)
	city = normalize.CleanText(city)
	if name == "" && city == "" {
		return nil, nil
	}
	if name == "" {
		name = UnknownPlaceholder
	}
	if city == "" {
		city = UnknownPlaceholder
	}

	venues := r.repos.Venues()
	existing, err := venues.GetByNameCity(ctx, name, city)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrVenueNotFound) {
		return nil, fmt.Errorf("failed to look up venue %q: %w", name, err)
	}

	state = strings.ToUpper(strings.TrimSpace(state))
	if state == "" {
		state = normalize.StateForCity(city)
	}

	venue := &domain.Venue{Name: name, City: city, State: state}
	if err := venues.Create(ctx, venue); err != nil {
		if !errors.Is(err, domain.ErrDuplicateVenue) {
			return nil, fmt.Errorf("failed to create venue %q: %w", name, err)
		}
		return venues.GetByNameCity(ctx, name, city)
	}
	return venue, nil
}
