package domain

import (
	"context"
	"time"
)

type ArtistRepository interface {
	Create(ctx context.Context, artist *Artist) error
	GetByID(ctx context.Context, id string) (*Artist, error)
	GetByNormalizedName(ctx context.Context, normalized string) (*Artist, error)
	UpdatePopularity(ctx context.Context, id string, popularity int, spotifyID string) error
	List(ctx context.Context, limit int) ([]Artist, error)
}

type VenueRepository interface {
	Create(ctx context.Context, venue *Venue) error
	GetByID(ctx context.Context, id string) (*Venue, error)
	GetByNameCity(ctx context.Context, name, city string) (*Venue, error)
}

type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	GetBySourceURL(ctx context.Context, sourceURL string) (*Event, error)
	// Update writes the mutable ticket-market fields and the derived scores.
	Update(ctx context.Context, event *Event) error
	// UpdateScores writes only the derived fields, leaving ticket-market data untouched.
	UpdateScores(ctx context.Context, event *Event) error
	List(ctx context.Context, filter EventFilter) ([]Event, int, error)
	// ListUpcoming returns active events dated in [from, to]. A zero to means no upper bound.
	ListUpcoming(ctx context.Context, from, to time.Time) ([]Event, error)
	UpcomingArtists(ctx context.Context, from time.Time) ([]Artist, error)
}

type SnapshotRepository interface {
	Append(ctx context.Context, snapshot *EventSnapshot) error
	Latest(ctx context.Context, eventID string) (*EventSnapshot, error)
	ListByEvent(ctx context.Context, eventID string) ([]EventSnapshot, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *MarketplaceProduct) error
	GetByExternalID(ctx context.Context, externalID, platform string) (*MarketplaceProduct, error)
	GetByURL(ctx context.Context, productURL string) (*MarketplaceProduct, error)
	UpdateMetrics(ctx context.Context, product *MarketplaceProduct) error
	List(ctx context.Context, filter ProductFilter) ([]MarketplaceProduct, int, error)
	All(ctx context.Context) ([]MarketplaceProduct, error)
}

type ScrapingLogRepository interface {
	Create(ctx context.Context, log *ScrapingLog) error
	List(ctx context.Context, platform string, limit int) ([]ScrapingLog, error)
}

// Repositories groups the per-entity repositories bound to one connection or transaction.
type Repositories interface {
	Artists() ArtistRepository
	Venues() VenueRepository
	Events() EventRepository
	Snapshots() SnapshotRepository
	Products() ProductRepository
	ScrapingLogs() ScrapingLogRepository
}

// Store runs fn inside one transaction: committed when fn returns nil, rolled back otherwise.
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(Repositories) error) error
}
