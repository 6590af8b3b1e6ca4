package interfaces

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/forecast"
)

const (
	marketplacePlatform    = "shopee"
	marketplaceLogPlatform = "shopee_marketplace"
)

type MarketplaceService struct {
	store     domain.Store
	ingestion *IngestionService
	daysAhead int
	now       func() time.Time
}

func NewMarketplaceService(store domain.Store, ingestion *IngestionService, daysAhead int) *MarketplaceService {
	if daysAhead <= 0 {
		daysAhead = forecast.DefaultDaysAhead
	}
	return &MarketplaceService{
		store:     store,
		ingestion: ingestion,
		daysAhead: daysAhead,
		now:       time.Now,
	}
}

// SearchTermsForEvents builds one "camiseta {artist}" query per artist with an
// active upcoming event. Custom terms replace them and carry no artist.
func (s *MarketplaceService) SearchTermsForEvents(ctx context.Context, custom []string) ([]domain.SearchTerm, error) {
	if len(custom) > 0 {
		terms := make([]domain.SearchTerm, 0, len(custom))
		for _, term := range custom {
			if term = strings.TrimSpace(term); term != "" {
				terms = append(terms, domain.SearchTerm{Term: term})
			}
		}
		return terms, nil
	}

	artists, err := s.store.Events().UpcomingArtists(ctx, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming artists: %w", err)
	}

	terms := make([]domain.SearchTerm, 0, len(artists))
	for _, artist := range artists {
		terms = append(terms, domain.SearchTerm{Term: "camiseta " + artist.Name, Artist: artist.Name})
	}
	return terms, nil
}

// ScrapeForEvents searches the marketplace for shirts about the artists
// playing soon and ingests what it finds.
func (s *MarketplaceService) ScrapeForEvents(ctx context.Context, custom []string) (*domain.IngestionResponse, error) {
	source, ok := s.ingestion.registry.ProductSource(marketplacePlatform)
	if !ok {
		return nil, domain.ErrUnknownPlatform
	}

	terms, err := s.SearchTermsForEvents(ctx, custom)
	if err != nil {
		return nil, err
	}

	result := s.ingestion.RunProducts(ctx, source, terms, marketplaceLogPlatform)
	return &domain.IngestionResponse{
		Status:  "completed",
		Message: fmt.Sprintf("Found %d products, %d new", result.Found, result.New),
		Details: []domain.RunResult{result},
	}, nil
}

func (s *MarketplaceService) ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.ProductListResponse, error) {
	products, total, err := s.store.Products().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if products == nil {
		products = []domain.MarketplaceProduct{}
	}
	return &domain.ProductListResponse{
		Products: products,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

func (s *MarketplaceService) Stats(ctx context.Context) (*forecast.MarketStats, error) {
	products, err := s.store.Products().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	stats := forecast.MarketplaceStats(products)
	return &stats, nil
}

func (s *MarketplaceService) Projection(ctx context.Context) (*forecast.Projection, error) {
	products, err := s.store.Products().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	projection := forecast.SalesProjection(products)
	return &projection, nil
}

// EventForecast projects shirt demand for events in the next daysAhead days.
// A non-positive daysAhead uses the configured default.
func (s *MarketplaceService) EventForecast(ctx context.Context, daysAhead int) (*forecast.Report, error) {
	if daysAhead <= 0 {
		daysAhead = s.daysAhead
	}
	now := s.now().UTC()

	events, err := s.store.Events().ListUpcoming(ctx, now, now.AddDate(0, 0, daysAhead))
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming events: %w", err)
	}
	products, err := s.store.Products().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	report := forecast.Events(events, products, now, daysAhead)
	return &report, nil
}
