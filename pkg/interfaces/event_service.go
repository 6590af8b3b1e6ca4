package interfaces

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/normalize"
)

const highScoreThreshold = 70

type CityCount struct {
	City  string `json:"city"`
	Count int    `json:"count"`
}

type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

type DashboardStats struct {
	TotalEvents        int          `json:"total_events"`
	HighHypeCount      int          `json:"high_hype_count"`
	HighPotentialCount int          `json:"high_potential_count"`
	EventsThisMonth    int          `json:"events_this_month"`
	EventsNextMonth    int          `json:"events_next_month"`
	TopCities          []CityCount  `json:"top_cities"`
	TopGenres          []GenreCount `json:"top_genres"`
}

// EventService answers read queries over stored events and run logs.
type EventService struct {
	store domain.Store
	now   func() time.Time
}

func NewEventService(store domain.Store) *EventService {
	return &EventService{
		store: store,
		now:   time.Now,
	}
}

func (s *EventService) ListEvents(ctx context.Context, filter domain.EventFilter) (*domain.EventListResponse, error) {
	events, total, err := s.store.Events().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return &domain.EventListResponse{
		Events:   events,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

func (s *EventService) GetEvent(ctx context.Context, id string) (*domain.EventDetail, error) {
	if id == "" {
		return nil, domain.ErrInvalidRequest
	}

	event, err := s.store.Events().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.store.Snapshots().ListByEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	if snapshots == nil {
		snapshots = []domain.EventSnapshot{}
	}

	return &domain.EventDetail{Event: *event, Snapshots: snapshots}, nil
}

// Rankings returns upcoming events ordered by metric, which is hype_score or
// sales_potential_score.
func (s *EventService) Rankings(ctx context.Context, metric string, limit int) ([]domain.Event, error) {
	if metric != "hype_score" && metric != "sales_potential_score" {
		return nil, domain.ErrInvalidRequest
	}

	now := s.now().UTC()
	events, _, err := s.store.Events().List(ctx, domain.EventFilter{
		Upcoming: &now,
		SortBy:   metric,
		Page:     1,
		PageSize: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rank events: %w", err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}

// DashboardStats summarizes active upcoming events. Month boundaries are
// Brasilia calendar months.
func (s *EventService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	now := s.now()
	events, err := s.store.Events().ListUpcoming(ctx, now.UTC(), time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming events: %w", err)
	}

	local := now.In(normalize.BRT)
	thisMonthEnd := time.Date(local.Year(), local.Month()+1, 1, 0, 0, 0, 0, normalize.BRT)
	nextMonthEnd := thisMonthEnd.AddDate(0, 1, 0)

	stats := &DashboardStats{TotalEvents: len(events)}
	cities := make(map[string]int)
	genres := make(map[string]int)

	for _, event := range events {
		if event.HypeScore >= highScoreThreshold {
			stats.HighHypeCount++
		}
		if event.SalesPotentialScore >= highScoreThreshold {
			stats.HighPotentialCount++
		}
		switch {
		case event.EventDate.Before(thisMonthEnd):
			stats.EventsThisMonth++
		case event.EventDate.Before(nextMonthEnd):
			stats.EventsNextMonth++
		}
		if event.Venue != nil && event.Venue.City != "" {
			cities[event.Venue.City]++
		}
		if event.Artist != nil && event.Artist.Genre != "" {
			genres[event.Artist.Genre]++
		}
	}

	stats.TopCities = make([]CityCount, 0, len(cities))
	for _, name := range topKeys(cities, 5) {
		stats.TopCities = append(stats.TopCities, CityCount{City: name, Count: cities[name]})
	}
	stats.TopGenres = make([]GenreCount, 0, len(genres))
	for _, name := range topKeys(genres, 5) {
		stats.TopGenres = append(stats.TopGenres, GenreCount{Genre: name, Count: genres[name]})
	}
	return stats, nil
}

func (s *EventService) Logs(ctx context.Context, platform string, limit int) ([]domain.ScrapingLog, error) {
	logs, err := s.store.ScrapingLogs().List(ctx, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scraping logs: %w", err)
	}
	if logs == nil {
		logs = []domain.ScrapingLog{}
	}
	return logs, nil
}

// topKeys returns up to n keys by descending count, ties broken by name.
func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
