package domain

import (
	"time"
)

type TicketStatus string

const (
	TicketAvailable   TicketStatus = "available"
	TicketSellingFast TicketStatus = "selling_fast"
	TicketSoldOut     TicketStatus = "sold_out"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketAvailable, TicketSellingFast, TicketSoldOut:
		return true
	}
	return false
}

type EventType string

const (
	EventConcert  EventType = "concert"
	EventTourStop EventType = "tour_stop"
	EventFestival EventType = "festival"
)

func (t EventType) Valid() bool {
	switch t {
	case EventConcert, EventTourStop, EventFestival:
		return true
	}
	return false
}

// Event is one scheduled performance. SourceURL is unique when present and a
// re-scrape of the same URL updates the row in place.
type Event struct {
	ID                  string       `json:"id"`
	Title               string       `json:"title"`
	EventDate           time.Time    `json:"event_date"`
	ArtistID            string       `json:"artist_id,omitempty"`
	VenueID             string       `json:"venue_id,omitempty"`
	SourcePlatform      string       `json:"source_platform"`
	SourceURL           string       `json:"source_url,omitempty"`
	ExternalID          string       `json:"external_id,omitempty"`
	TicketStatus        TicketStatus `json:"ticket_status"`
	EstimatedAudience   *int         `json:"estimated_audience,omitempty"`
	TicketPriceMin      *float64     `json:"ticket_price_min,omitempty"`
	TicketPriceMax      *float64     `json:"ticket_price_max,omitempty"`
	EventType           EventType    `json:"event_type"`
	IsFestival          bool         `json:"is_festival"`
	Headliners          []string     `json:"headliners,omitempty"`
	HypeScore           float64      `json:"hype_score"`
	SalesPotentialScore float64      `json:"sales_potential_score"`
	ProductionStartDate *time.Time   `json:"production_start_date,omitempty"`
	ProductionDeadline  *time.Time   `json:"production_deadline,omitempty"`
	IsActive            bool         `json:"is_active"`
	FirstSeenAt         time.Time    `json:"first_seen_at"`
	LastScrapedAt       time.Time    `json:"last_scraped_at"`

	// Populated on reads.
	Artist *Artist `json:"artist,omitempty"`
	Venue  *Venue  `json:"venue,omitempty"`
}

// EventSnapshot is an immutable capture of an event's ticket-market fields.
// Seq breaks ties between snapshots taken within the same clock tick.
type EventSnapshot struct {
	ID                string       `json:"id"`
	EventID           string       `json:"event_id"`
	Seq               int          `json:"seq"`
	TicketStatus      TicketStatus `json:"ticket_status"`
	EstimatedAudience *int         `json:"estimated_audience,omitempty"`
	TicketPriceMin    *float64     `json:"ticket_price_min,omitempty"`
	TicketPriceMax    *float64     `json:"ticket_price_max,omitempty"`
	SnapshotAt        time.Time    `json:"snapshot_at"`
}

// ScrapedEvent is the normalized record every event source produces. Optional
// fields are nil when the source gave no signal.
type ScrapedEvent struct {
	Title             string       `json:"title" validate:"required"`
	ArtistName        string       `json:"artist_name"`
	VenueName         string       `json:"venue_name"`
	City              string       `json:"city"`
	State             string       `json:"state,omitempty"`
	EventDate         *time.Time   `json:"event_date,omitempty"`
	SourcePlatform    string       `json:"source_platform" validate:"required"`
	SourceURL         string       `json:"source_url,omitempty" validate:"omitempty,url"`
	ExternalID        string       `json:"external_id,omitempty"`
	TicketStatus      TicketStatus `json:"ticket_status" validate:"oneof=available selling_fast sold_out"`
	EstimatedAudience *int         `json:"estimated_audience,omitempty" validate:"omitempty,gte=0"`
	TicketPriceMin    *float64     `json:"ticket_price_min,omitempty" validate:"omitempty,gte=0"`
	TicketPriceMax    *float64     `json:"ticket_price_max,omitempty" validate:"omitempty,gte=0"`
	EventType         EventType    `json:"event_type" validate:"oneof=concert tour_stop festival"`
	IsFestival        bool         `json:"is_festival"`
	Headliners        []string     `json:"headliners,omitempty"`
}

type EventFilter struct {
	City              string
	Genre             string
	MinHype           *float64
	MinSalesPotential *float64
	DateFrom          *time.Time
	DateTo            *time.Time
	// Upcoming restricts to active events dated at or after the given time.
	Upcoming *time.Time
	// SortBy is one of event_date (default), hype_score, sales_potential_score.
	SortBy   string
	Page     int
	PageSize int
}

type EventListResponse struct {
	Events   []Event `json:"events"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

type EventDetail struct {
	Event
	Snapshots []EventSnapshot `json:"snapshots"`
}
