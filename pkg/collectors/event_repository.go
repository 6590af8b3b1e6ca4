package collectors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yair/merchpulse/pkg/domain"
)

type EventRepository struct {
	conn
}

const eventSelect = `
	SELECT e.id, e.title, e.event_date, e.artist_id, e.venue_id, e.source_platform,
		e.source_url, e.external_id, e.ticket_status, e.estimated_audience,
		e.ticket_price_min, e.ticket_price_max, e.event_type, e.is_festival, e.headliners,
		e.hype_score, e.sales_potential_score, e.production_start_date, e.production_deadline,
		e.is_active, e.first_seen_at, e.last_scraped_at,
		a.name, a.normalized_name, a.genre, a.popularity,
		v.name, v.city, v.state, v.capacity, v.venue_type
	FROM events e
	LEFT JOIN artists a ON a.id = e.artist_id
	LEFT JOIN venues v ON v.id = e.venue_id`

func (r *EventRepository) Create(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Title == "" {
		return domain.ValidationError{Field: "title", Message: "is required"}
	}
	if event.EventDate.IsZero() {
		return domain.ValidationError{Field: "event_date", Message: "is required"}
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.TicketStatus == "" {
		event.TicketStatus = domain.TicketAvailable
	}
	if event.EventType == "" {
		event.EventType = domain.EventConcert
	}
	now := time.Now().UTC()
	if event.FirstSeenAt.IsZero() {
		event.FirstSeenAt = now
	}
	if event.LastScrapedAt.IsZero() {
		event.LastScrapedAt = now
	}
	event.IsActive = true

	query := `
	INSERT INTO events (
		id, title, event_date, artist_id, venue_id, source_platform, source_url, external_id,
		ticket_status, estimated_audience, ticket_price_min, ticket_price_max, event_type,
		is_festival, headliners, hype_score, sales_potential_score, production_start_date,
		production_deadline, is_active, first_seen_at, last_scraped_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT DO NOTHING
	`

	res, err := r.exec(ctx, query,
		event.ID,
		event.Title,
		utc(event.EventDate),
		nullString(event.ArtistID),
		nullString(event.VenueID),
		event.SourcePlatform,
		nullString(event.SourceURL),
		nullString(event.ExternalID),
		string(event.TicketStatus),
		nullInt(event.EstimatedAudience),
		nullFloat(event.TicketPriceMin),
		nullFloat(event.TicketPriceMax),
		string(event.EventType),
		event.IsFestival,
		encodeList(event.Headliners),
		event.HypeScore,
		event.SalesPotentialScore,
		nullTime(event.ProductionStartDate),
		nullTime(event.ProductionDeadline),
		event.IsActive,
		utc(event.FirstSeenAt),
		utc(event.LastScrapedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEvent
		}
		return fmt.Errorf("failed to create event: %w", err)
	}

	ok, err := inserted(res)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	if !ok {
		return domain.ErrDuplicateEvent
	}
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return r.get(ctx, eventSelect+` WHERE e.id = ?`, id)
}

func (r *EventRepository) GetBySourceURL(ctx context.Context, sourceURL string) (*domain.Event, error) {
	if sourceURL == "" {
		return nil, domain.ErrEventNotFound
	}
	return r.get(ctx, eventSelect+` WHERE e.source_url = ?`, sourceURL)
}

func (r *EventRepository) get(ctx context.Context, query string, arg any) (*domain.Event, error) {
	event, err := scanEvent(r.queryRow(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Update(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	query := `
	UPDATE events
	SET ticket_status = ?, estimated_audience = ?, ticket_price_min = ?, ticket_price_max = ?,
		hype_score = ?, sales_potential_score = ?, production_start_date = ?,
		production_deadline = ?, is_active = ?, last_scraped_at = ?
	WHERE id = ?
	`

	res, err := r.exec(ctx, query,
		string(event.TicketStatus),
		nullInt(event.EstimatedAudience),
		nullFloat(event.TicketPriceMin),
		nullFloat(event.TicketPriceMax),
		event.HypeScore,
		event.SalesPotentialScore,
		nullTime(event.ProductionStartDate),
		nullTime(event.ProductionDeadline),
		event.IsActive,
		utc(event.LastScrapedAt),
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) UpdateScores(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	query := `
	UPDATE events
	SET hype_score = ?, sales_potential_score = ?, production_start_date = ?, production_deadline = ?
	WHERE id = ?
	`

	res, err := r.exec(ctx, query,
		event.HypeScore,
		event.SalesPotentialScore,
		nullTime(event.ProductionStartDate),
		nullTime(event.ProductionDeadline),
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event scores: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) List(ctx context.Context, filter domain.EventFilter) ([]domain.Event, int, error) {
	where := []string{"e.is_active = ?"}
	args := []any{true}

	if filter.City != "" {
		where = append(where, "LOWER(v.city) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.City)+"%")
	}
	if filter.Genre != "" {
		where = append(where, "LOWER(a.genre) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.Genre)+"%")
	}
	if filter.MinHype != nil {
		where = append(where, "e.hype_score >= ?")
		args = append(args, *filter.MinHype)
	}
	if filter.MinSalesPotential != nil {
		where = append(where, "e.sales_potential_score >= ?")
		args = append(args, *filter.MinSalesPotential)
	}
	if filter.DateFrom != nil {
		where = append(where, "e.event_date >= ?")
		args = append(args, utc(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		where = append(where, "e.event_date <= ?")
		args = append(args, utc(*filter.DateTo))
	}
	if filter.Upcoming != nil {
		where = append(where, "e.event_date >= ?")
		args = append(args, utc(*filter.Upcoming))
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	countQuery := `
	SELECT COUNT(*) FROM events e
	LEFT JOIN artists a ON a.id = e.artist_id
	LEFT JOIN venues v ON v.id = e.venue_id` + clause

	var total int
	if err := r.queryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	order := "e.event_date ASC"
	switch filter.SortBy {
	case "hype_score":
		order = "e.hype_score DESC, e.event_date ASC"
	case "sales_potential_score":
		order = "e.sales_potential_score DESC, e.event_date ASC"
	}

	page, pageSize := pagination(filter.Page, filter.PageSize, 50)
	query := eventSelect + clause + ` ORDER BY ` + order + `, e.id LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	events, err := r.list(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *EventRepository) ListUpcoming(ctx context.Context, from, to time.Time) ([]domain.Event, error) {
	query := eventSelect + ` WHERE e.is_active = ? AND e.event_date >= ?`
	args := []any{true, utc(from)}
	if !to.IsZero() {
		query += ` AND e.event_date <= ?`
		args = append(args, utc(to))
	}
	query += ` ORDER BY e.event_date ASC, e.id`

	return r.list(ctx, query, args...)
}

func (r *EventRepository) UpcomingArtists(ctx context.Context, from time.Time) ([]domain.Artist, error) {
	query := `
	SELECT DISTINCT a.id, a.name, a.normalized_name, a.genre, a.popularity, a.spotify_id, a.created_at, a.updated_at
	FROM artists a
	JOIN events e ON e.artist_id = a.id
	WHERE e.is_active = ? AND e.event_date >= ?
	ORDER BY a.name
	`

	rows, err := r.query(ctx, query, true, utc(from))
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming artists: %w", err)
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

func (r *EventRepository) list(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var event domain.Event
	var (
		artistID, venueID, sourceURL, externalID, headliners sql.NullString
		ticketStatus, eventType                              string
		audience                                             sql.NullInt64
		priceMin, priceMax                                   sql.NullFloat64
		startDate, deadline                                  sql.NullTime
		artistName, artistKey, artistGenre                   sql.NullString
		artistPopularity                                     sql.NullInt64
		venueName, venueCity, venueState, venueType          sql.NullString
		venueCapacity                                        sql.NullInt64
	)

	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.EventDate,
		&artistID,
		&venueID,
		&event.SourcePlatform,
		&sourceURL,
		&externalID,
		&ticketStatus,
		&audience,
		&priceMin,
		&priceMax,
		&eventType,
		&event.IsFestival,
		&headliners,
		&event.HypeScore,
		&event.SalesPotentialScore,
		&startDate,
		&deadline,
		&event.IsActive,
		&event.FirstSeenAt,
		&event.LastScrapedAt,
		&artistName,
		&artistKey,
		&artistGenre,
		&artistPopularity,
		&venueName,
		&venueCity,
		&venueState,
		&venueCapacity,
		&venueType,
	)
	if err != nil {
		return nil, err
	}

	event.ArtistID = artistID.String
	event.VenueID = venueID.String
	event.SourceURL = sourceURL.String
	event.ExternalID = externalID.String
	event.TicketStatus = domain.TicketStatus(ticketStatus)
	event.EventType = domain.EventType(eventType)
	event.EstimatedAudience = intPtr(audience)
	event.TicketPriceMin = floatPtr(priceMin)
	event.TicketPriceMax = floatPtr(priceMax)
	event.Headliners = decodeList(headliners)
	event.ProductionStartDate = timePtr(startDate)
	event.ProductionDeadline = timePtr(deadline)

	if artistID.Valid && artistName.Valid {
		event.Artist = &domain.Artist{
			ID:             artistID.String,
			Name:           artistName.String,
			NormalizedName: artistKey.String,
			Genre:          artistGenre.String,
			Popularity:     int(artistPopularity.Int64),
		}
	}
	if venueID.Valid && venueName.Valid {
		event.Venue = &domain.Venue{
			ID:        venueID.String,
			Name:      venueName.String,
			City:      venueCity.String,
			State:     venueState.String,
			Capacity:  intPtr(venueCapacity),
			VenueType: venueType.String,
		}
	}

	return &event, nil
}

func pagination(page, pageSize, defaultSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultSize
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}
