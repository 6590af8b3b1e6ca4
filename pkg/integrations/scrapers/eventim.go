package scrapers

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/normalize"
	"github.com/yair/merchpulse/pkg/ratelimit"
)

var (
	eventimCards   = mustSelector(`.eventListItem, .event-card, [data-event-id]`)
	eventimTitle   = mustSelector(`.eventListItem-title, .event-title, h3, h2`)
	eventimDate    = mustSelector(`.eventListItem-date, .event-date, time, .date`)
	eventimVenue   = mustSelector(`.eventListItem-venue, .event-venue, .venue, .location`)
	eventimCity    = mustSelector(`.eventListItem-city, .event-city, .city`)
	eventimSoldOut = mustSelector(`.soldout, .sold-out, .esgotado`)
	eventimPrice   = mustSelector(`.price, .eventListItem-price`)
)

type EventimScraper struct {
	*BaseScraper
	listingURL string
	siteURL    string
	now        func() time.Time
}

func NewEventimScraper(config ScrapingConfig, limiter ratelimit.Limiter) *EventimScraper {
	return &EventimScraper{
		BaseScraper: NewBaseScraper("eventim", config, limiter),
		listingURL:  "https://www.eventim.com.br/city/brazil/list",
		siteURL:     "https://www.eventim.com.br",
		now:         time.Now,
	}
}

func (e *EventimScraper) Scrape(ctx context.Context) ([]domain.ScrapedEvent, error) {
	_, body, err := e.Fetch(ctx, e.listingURL, nil)
	if err != nil {
		log.Printf("[eventim] failed to fetch listing: %v", err)
		return nil, &PageErrors{Failed: 1, Total: 1, Last: err}
	}

	events, err := e.parseListing(body)
	if err != nil {
		return nil, err
	}
	log.Printf("[eventim] found %d events", len(events))
	return events, nil
}

func (e *EventimScraper) parseListing(body []byte) ([]domain.ScrapedEvent, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var events []domain.ScrapedEvent
	for _, card := range outermost(selectAll(doc, eventimCards)) {
		if ev, ok := e.parseCard(card); ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

func (e *EventimScraper) parseCard(card *html.Node) (domain.ScrapedEvent, bool) {
	title := textOf(card, eventimTitle)
	if title == "" {
		return domain.ScrapedEvent{}, false
	}

	ev := domain.ScrapedEvent{
		Title:          title,
		ArtistName:     title,
		SourcePlatform: e.Platform(),
		ExternalID:     strings.TrimSpace(getAttribute(card, "data-event-id")),
		TicketStatus:   domain.TicketAvailable,
	}

	if date, ok := cardDate(card, eventimDate, e.now()); ok {
		ev.EventDate = &date
	}

	ev.VenueName = textOf(card, eventimVenue)
	ev.City = textOf(card, eventimCity)
	if ev.City == "" && strings.Contains(ev.VenueName, " - ") {
		ev.VenueName, ev.City = splitVenueCity(ev.VenueName)
	}
	ev.State = normalize.StateForCity(ev.City)

	ev.SourceURL = cardLink(card, e.siteURL)

	if selectFirst(card, eventimSoldOut) != nil {
		ev.TicketStatus = domain.TicketSoldOut
	}

	if price := textOf(card, eventimPrice); price != "" {
		ev.TicketPriceMin = normalize.ParsePrice(price)
	}

	classifyEvent(&ev)
	return ev, true
}
