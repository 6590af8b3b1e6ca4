package scrapers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/normalize"
	"github.com/yair/merchpulse/pkg/ratelimit"
)

var eventbriteSearchURLs = []string{
	"https://www.eventbrite.com.br/d/brazil/shows-musicais/?page=1",
	"https://www.eventbrite.com.br/d/brazil/shows-musicais/?page=2",
	"https://www.eventbrite.com.br/d/brazil/concertos/?page=1",
	"https://www.eventbrite.com.br/d/brazil/festivais-de-musica/?page=1",
}

// EventbriteScraper reads the schema.org ItemList embedded in Eventbrite
// search pages as application/ld+json.
type EventbriteScraper struct {
	*BaseScraper
	searchURLs []string
	now        func() time.Time
}

func NewEventbriteScraper(config ScrapingConfig, limiter ratelimit.Limiter) *EventbriteScraper {
	return &EventbriteScraper{
		BaseScraper: NewBaseScraper("eventbrite", config, limiter),
		searchURLs:  eventbriteSearchURLs,
		now:         time.Now,
	}
}

func (e *EventbriteScraper) Scrape(ctx context.Context) ([]domain.ScrapedEvent, error) {
	var (
		events []domain.ScrapedEvent
		tally  pageTally
	)
	seen := make(map[string]bool)

	for _, pageURL := range e.searchURLs {
		if ctx.Err() != nil {
			return events, ctx.Err()
		}

		_, body, err := e.Fetch(ctx, pageURL, nil)
		if err != nil {
			log.Printf("[eventbrite] failed to fetch %s: %v", pageURL, err)
			tally.fail(err)
			continue
		}
		tally.ok()

		pageEvents, err := e.parsePage(body)
		if err != nil {
			log.Printf("[eventbrite] failed to parse %s: %v", pageURL, err)
			continue
		}

		for _, ev := range pageEvents {
			if ev.SourceURL == "" || seen[ev.SourceURL] {
				continue
			}
			seen[ev.SourceURL] = true
			events = append(events, ev)
		}
		log.Printf("[eventbrite] %s: %d events", pageURL, len(pageEvents))
	}

	log.Printf("[eventbrite] total: %d unique events", len(events))
	return events, tally.err()
}

type ldItemList struct {
	Type            flexString      `json:"@type"`
	ItemListElement []ldListElement `json:"itemListElement"`
}

// ldListElement is either a ListItem wrapping the event under "item" or the
// event itself.
type ldListElement struct {
	Item *ldEvent `json:"item"`
	ldEvent
}

type ldEvent struct {
	Name      string          `json:"name"`
	StartDate string          `json:"startDate"`
	URL       string          `json:"url"`
	Location  json.RawMessage `json:"location"`
	Offers    json.RawMessage `json:"offers"`
}

type ldPlace struct {
	Name    string          `json:"name"`
	Address json.RawMessage `json:"address"`
}

type ldAddress struct {
	AddressLocality string `json:"addressLocality"`
}

type ldOffer struct {
	LowPrice     flexFloat  `json:"lowPrice"`
	Availability flexString `json:"availability"`
}

func (e *EventbriteScraper) parsePage(body []byte) ([]domain.ScrapedEvent, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var events []domain.ScrapedEvent
	for _, script := range selectAll(doc, ldJSONScripts) {
		raw := strings.TrimSpace(getScriptText(script))
		if raw == "" {
			continue
		}

		var list ldItemList
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			log.Printf("[eventbrite] skipping malformed ld+json block: %v", err)
			continue
		}
		if list.Type != "ItemList" {
			continue
		}

		for _, element := range list.ItemListElement {
			item := element.ldEvent
			if element.Item != nil {
				item = *element.Item
			}
			if ev, ok := e.parseItem(item); ok {
				events = append(events, ev)
			}
		}
	}
	return events, nil
}

var ldJSONScripts = mustSelector(`script[type="application/ld+json"]`)

func getScriptText(node *html.Node) string {
	var text strings.Builder
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			text.WriteString(c.Data)
		}
	}
	return text.String()
}

func (e *EventbriteScraper) parseItem(item ldEvent) (domain.ScrapedEvent, bool) {
	name := strings.TrimSpace(item.Name)
	if name == "" || !IsMusicTitle(name) {
		return domain.ScrapedEvent{}, false
	}

	ev := domain.ScrapedEvent{
		Title:          name,
		SourcePlatform: e.Platform(),
		SourceURL:      strings.TrimSpace(item.URL),
		TicketStatus:   domain.TicketAvailable,
	}

	if date, ok := parseStartDate(item.StartDate); ok {
		if date.Before(e.now()) {
			return domain.ScrapedEvent{}, false
		}
		ev.EventDate = &date
	}

	ev.VenueName, ev.City = parseLDLocation(item.Location)
	if ev.City != "" {
		ev.State = normalize.StateForCity(ev.City)
	}

	var offer ldOffer
	if len(item.Offers) > 0 && item.Offers[0] == '{' {
		if err := json.Unmarshal(item.Offers, &offer); err == nil {
			if offer.LowPrice.val != nil && *offer.LowPrice.val > 0 {
				ev.TicketPriceMin = offer.LowPrice.val
			}
			if strings.Contains(strings.ToLower(string(offer.Availability)), "soldout") {
				ev.TicketStatus = domain.TicketSoldOut
			}
		}
	}

	ev.ArtistName = ExtractArtist(name)
	if ev.ArtistName == "" {
		ev.ArtistName = name
	}

	classifyEvent(&ev)
	return ev, true
}

func parseStartDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", raw, normalize.BRT); err == nil {
		return t, true
	}
	if len(raw) >= 10 {
		if t, err := time.ParseInLocation("2006-01-02", raw[:10], normalize.BRT); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseLDLocation accepts a Place object (address as object or string) or a
// bare venue name.
func parseLDLocation(raw json.RawMessage) (venue, city string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", ""
	}

	switch raw[0] {
	case '"':
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			return strings.TrimSpace(name), ""
		}
	case '{':
		var place ldPlace
		if err := json.Unmarshal(raw, &place); err != nil {
			return "", ""
		}
		venue = strings.TrimSpace(place.Name)

		address := bytes.TrimSpace(place.Address)
		if len(address) == 0 {
			return venue, ""
		}
		if address[0] == '{' {
			var addr ldAddress
			if err := json.Unmarshal(address, &addr); err == nil {
				city = strings.TrimSpace(addr.AddressLocality)
			}
		} else if address[0] == '"' {
			var s string
			if err := json.Unmarshal(address, &s); err == nil {
				city = strings.TrimSpace(s)
			}
		}
		return venue, city
	}
	return "", ""
}
