package scrapers

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/normalize"
	"github.com/yair/merchpulse/pkg/ratelimit"
)

var (
	symplaCards    = mustSelector(`[class*=EventCard], [class*=event-card], [data-testid*=event], .sympla-card, article`)
	symplaTitle    = mustSelector(`[class*=title], h2, h3, [class*=name]`)
	symplaDate     = mustSelector(`[class*=date], time, [class*=when]`)
	symplaLocation = mustSelector(`[class*=location], [class*=local], [class*=venue], [class*=address]`)
	symplaPrice    = mustSelector(`[class*=price], [class*=valor]`)
	anchorWithHref = mustSelector(`a[href]`)
)

type SymplaScraper struct {
	*BaseScraper
	listingURL string
	siteURL    string
	now        func() time.Time
}

func NewSymplaScraper(config ScrapingConfig, limiter ratelimit.Limiter) *SymplaScraper {
	return &SymplaScraper{
		BaseScraper: NewBaseScraper("sympla", config, limiter),
		listingURL:  "https://www.sympla.com.br/eventos/musica",
		siteURL:     "https://www.sympla.com.br",
		now:         time.Now,
	}
}

func (s *SymplaScraper) Scrape(ctx context.Context) ([]domain.ScrapedEvent, error) {
	_, body, err := s.Fetch(ctx, s.listingURL, nil)
	if err != nil {
		log.Printf("[sympla] failed to fetch listing: %v", err)
		return nil, &PageErrors{Failed: 1, Total: 1, Last: err}
	}

	events, err := s.parseListing(body)
	if err != nil {
		return nil, err
	}
	log.Printf("[sympla] found %d events", len(events))
	return events, nil
}

func (s *SymplaScraper) parseListing(body []byte) ([]domain.ScrapedEvent, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var events []domain.ScrapedEvent
	seen := make(map[string]bool)
	for _, card := range outermost(selectAll(doc, symplaCards)) {
		ev, ok := s.parseCard(card)
		if !ok {
			continue
		}
		if ev.SourceURL != "" {
			if seen[ev.SourceURL] {
				continue
			}
			seen[ev.SourceURL] = true
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *SymplaScraper) parseCard(card *html.Node) (domain.ScrapedEvent, bool) {
	title := textOf(card, symplaTitle)
	if title == "" {
		return domain.ScrapedEvent{}, false
	}

	ev := domain.ScrapedEvent{
		Title:          title,
		ArtistName:     title,
		SourcePlatform: s.Platform(),
	}

	if date, ok := cardDate(card, symplaDate, s.now()); ok {
		ev.EventDate = &date
	}

	if loc := textOf(card, symplaLocation); loc != "" {
		ev.VenueName, ev.City = splitVenueCity(loc)
		ev.State = normalize.StateForCity(ev.City)
	}

	ev.SourceURL = cardLink(card, s.siteURL)

	if price := textOf(card, symplaPrice); price != "" {
		ev.TicketPriceMin = normalize.ParsePrice(price)
	}

	classifyEvent(&ev)
	return ev, true
}

// cardDate reads the datetime attribute of the first date node, falling back
// to its text.
func cardDate(card *html.Node, sel cascadia.SelectorGroup, now time.Time) (time.Time, bool) {
	node := selectFirst(card, sel)
	if node == nil {
		return time.Time{}, false
	}
	text := getAttribute(node, "datetime")
	if strings.TrimSpace(text) == "" {
		text = normalize.CleanText(getTextContent(node))
	}
	return normalize.ParseDate(text, now)
}

// cardLink resolves the first link of a card. Only site-relative ("/...") and
// absolute http(s) links are accepted.
func cardLink(card *html.Node, siteURL string) string {
	node := selectFirst(card, anchorWithHref)
	if node == nil {
		return ""
	}
	href := strings.TrimSpace(getAttribute(node, "href"))
	switch {
	case strings.HasPrefix(href, "/"):
		return ResolveURL(siteURL, href)
	case strings.HasPrefix(href, "http"):
		return href
	}
	return ""
}
