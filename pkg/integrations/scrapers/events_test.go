package scrapers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/normalize"
)

var testNow = time.Date(2026, 1, 1, 12, 0, 0, 0, normalize.BRT)

func testConfig() ScrapingConfig {
	return ScrapingConfig{
		UserAgent:    "merchpulse-test",
		Timeout:      5 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}
}

type countingLimiter struct {
	calls atomic.Int32
}

func (c *countingLimiter) Acquire(ctx context.Context, platform string) error {
	c.calls.Add(1)
	return nil
}

func TestBaseScraper_Fetch(t *testing.T) {
	t.Run("retries server errors", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			if r.Header.Get("Accept-Language") == "" {
				t.Error("expected Accept-Language header")
			}
			fmt.Fprint(w, "ok")
		}))
		defer server.Close()

		limiter := &countingLimiter{}
		b := NewBaseScraper("test", testConfig(), limiter)

		status, body, err := b.Fetch(context.Background(), server.URL, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if status != http.StatusOK || string(body) != "ok" {
			t.Errorf("unexpected response: %d %q", status, body)
		}
		if hits.Load() != 2 {
			t.Errorf("expected 2 requests, got %d", hits.Load())
		}
		if limiter.calls.Load() != 2 {
			t.Errorf("expected limiter to be consulted per request, got %d", limiter.calls.Load())
		}
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		b := NewBaseScraper("test", testConfig(), nil)
		status, _, err := b.Fetch(context.Background(), server.URL, nil)
		if err == nil {
			t.Fatal("expected error for 404")
		}
		if status != http.StatusNotFound || hits.Load() != 1 {
			t.Errorf("expected single 404, got status %d after %d hits", status, hits.Load())
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		b := NewBaseScraper("test", testConfig(), nil)
		if _, _, err := b.Fetch(context.Background(), server.URL, nil); err == nil {
			t.Fatal("expected error after retries")
		}
		if hits.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", hits.Load())
		}
	})
}

const eventbritePage1 = `<html><head>
<script type="application/ld+json">{"@type":"Organization","name":"Eventbrite"}</script>
<script type="application/ld+json">
{"@type":"ItemList","itemListElement":[
  {"@type":"ListItem","position":1,"item":{"name":"AC/DC Power Up Tour","startDate":"2026-03-15T20:00:00-03:00",
    "url":"https://www.eventbrite.com.br/e/acdc-1",
    "location":{"name":"Estádio do Morumbi","address":{"addressLocality":"São Paulo"}},
    "offers":{"lowPrice":"450.00","availability":"InStock"}}},
  {"@type":"ListItem","position":2,"item":{"name":"Workshop de Guitarra Rock","startDate":"2026-03-20","url":"https://www.eventbrite.com.br/e/ws"}},
  {"@type":"ListItem","position":3,"item":{"name":"Show Antigo","startDate":"2025-06-01","url":"https://www.eventbrite.com.br/e/old"}},
  {"name":"Lollapalooza Brasil 2026","startDate":"2026-03-27","url":"https://www.eventbrite.com.br/e/lolla",
    "location":"Autódromo de Interlagos",
    "offers":{"lowPrice":900,"availability":"https://schema.org/SoldOut"}}
]}
</script></head><body></body></html>`

const eventbritePage2 = `<html><head>
<script type="application/ld+json">{not json</script>
<script type="application/ld+json">
{"@type":"ItemList","itemListElement":[
  {"item":{"name":"AC/DC Power Up Tour","startDate":"2026-03-15T20:00:00-03:00","url":"https://www.eventbrite.com.br/e/acdc-1"}}
]}
</script></head><body></body></html>`

func TestEventbriteScraper_Scrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/p1":
			fmt.Fprint(w, eventbritePage1)
		case "/p2":
			fmt.Fprint(w, eventbritePage2)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	scraper := NewEventbriteScraper(testConfig(), nil)
	scraper.searchURLs = []string{server.URL + "/p1", server.URL + "/p2", server.URL + "/missing"}
	scraper.now = func() time.Time { return testNow }

	events, err := scraper.Scrape(context.Background())

	var pageErr *PageErrors
	if !errors.As(err, &pageErr) {
		t.Fatalf("expected PageErrors, got %v", err)
	}
	if pageErr.Failed != 1 || pageErr.Total != 3 || !pageErr.Partial() {
		t.Errorf("unexpected page errors: %+v", pageErr)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}

	t.Run("tour stop", func(t *testing.T) {
		ev := events[0]
		if ev.Title != "AC/DC Power Up Tour" || ev.ArtistName != "AC/DC" {
			t.Errorf("unexpected title/artist: %q / %q", ev.Title, ev.ArtistName)
		}
		if ev.VenueName != "Estádio do Morumbi" || ev.City != "São Paulo" || ev.State != "SP" {
			t.Errorf("unexpected location: %q %q %q", ev.VenueName, ev.City, ev.State)
		}
		want := time.Date(2026, 3, 15, 20, 0, 0, 0, normalize.BRT)
		if ev.EventDate == nil || !ev.EventDate.Equal(want) {
			t.Errorf("expected date %v, got %v", want, ev.EventDate)
		}
		if ev.TicketPriceMin == nil || *ev.TicketPriceMin != 450 {
			t.Errorf("expected price 450, got %v", ev.TicketPriceMin)
		}
		if ev.TicketStatus != domain.TicketAvailable || ev.EventType != domain.EventConcert {
			t.Errorf("unexpected status/type: %s %s", ev.TicketStatus, ev.EventType)
		}
		if ev.EstimatedAudience == nil || *ev.EstimatedAudience != 25000 {
			t.Errorf("expected audience 25000, got %v", ev.EstimatedAudience)
		}
		if ev.SourcePlatform != "eventbrite" {
			t.Errorf("expected eventbrite platform, got %s", ev.SourcePlatform)
		}
	})

	t.Run("bare festival element", func(t *testing.T) {
		ev := events[1]
		if ev.ArtistName != "Lollapalooza" || ev.VenueName != "Autódromo de Interlagos" || ev.City != "" {
			t.Errorf("unexpected festival fields: %+v", ev)
		}
		if !ev.IsFestival || ev.EventType != domain.EventFestival {
			t.Errorf("expected festival, got %+v", ev)
		}
		if ev.TicketStatus != domain.TicketSoldOut {
			t.Errorf("expected sold_out, got %s", ev.TicketStatus)
		}
		if ev.EstimatedAudience == nil || *ev.EstimatedAudience != 60000 {
			t.Errorf("expected audience 60000, got %v", ev.EstimatedAudience)
		}
		want := time.Date(2026, 3, 27, 0, 0, 0, 0, normalize.BRT)
		if ev.EventDate == nil || !ev.EventDate.Equal(want) {
			t.Errorf("expected date %v, got %v", want, ev.EventDate)
		}
	})
}

const symplaListing = `<html><body><div class="grid">
  <div class="sc-EventCard-abc">
    <a href="/evento/metallica-m72/123"><h3 class="EventCard-title">Metallica   M72 World Tour</h3></a>
    <time class="EventCard-date" datetime="2026-05-02T20:00:00-03:00">02 mai</time>
    <p class="EventCard-location">Estádio do Morumbi - São Paulo</p>
    <span class="EventCard-price">A partir de R$ 350,00</span>
  </div>
  <article>
    <h2>Festival de Verão Salvador</h2>
    <span class="date">15/02/2026</span>
    <div class="local">Arena Fonte Nova</div>
  </article>
  <article><p>sem titulo</p></article>
</div></body></html>`

func TestSymplaScraper_Scrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, symplaListing)
	}))
	defer server.Close()

	scraper := NewSymplaScraper(testConfig(), nil)
	scraper.listingURL = server.URL
	scraper.now = func() time.Time { return testNow }

	events, err := scraper.Scrape(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	first := events[0]
	if first.Title != "Metallica M72 World Tour" || first.ArtistName != first.Title {
		t.Errorf("unexpected title/artist: %q / %q", first.Title, first.ArtistName)
	}
	if first.SourceURL != "https://www.sympla.com.br/evento/metallica-m72/123" {
		t.Errorf("unexpected source url: %s", first.SourceURL)
	}
	if first.VenueName != "Estádio do Morumbi" || first.City != "São Paulo" || first.State != "SP" {
		t.Errorf("unexpected location: %q %q %q", first.VenueName, first.City, first.State)
	}
	if first.EventDate == nil || !first.EventDate.Equal(time.Date(2026, 5, 2, 20, 0, 0, 0, normalize.BRT)) {
		t.Errorf("unexpected date: %v", first.EventDate)
	}
	if first.TicketPriceMin == nil || *first.TicketPriceMin != 350 {
		t.Errorf("expected price 350, got %v", first.TicketPriceMin)
	}
	if first.EstimatedAudience == nil || *first.EstimatedAudience != 8000 {
		t.Errorf("expected audience 8000, got %v", first.EstimatedAudience)
	}

	second := events[1]
	if second.SourceURL != "" || second.VenueName != "Arena Fonte Nova" || second.City != "" {
		t.Errorf("unexpected second event: %+v", second)
	}
	if !second.IsFestival || second.EventType != domain.EventFestival {
		t.Errorf("expected festival, got %+v", second)
	}
	if second.EventDate == nil || !second.EventDate.Equal(time.Date(2026, 2, 15, 0, 0, 0, 0, normalize.BRT)) {
		t.Errorf("unexpected date: %v", second.EventDate)
	}
}

func TestSymplaScraper_FetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	scraper := NewSymplaScraper(testConfig(), nil)
	scraper.listingURL = server.URL

	events, err := scraper.Scrape(context.Background())
	var pageErr *PageErrors
	if !errors.As(err, &pageErr) || pageErr.Partial() {
		t.Fatalf("expected total page failure, got %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

const eventimListing = `<html><body><div class="results">
  <div class="eventListItem" data-event-id="EV-1">
    <a href="/artist/iron-maiden/"><span class="eventListItem-title">Iron Maiden - Run For Your Lives</span></a>
    <span class="eventListItem-date">15/10/2026</span>
    <span class="eventListItem-venue">Allianz Parque - São Paulo</span>
    <span class="eventListItem-price">R$ 1.250,50</span>
    <span class="soldout">Esgotado</span>
  </div>
  <div class="event-card">
    <h3>Rock in Rio 2026</h3>
    <time datetime="2026-09-12">12 set</time>
    <span class="event-venue">Cidade do Rock</span>
    <span class="event-city">Rio de Janeiro</span>
    <a href="https://www.eventim.com.br/event/rock-in-rio-2026/">Comprar</a>
  </div>
</div></body></html>`

func TestEventimScraper_Scrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, eventimListing)
	}))
	defer server.Close()

	scraper := NewEventimScraper(testConfig(), nil)
	scraper.listingURL = server.URL
	scraper.now = func() time.Time { return testNow }

	events, err := scraper.Scrape(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	maiden := events[0]
	if maiden.ExternalID != "EV-1" || maiden.TicketStatus != domain.TicketSoldOut {
		t.Errorf("unexpected id/status: %q %s", maiden.ExternalID, maiden.TicketStatus)
	}
	if maiden.VenueName != "Allianz Parque" || maiden.City != "São Paulo" || maiden.State != "SP" {
		t.Errorf("unexpected location: %q %q %q", maiden.VenueName, maiden.City, maiden.State)
	}
	if maiden.SourceURL != "https://www.eventim.com.br/artist/iron-maiden/" {
		t.Errorf("unexpected source url: %s", maiden.SourceURL)
	}
	if maiden.TicketPriceMin == nil || *maiden.TicketPriceMin != 1250.5 {
		t.Errorf("expected price 1250.5, got %v", maiden.TicketPriceMin)
	}
	if maiden.EventDate == nil || !maiden.EventDate.Equal(time.Date(2026, 10, 15, 0, 0, 0, 0, normalize.BRT)) {
		t.Errorf("unexpected date: %v", maiden.EventDate)
	}

	rir := events[1]
	if rir.Title != "Rock in Rio 2026" || rir.City != "Rio de Janeiro" || rir.State != "RJ" || rir.VenueName != "Cidade do Rock" {
		t.Errorf("unexpected festival: %+v", rir)
	}
	if !rir.IsFestival || rir.EstimatedAudience == nil || *rir.EstimatedAudience != 60000 {
		t.Errorf("expected festival with 60000 audience, got %+v", rir)
	}
	if rir.SourceURL != "https://www.eventim.com.br/event/rock-in-rio-2026/" || rir.ExternalID != "" {
		t.Errorf("unexpected link/id: %s %q", rir.SourceURL, rir.ExternalID)
	}
}
