// Package scrapers holds the source adapters that turn ticketing listings and
// marketplace searches into normalized records. Adapters never persist
// anything; a failed page is logged and contributes zero records.
package scrapers

import (
	"context"
	"sort"

	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/ratelimit"
)

type EventSource interface {
	Platform() string
	Scrape(ctx context.Context) ([]domain.ScrapedEvent, error)
}

type ProductSource interface {
	Platform() string
	Scrape(ctx context.Context) ([]domain.ScrapedProduct, error)
	ScrapeTerms(ctx context.Context, terms []domain.SearchTerm) ([]domain.ScrapedProduct, error)
}

type Registry struct {
	events   map[string]EventSource
	products map[string]ProductSource
}

func NewRegistry() *Registry {
	return &Registry{
		events:   make(map[string]EventSource),
		products: make(map[string]ProductSource),
	}
}

// NewDefaultRegistry registers every built-in adapter sharing one limiter.
func NewDefaultRegistry(config ScrapingConfig, shopee ShopeeConfig, limiter ratelimit.Limiter) *Registry {
	r := NewRegistry()
	r.RegisterEvents(NewEventbriteScraper(config, limiter))
	r.RegisterEvents(NewSymplaScraper(config, limiter))
	r.RegisterEvents(NewEventimScraper(config, limiter))
	r.RegisterProducts(NewShopeeScraper(config, shopee, limiter))
	return r
}

func (r *Registry) RegisterEvents(source EventSource) {
	r.events[source.Platform()] = source
}

func (r *Registry) RegisterProducts(source ProductSource) {
	r.products[source.Platform()] = source
}

func (r *Registry) EventSource(platform string) (EventSource, bool) {
	source, exists := r.events[platform]
	return source, exists
}

func (r *Registry) ProductSource(platform string) (ProductSource, bool) {
	source, exists := r.products[platform]
	return source, exists
}

// Platforms lists every registered platform name, sorted.
func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.events)+len(r.products))
	for name := range r.events {
		names = append(names, name)
	}
	for name := range r.products {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Filter keeps only the named platforms. An empty list keeps everything.
func (r *Registry) Filter(platforms []string) *Registry {
	if len(platforms) == 0 {
		return r
	}
	out := NewRegistry()
	for _, name := range platforms {
		if source, ok := r.events[name]; ok {
			out.events[name] = source
		}
		if source, ok := r.products[name]; ok {
			out.products[name] = source
		}
	}
	return out
}
