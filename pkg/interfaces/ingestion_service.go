package interfaces

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yair/merchpulse/pkg/analysis"
	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/integrations/scrapers"
	"github.com/yair/merchpulse/pkg/metrics"
	"github.com/yair/merchpulse/pkg/resolver"
	"github.com/yair/merchpulse/pkg/tracker"
)

const (
	kindEvents      = "events"
	kindMarketplace = "marketplace"

	// RunUnknown reports a requested platform with no registered adapter.
	RunUnknown domain.RunStatus = "unknown"
)

// IngestionService runs source adapters and reconciles what they return into
// the store. Every platform runs in its own goroutine and its own
// transaction; one platform failing never affects another.
type IngestionService struct {
	store         domain.Store
	registry      *scrapers.Registry
	validator     *scrapers.RecordValidator
	scorer        *analysis.Scorer
	metrics       *metrics.Metrics
	maxConcurrent int
}

func NewIngestionService(store domain.Store, registry *scrapers.Registry, scorer *analysis.Scorer, m *metrics.Metrics, maxConcurrent int) *IngestionService {
	if scorer == nil {
		scorer = analysis.NewScorer()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &IngestionService{
		store:         store,
		registry:      registry,
		validator:     scrapers.NewRecordValidator(),
		scorer:        scorer,
		metrics:       m,
		maxConcurrent: maxConcurrent,
	}
}

// Run ingests the named platforms, or every registered one when platforms is
// empty. Results come back in request order.
func (s *IngestionService) Run(ctx context.Context, platforms []string) *domain.IngestionResponse {
	if len(platforms) == 0 {
		platforms = s.registry.Platforms()
	}

	results := make([]domain.RunResult, len(platforms))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.maxConcurrent)

	for i, platform := range platforms {
		wg.Add(1)
		go func(i int, platform string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[ingest] platform %s panicked: %v", platform, r)
					results[i] = domain.RunResult{Platform: platform, Status: domain.RunFailed, Error: fmt.Sprint(r)}
				}
			}()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[i] = s.runPlatform(ctx, platform)
		}(i, platform)
	}

	wg.Wait()

	found, created := 0, 0
	for _, result := range results {
		found += result.Found
		created += result.New
	}

	return &domain.IngestionResponse{
		Status:  "completed",
		Message: fmt.Sprintf("Found %d items, %d new", found, created),
		Details: results,
	}
}

func (s *IngestionService) runPlatform(ctx context.Context, platform string) domain.RunResult {
	if source, ok := s.registry.EventSource(platform); ok {
		return s.runEvents(ctx, source)
	}
	if source, ok := s.registry.ProductSource(platform); ok {
		return s.RunProducts(ctx, source, nil, platform+"_marketplace")
	}
	log.Printf("[ingest] unknown platform %q", platform)
	return domain.RunResult{Platform: platform, Status: RunUnknown, Error: domain.ErrUnknownPlatform.Error()}
}

// run carries the bookkeeping shared by event and product runs.
type run struct {
	result    domain.RunResult
	logEntry  domain.ScrapingLog
	started   time.Time
	scrapeErr error
}

func newRun(platform, logPlatform, kind string) *run {
	now := time.Now().UTC()
	return &run{
		result:   domain.RunResult{Platform: platform, Kind: kind, Status: domain.RunSuccess},
		logEntry: domain.ScrapingLog{Platform: logPlatform, StartedAt: now},
		started:  now,
	}
}

// scraped classifies the adapter's error. It reports false when nothing was
// retrieved and the run cannot continue.
func (r *run) scraped(found int, err error) bool {
	r.result.Found = found
	r.scrapeErr = err
	if err == nil {
		return true
	}

	var pageErr *scrapers.PageErrors
	if errors.As(err, &pageErr) && pageErr.Partial() {
		r.result.Status = domain.RunPartial
		return true
	}
	if found > 0 {
		r.result.Status = domain.RunPartial
		return true
	}
	r.result.Status = domain.RunFailed
	r.result.Error = err.Error()
	return false
}

func (r *run) persisted(err error) {
	if err != nil {
		r.result.Status = domain.RunFailed
		r.result.Error = err.Error()
		r.result.New, r.result.Updated = 0, 0
		return
	}
	if r.result.Dropped > 0 && r.result.Status == domain.RunSuccess {
		r.result.Status = domain.RunPartial
	}
	if r.result.Error == "" && r.scrapeErr != nil {
		r.result.Error = r.scrapeErr.Error()
	}
}

// finish writes the audit log outside the run's transaction and records
// metrics. The log is written even when the caller's context is done.
func (s *IngestionService) finish(ctx context.Context, r *run) domain.RunResult {
	completed := time.Now().UTC()
	r.logEntry.Status = r.result.Status
	r.logEntry.ItemsFound = r.result.Found
	r.logEntry.ItemsNew = r.result.New
	r.logEntry.ItemsUpdated = r.result.Updated
	r.logEntry.ErrorMessage = r.result.Error
	r.logEntry.DurationSeconds = completed.Sub(r.started).Seconds()
	r.logEntry.CompletedAt = &completed

	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.store.ScrapingLogs().Create(logCtx, &r.logEntry); err != nil {
		log.Printf("[ingest] failed to write scraping log for %s: %v", r.logEntry.Platform, err)
	}

	var pageErr *scrapers.PageErrors
	if errors.As(r.scrapeErr, &pageErr) {
		s.metrics.FetchFailures(r.result.Platform, pageErr.Failed)
	}
	s.metrics.ObserveRun(r.logEntry.Platform, string(r.result.Status), completed.Sub(r.started), r.result.New, r.result.Updated, r.result.Dropped)

	log.Printf("[ingest] %s finished %s: found %d, new %d, updated %d, dropped %d",
		r.logEntry.Platform, r.result.Status, r.result.Found, r.result.New, r.result.Updated, r.result.Dropped)
	return r.result
}

// recoverRun turns a panic anywhere in a platform run into a failed result and
// still writes the run's log. It must be deferred directly by the run method.
func (s *IngestionService) recoverRun(ctx context.Context, r *run, result *domain.RunResult) {
	p := recover()
	if p == nil {
		return
	}
	log.Printf("[ingest] platform %s panicked: %v", r.result.Platform, p)
	r.result.Status = domain.RunFailed
	r.result.Error = fmt.Sprintf("panic: %v", p)
	r.result.New, r.result.Updated = 0, 0
	*result = s.finish(ctx, r)
}

func (s *IngestionService) runEvents(ctx context.Context, source scrapers.EventSource) (result domain.RunResult) {
	r := newRun(source.Platform(), source.Platform(), kindEvents)
	defer s.recoverRun(ctx, r, &result)

	records, err := source.Scrape(ctx)
	if !r.scraped(len(records), err) {
		return s.finish(ctx, r)
	}

	err = s.store.WithTx(ctx, func(repos domain.Repositories) error {
		return s.reconcileEvents(ctx, repos, records, &r.result)
	})
	r.persisted(err)
	return s.finish(ctx, r)
}

func (s *IngestionService) reconcileEvents(ctx context.Context, repos domain.Repositories, records []domain.ScrapedEvent, result *domain.RunResult) error {
	names := resolver.New(repos)
	history := tracker.New(repos.Snapshots())
	now := time.Now().UTC()

	for i := range records {
		record := &records[i]
		if err := s.validator.Validate(record); err != nil {
			log.Printf("[ingest] dropping %s record %q: %v", record.SourcePlatform, record.Title, err)
			result.Dropped++
			continue
		}
		// Source URL is the reconciliation key; without it a re-scrape would
		// duplicate the event.
		if record.EventDate == nil || record.SourceURL == "" {
			result.Dropped++
			continue
		}

		existing, err := repos.Events().GetBySourceURL(ctx, record.SourceURL)
		switch {
		case err == nil:
			if err := s.refreshEvent(ctx, repos, history, existing, record, now); err != nil {
				return err
			}
			result.Updated++
		case errors.Is(err, domain.ErrEventNotFound):
			created, err := s.createEvent(ctx, repos, names, history, record, now)
			if err != nil {
				return err
			}
			if created {
				result.New++
			} else {
				result.Updated++
			}
		default:
			return fmt.Errorf("failed to look up event %s: %w", record.SourceURL, err)
		}
	}
	return nil
}

// refreshEvent applies a re-observation: only fields the source actually
// reported overwrite stored values.
func (s *IngestionService) refreshEvent(ctx context.Context, repos domain.Repositories, history *tracker.Tracker, event *domain.Event, record *domain.ScrapedEvent, now time.Time) error {
	if record.TicketStatus != "" {
		event.TicketStatus = record.TicketStatus
	}
	if record.EstimatedAudience != nil {
		event.EstimatedAudience = record.EstimatedAudience
	}
	if record.TicketPriceMin != nil {
		event.TicketPriceMin = record.TicketPriceMin
	}
	if record.TicketPriceMax != nil {
		event.TicketPriceMax = record.TicketPriceMax
	}
	event.LastScrapedAt = now

	if _, err := history.RecordTransition(ctx, event, tracker.Observation{
		TicketStatus:      record.TicketStatus,
		EstimatedAudience: event.EstimatedAudience,
		TicketPriceMin:    event.TicketPriceMin,
		TicketPriceMax:    event.TicketPriceMax,
		At:                now,
	}); err != nil {
		return err
	}
	return s.rescore(ctx, repos, history, event)
}

// createEvent inserts a first-seen event. When another run inserted the same
// source URL first, the record is applied to that row instead and created is false.
func (s *IngestionService) createEvent(ctx context.Context, repos domain.Repositories, names *resolver.Resolver, history *tracker.Tracker, record *domain.ScrapedEvent, now time.Time) (created bool, err error) {
	artistName := record.ArtistName
	if artistName == "" {
		artistName = record.Title
	}
	artist, err := names.ResolveArtist(ctx, artistName, record.Title)
	if err != nil {
		return false, err
	}
	venue, err := names.ResolveVenue(ctx, record.VenueName, record.City, record.State)
	if err != nil {
		return false, err
	}

	event := &domain.Event{
		Title:             record.Title,
		EventDate:         *record.EventDate,
		SourcePlatform:    record.SourcePlatform,
		SourceURL:         record.SourceURL,
		ExternalID:        record.ExternalID,
		TicketStatus:      record.TicketStatus,
		EstimatedAudience: record.EstimatedAudience,
		TicketPriceMin:    record.TicketPriceMin,
		TicketPriceMax:    record.TicketPriceMax,
		EventType:         record.EventType,
		IsFestival:        record.IsFestival,
		Headliners:        record.Headliners,
		FirstSeenAt:       now,
		LastScrapedAt:     now,
	}
	if artist != nil {
		event.ArtistID = artist.ID
		event.Artist = artist
	}
	if venue != nil {
		event.VenueID = venue.ID
		event.Venue = venue
	}

	err = repos.Events().Create(ctx, event)
	if errors.Is(err, domain.ErrDuplicateEvent) {
		existing, err := repos.Events().GetBySourceURL(ctx, record.SourceURL)
		if err != nil {
			return false, fmt.Errorf("failed to read winning event %s: %w", record.SourceURL, err)
		}
		return false, s.refreshEvent(ctx, repos, history, existing, record, now)
	}
	if err != nil {
		return false, fmt.Errorf("failed to create event %s: %w", record.SourceURL, err)
	}
	if _, err := history.RecordTransition(ctx, event, tracker.ObservationOf(event, now)); err != nil {
		return false, err
	}
	return true, s.rescore(ctx, repos, history, event)
}

func (s *IngestionService) rescore(ctx context.Context, repos domain.Repositories, history *tracker.Tracker, event *domain.Event) error {
	snapshots, err := history.History(ctx, event.ID)
	if err != nil {
		return err
	}
	s.scorer.Apply(event, snapshots)
	if err := repos.Events().Update(ctx, event); err != nil {
		return fmt.Errorf("failed to store scores for event %s: %w", event.ID, err)
	}
	return nil
}

// RunProducts ingests one marketplace source. With nil terms the adapter's
// default search terms are used. logPlatform names the audit log entry.
func (s *IngestionService) RunProducts(ctx context.Context, source scrapers.ProductSource, terms []domain.SearchTerm, logPlatform string) (result domain.RunResult) {
	r := newRun(source.Platform(), logPlatform, kindMarketplace)
	defer s.recoverRun(ctx, r, &result)

	var products []domain.ScrapedProduct
	var err error
	if terms == nil {
		products, err = source.Scrape(ctx)
	} else {
		products, err = source.ScrapeTerms(ctx, terms)
	}
	if !r.scraped(len(products), err) {
		return s.finish(ctx, r)
	}

	err = s.store.WithTx(ctx, func(repos domain.Repositories) error {
		return s.reconcileProducts(ctx, repos, products, &r.result)
	})
	r.persisted(err)
	return s.finish(ctx, r)
}

func (s *IngestionService) reconcileProducts(ctx context.Context, repos domain.Repositories, products []domain.ScrapedProduct, result *domain.RunResult) error {
	for i := range products {
		scraped := &products[i]
		if err := s.validator.Validate(scraped); err != nil {
			log.Printf("[ingest] dropping %s product %q: %v", scraped.Platform, scraped.Title, err)
			result.Dropped++
			continue
		}

		existing, err := s.findProduct(ctx, repos.Products(), scraped)
		switch {
		case err == nil:
			mergeProductMetrics(existing, scraped)
			if err := repos.Products().UpdateMetrics(ctx, existing); err != nil {
				return fmt.Errorf("failed to update product %s: %w", existing.ID, err)
			}
			result.Updated++
		case errors.Is(err, domain.ErrProductNotFound):
			product := productFromScraped(scraped)
			err := repos.Products().Create(ctx, product)
			if errors.Is(err, domain.ErrDuplicateProduct) {
				// Lost a create race; the winner's row takes this observation.
				winner, err := s.findProduct(ctx, repos.Products(), scraped)
				if err != nil {
					return fmt.Errorf("failed to read winning product %s: %w", scraped.ProductURL, err)
				}
				mergeProductMetrics(winner, scraped)
				if err := repos.Products().UpdateMetrics(ctx, winner); err != nil {
					return fmt.Errorf("failed to update product %s: %w", winner.ID, err)
				}
				result.Updated++
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to create product %s: %w", scraped.ProductURL, err)
			}
			result.New++
		default:
			return err
		}
	}
	return nil
}

// findProduct matches on (external id, platform) first, then on URL.
func (s *IngestionService) findProduct(ctx context.Context, products domain.ProductRepository, scraped *domain.ScrapedProduct) (*domain.MarketplaceProduct, error) {
	existing, err := products.GetByExternalID(ctx, scraped.ExternalID, scraped.Platform)
	if err == nil || !errors.Is(err, domain.ErrProductNotFound) {
		return existing, err
	}
	return products.GetByURL(ctx, scraped.ProductURL)
}

// mergeProductMetrics overwrites stored metrics only with positive signals.
func mergeProductMetrics(existing *domain.MarketplaceProduct, scraped *domain.ScrapedProduct) {
	if scraped.Price > 0 {
		existing.Price = scraped.Price
	}
	if scraped.OriginalPrice != nil {
		existing.OriginalPrice = scraped.OriginalPrice
	}
	if scraped.SoldCount > 0 {
		existing.SoldCount = scraped.SoldCount
	}
	if scraped.Rating != nil && *scraped.Rating > 0 {
		existing.Rating = scraped.Rating
	}
	if scraped.ReviewCount > 0 {
		existing.ReviewCount = scraped.ReviewCount
	}
	if scraped.ImageURL != "" {
		existing.ImageURL = scraped.ImageURL
	}
}

func productFromScraped(p *domain.ScrapedProduct) *domain.MarketplaceProduct {
	return &domain.MarketplaceProduct{
		Title:          p.Title,
		ProductURL:     p.ProductURL,
		ExternalID:     p.ExternalID,
		Platform:       p.Platform,
		Price:          p.Price,
		OriginalPrice:  p.OriginalPrice,
		SoldCount:      p.SoldCount,
		Rating:         p.Rating,
		ReviewCount:    p.ReviewCount,
		SellerName:     p.SellerName,
		SellerLocation: p.SellerLocation,
		Category:       p.Category,
		RelatedArtist:  p.RelatedArtist,
		RelatedEvent:   p.RelatedEvent,
		SearchTerm:     p.SearchTerm,
		ImageURL:       p.ImageURL,
	}
}
