package interfaces

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yair/merchpulse/pkg/analysis"
	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/metrics"
)

// RecalculationService re-scores every active future event. Scores drift
// with the clock (urgency, production window) even when nothing is scraped.
type RecalculationService struct {
	store   domain.Store
	scorer  *analysis.Scorer
	metrics *metrics.Metrics
	workers int
}

func NewRecalculationService(store domain.Store, scorer *analysis.Scorer, m *metrics.Metrics, workers int) *RecalculationService {
	if scorer == nil {
		scorer = analysis.NewScorer()
	}
	if workers <= 0 {
		workers = 4
	}
	return &RecalculationService{
		store:   store,
		scorer:  scorer,
		metrics: m,
		workers: workers,
	}
}

// RecalculateAll returns how many events were re-scored. A failure on one
// event is logged and skipped.
func (s *RecalculationService) RecalculateAll(ctx context.Context) (int, error) {
	started := time.Now()
	now := started
	if s.scorer.Now != nil {
		now = s.scorer.Now()
	}

	events, err := s.store.Events().ListUpcoming(ctx, now.UTC(), time.Time{})
	if err != nil {
		return 0, fmt.Errorf("failed to load upcoming events: %w", err)
	}

	jobs := make(chan *domain.Event)
	var done atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range jobs {
				if err := s.recalculate(ctx, event); err != nil {
					log.Printf("[recalc] event %s: %v", event.ID, err)
					continue
				}
				done.Add(1)
			}
		}()
	}

feed:
	for i := range events {
		select {
		case jobs <- &events[i]:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	count := int(done.Load())
	s.metrics.Recalculated(count)
	log.Printf("[recalc] re-scored %d of %d events in %s", count, len(events), time.Since(started).Round(time.Millisecond))

	if err := ctx.Err(); err != nil {
		return count, err
	}
	return count, nil
}

// recalculate re-reads the event inside a transaction so scores always come
// from the stored ticket state, then writes only the derived fields. A stale
// copy from the initial listing never overwrites a concurrent ingestion.
func (s *RecalculationService) recalculate(ctx context.Context, listed *domain.Event) error {
	return s.store.WithTx(ctx, func(repos domain.Repositories) error {
		event, err := repos.Events().GetByID(ctx, listed.ID)
		if err != nil {
			return fmt.Errorf("failed to reload event: %w", err)
		}
		snapshots, err := repos.Snapshots().ListByEvent(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("failed to load snapshots: %w", err)
		}
		s.scorer.Apply(event, snapshots)
		return repos.Events().UpdateScores(ctx, event)
	})
}
