package interfaces

import (
	"context"
	"log"
	"time"
)

type SchedulerConfig struct {
	// IngestionInterval spaces full ingestion runs. Each run is followed by a
	// recalculation pass.
	IngestionInterval time.Duration
	// RecalculationInterval refreshes time-dependent scores between runs.
	// Zero disables the standalone pass.
	RecalculationInterval time.Duration
}

// Scheduler drives periodic ingestion and recalculation. Jobs run on the
// Run goroutine and never overlap.
type Scheduler struct {
	ingestion    IngestionRunner
	recalculator Recalculator
	config       SchedulerConfig
}

func NewScheduler(ingestion IngestionRunner, recalculator Recalculator, config SchedulerConfig) *Scheduler {
	if config.IngestionInterval <= 0 {
		config.IngestionInterval = 12 * time.Hour
	}
	return &Scheduler{
		ingestion:    ingestion,
		recalculator: recalculator,
		config:       config,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("[scheduler] started - ingestion every %v, recalculation every %v",
		s.config.IngestionInterval, s.config.RecalculationInterval)

	ingest := time.NewTicker(s.config.IngestionInterval)
	defer ingest.Stop()

	var recalc <-chan time.Time
	if s.config.RecalculationInterval > 0 {
		ticker := time.NewTicker(s.config.RecalculationInterval)
		defer ticker.Stop()
		recalc = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("[scheduler] stopped")
			return
		case <-ingest.C:
			s.ingestAndRecalculate(ctx)
		case <-recalc:
			s.recalculate(ctx)
		}
	}
}

func (s *Scheduler) ingestAndRecalculate(ctx context.Context) {
	response := s.ingestion.Run(ctx, nil)
	log.Printf("[scheduler] ingestion finished: %s", response.Message)

	if ctx.Err() != nil {
		return
	}
	s.recalculate(ctx)
}

func (s *Scheduler) recalculate(ctx context.Context) {
	n, err := s.recalculator.RecalculateAll(ctx)
	if err != nil {
		log.Printf("[scheduler] recalculation failed: %v", err)
		return
	}
	log.Printf("[scheduler] recalculated %d events", n)
}
