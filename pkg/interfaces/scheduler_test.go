package interfaces

import (
	"context"
	"testing"
	"time"

	"github.com/yair/merchpulse/pkg/domain"
)

type signalingIngestion struct {
	runs chan []string
}

func (s *signalingIngestion) Run(ctx context.Context, platforms []string) *domain.IngestionResponse {
	s.runs <- platforms
	return &domain.IngestionResponse{Status: "completed", Message: "Found 0 items, 0 new"}
}

type signalingRecalculator struct {
	calls chan struct{}
}

func (s *signalingRecalculator) RecalculateAll(ctx context.Context) (int, error) {
	s.calls <- struct{}{}
	return 0, nil
}

func TestScheduler(t *testing.T) {
	t.Run("ingestion is followed by recalculation", func(t *testing.T) {
		ingestion := &signalingIngestion{runs: make(chan []string, 10)}
		recalc := &signalingRecalculator{calls: make(chan struct{}, 10)}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			NewScheduler(ingestion, recalc, SchedulerConfig{IngestionInterval: 10 * time.Millisecond}).Run(ctx)
			close(done)
		}()

		select {
		case platforms := <-ingestion.runs:
			if platforms != nil {
				t.Errorf("expected all platforms, got %v", platforms)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("ingestion never ran")
		}
		select {
		case <-recalc.calls:
		case <-time.After(2 * time.Second):
			t.Fatal("recalculation never ran after ingestion")
		}

		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("scheduler did not stop on cancel")
		}
	})

	t.Run("standalone recalculation", func(t *testing.T) {
		ingestion := &signalingIngestion{runs: make(chan []string, 10)}
		recalc := &signalingRecalculator{calls: make(chan struct{}, 10)}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go NewScheduler(ingestion, recalc, SchedulerConfig{
			IngestionInterval:     time.Hour,
			RecalculationInterval: 10 * time.Millisecond,
		}).Run(ctx)

		select {
		case <-recalc.calls:
		case <-time.After(2 * time.Second):
			t.Fatal("recalculation never ran")
		}
		if len(ingestion.runs) != 0 {
			t.Error("expected no ingestion within the first hour")
		}
	})
}
