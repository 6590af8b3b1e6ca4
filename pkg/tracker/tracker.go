// Package tracker keeps the append-only ticket-status history of events.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yair/merchpulse/pkg/domain"
)

// Observation is the ticket-market state seen on one scrape. An empty
// TicketStatus means the source gave no status signal.
type Observation struct {
	TicketStatus      domain.TicketStatus
	EstimatedAudience *int
	TicketPriceMin    *float64
	TicketPriceMax    *float64
	At                time.Time
}

// ObservationOf mirrors the event's current fields.
func ObservationOf(event *domain.Event, at time.Time) Observation {
	return Observation{
		TicketStatus:      event.TicketStatus,
		EstimatedAudience: event.EstimatedAudience,
		TicketPriceMin:    event.TicketPriceMin,
		TicketPriceMax:    event.TicketPriceMax,
		At:                at,
	}
}

type Tracker struct {
	snapshots domain.SnapshotRepository
}

func New(snapshots domain.SnapshotRepository) *Tracker {
	return &Tracker{snapshots: snapshots}
}

// RecordTransition appends a snapshot for the event's first observation, and
// afterwards only when the observed ticket status differs from the latest
// snapshot's. It reports whether a snapshot was appended.
func (t *Tracker) RecordTransition(ctx context.Context, event *domain.Event, obs Observation) (bool, error) {
	if event == nil || event.ID == "" {
		return false, domain.ValidationError{Field: "event_id", Message: "is required"}
	}

	latest, err := t.snapshots.Latest(ctx, event.ID)
	switch {
	case errors.Is(err, domain.ErrSnapshotNotFound):
		if obs.TicketStatus == "" {
			obs.TicketStatus = event.TicketStatus
		}
	case err != nil:
		return false, fmt.Errorf("failed to read latest snapshot: %w", err)
	default:
		if obs.TicketStatus == "" || obs.TicketStatus == latest.TicketStatus {
			return false, nil
		}
	}

	snapshot := &domain.EventSnapshot{
		EventID:           event.ID,
		TicketStatus:      obs.TicketStatus,
		EstimatedAudience: obs.EstimatedAudience,
		TicketPriceMin:    obs.TicketPriceMin,
		TicketPriceMax:    obs.TicketPriceMax,
		SnapshotAt:        obs.At,
	}
	if err := t.snapshots.Append(ctx, snapshot); err != nil {
		return false, fmt.Errorf("failed to append snapshot: %w", err)
	}

	if latest != nil {
		log.Printf("[tracker] event %s: %s -> %s", event.ID, latest.TicketStatus, obs.TicketStatus)
	}
	return true, nil
}

// History returns the event's snapshots oldest first.
func (t *Tracker) History(ctx context.Context, eventID string) ([]domain.EventSnapshot, error) {
	snapshots, err := t.snapshots.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot history: %w", err)
	}
	return snapshots, nil
}
