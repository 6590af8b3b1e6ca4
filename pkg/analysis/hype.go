// Package analysis derives the hype, sales-potential and production-window
// scores of an event from its fields and its snapshot history.
package analysis

import (
	"math"
	"time"

	"github.com/yair/merchpulse/pkg/domain"
)

// SelloutSpeedScore maps how quickly an event went from available to sold out
// onto 0-30 points, measured from the first snapshot. With fewer than two
// snapshots the current status is used as a proxy.
func SelloutSpeedScore(status domain.TicketStatus, snapshots []domain.EventSnapshot) float64 {
	if len(snapshots) < 2 {
		switch status {
		case domain.TicketSoldOut:
			return 25
		case domain.TicketSellingFast:
			return 15
		}
		return 5
	}

	// Speed is only measurable when the history opens on available tickets.
	first := snapshots[0]
	if first.TicketStatus != domain.TicketAvailable {
		return 5
	}

	from := first.SnapshotAt
	for _, s := range snapshots[1:] {
		if s.TicketStatus != domain.TicketSoldOut {
			continue
		}
		days := wholeDays(s.SnapshotAt.Sub(from))
		switch {
		case days <= 1:
			return 30
		case days <= 7:
			return 25
		case days <= 14:
			return 20
		default:
			return 15
		}
	}
	return 5
}

// HypeScore sums sellout speed, venue fill rate, artist popularity, urgency
// and event type. The result is rounded to one decimal and kept in [0, 100].
func HypeScore(event *domain.Event, snapshots []domain.EventSnapshot, now time.Time) float64 {
	score := SelloutSpeedScore(event.TicketStatus, snapshots)

	if event.Venue != nil && event.Venue.Capacity != nil && *event.Venue.Capacity > 0 &&
		event.EstimatedAudience != nil && *event.EstimatedAudience > 0 {
		fill := float64(*event.EstimatedAudience) / float64(*event.Venue.Capacity)
		score += math.Min(fill*25, 25)
	} else if event.TicketStatus == domain.TicketSoldOut {
		score += 20
	}

	if event.Artist != nil && event.Artist.Popularity > 0 {
		score += float64(event.Artist.Popularity) * 0.25
	}

	daysUntil := wholeDays(event.EventDate.Sub(now))
	switch event.TicketStatus {
	case domain.TicketSoldOut:
		switch {
		case daysUntil < 30:
			score += 10
		case daysUntil < 60:
			score += 7
		default:
			score += 5
		}
	case domain.TicketSellingFast:
		score += 5
	}

	score += eventTypeBonus(event, 10, 3)

	return clamp(round1(score))
}

func eventTypeBonus(event *domain.Event, festival, tourStop float64) float64 {
	if event.IsFestival || event.EventType == domain.EventFestival {
		return festival
	}
	if event.EventType == domain.EventTourStop {
		return tourStop
	}
	return 0
}

// wholeDays floors, so 23 hours in the past counts as -1 days.
func wholeDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(v, 100))
}
