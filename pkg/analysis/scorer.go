package analysis

import (
	"time"

	"github.com/yair/merchpulse/pkg/domain"
)

// Scorer recomputes every derived field of an event. The clock is injectable
// so recalculation passes are reproducible in tests.
type Scorer struct {
	Now func() time.Time
}

func NewScorer() *Scorer {
	return &Scorer{Now: time.Now}
}

func (s *Scorer) now() time.Time {
	if s == nil || s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Apply writes hype, sales potential and the production window onto event.
func (s *Scorer) Apply(event *domain.Event, snapshots []domain.EventSnapshot) {
	now := s.now()

	hype := HypeScore(event, snapshots, now)
	potential := SalesPotential(event, hype)
	start, deadline := ProductionWindow(event.EventDate, potential, now)

	event.HypeScore = hype
	event.SalesPotentialScore = potential
	event.ProductionStartDate = &start
	event.ProductionDeadline = &deadline
}
