package analysis

import (
	"testing"
	"time"

	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/normalize"
)

var t0 = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func snap(status domain.TicketStatus, at time.Time) domain.EventSnapshot {
	return domain.EventSnapshot{TicketStatus: status, SnapshotAt: at}
}

func TestClassifyGenre(t *testing.T) {
	tests := []struct {
		title  string
		artist string
		want   string
	}{
		{"AC/DC Power Up Tour", "AC/DC", "rock"},
		{"Metallica M72", "Metallica", "metal"},
		{"Festival de Verão", "", "pop"},
		{"Alok no Allianz", "Alok", "eletronica"},
		{"Stray Kids World Tour", "Stray Kids", "k-pop"},
		{"Gusttavo Lima Embaixador", "Gusttavo Lima", "sertanejo"},
		// punk scores "punk" and "pop punk", pop only scores "pop"
		{"Noite Pop Punk", "", "punk"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := ClassifyGenre(tt.title, tt.artist); got != tt.want {
				t.Errorf("ClassifyGenre(%q, %q) = %q, want %q", tt.title, tt.artist, got, tt.want)
			}
		})
	}
}

func TestClassifyGenre_TieGoesToFirstGenre(t *testing.T) {
	// one rock keyword and one metal keyword
	if got := ClassifyGenre("Queen + Slayer", ""); got != "rock" {
		t.Errorf("expected rock on tie, got %s", got)
	}
}

func TestSelloutSpeedScore(t *testing.T) {
	day := 24 * time.Hour

	tests := []struct {
		name      string
		status    domain.TicketStatus
		snapshots []domain.EventSnapshot
		want      float64
	}{
		{"no history sold out", domain.TicketSoldOut, nil, 25},
		{"no history selling fast", domain.TicketSellingFast, nil, 15},
		{"single snapshot available", domain.TicketAvailable, []domain.EventSnapshot{snap(domain.TicketAvailable, t0)}, 5},
		{"sold out within a day", domain.TicketSoldOut, []domain.EventSnapshot{
			snap(domain.TicketAvailable, t0), snap(domain.TicketSoldOut, t0.Add(day)),
		}, 30},
		{"sold out within a week", domain.TicketSoldOut, []domain.EventSnapshot{
			snap(domain.TicketAvailable, t0), snap(domain.TicketSellingFast, t0.Add(2*day)), snap(domain.TicketSoldOut, t0.Add(6*day)),
		}, 25},
		{"sold out after ten days", domain.TicketSoldOut, []domain.EventSnapshot{
			snap(domain.TicketAvailable, t0), snap(domain.TicketSoldOut, t0.Add(10*day)),
		}, 20},
		{"sold out after a month", domain.TicketSoldOut, []domain.EventSnapshot{
			snap(domain.TicketAvailable, t0), snap(domain.TicketSoldOut, t0.Add(30*day)),
		}, 15},
		{"never sold out", domain.TicketSellingFast, []domain.EventSnapshot{
			snap(domain.TicketAvailable, t0), snap(domain.TicketSellingFast, t0.Add(day)),
		}, 5},
		{"no available anchor", domain.TicketSoldOut, []domain.EventSnapshot{
			snap(domain.TicketSellingFast, t0), snap(domain.TicketSoldOut, t0.Add(day)),
		}, 5},
		{"available after the first snapshot is not an anchor", domain.TicketSoldOut, []domain.EventSnapshot{
			snap(domain.TicketSellingFast, t0), snap(domain.TicketAvailable, t0.Add(day)), snap(domain.TicketSoldOut, t0.Add(2*day)),
		}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelloutSpeedScore(tt.status, tt.snapshots); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestHypeScore_SoldOutArenaShow(t *testing.T) {
	event := &domain.Event{
		EventDate:         t0.Add(20 * 24 * time.Hour),
		TicketStatus:      domain.TicketSoldOut,
		EstimatedAudience: domain.Ptr(60000),
		EventType:         domain.EventConcert,
		Artist:            &domain.Artist{Popularity: 80},
		Venue:             &domain.Venue{Capacity: domain.Ptr(60000)},
	}

	if got := HypeScore(event, nil, t0); got != 80 {
		t.Errorf("expected hype 80, got %v", got)
	}
}

func TestHypeScore_Components(t *testing.T) {
	tests := []struct {
		name  string
		event domain.Event
		want  float64
	}{
		{
			name:  "bare available concert",
			event: domain.Event{EventDate: t0.Add(90 * 24 * time.Hour), TicketStatus: domain.TicketAvailable},
			want:  5,
		},
		{
			name:  "sold out without capacity uses flat fill",
			event: domain.Event{EventDate: t0.Add(45 * 24 * time.Hour), TicketStatus: domain.TicketSoldOut},
			want:  25 + 20 + 7,
		},
		{
			name:  "distant sold out",
			event: domain.Event{EventDate: t0.Add(120 * 24 * time.Hour), TicketStatus: domain.TicketSoldOut},
			want:  25 + 20 + 5,
		},
		{
			name: "selling fast festival",
			event: domain.Event{
				EventDate:    t0.Add(10 * 24 * time.Hour),
				TicketStatus: domain.TicketSellingFast,
				EventType:    domain.EventFestival,
				IsFestival:   true,
			},
			want: 15 + 5 + 10,
		},
		{
			name: "tour stop with half full venue",
			event: domain.Event{
				EventDate:         t0.Add(10 * 24 * time.Hour),
				TicketStatus:      domain.TicketAvailable,
				EventType:         domain.EventTourStop,
				EstimatedAudience: domain.Ptr(5000),
				Venue:             &domain.Venue{Capacity: domain.Ptr(10000)},
				Artist:            &domain.Artist{Popularity: 51},
			},
			// 5 + 12.5 + 12.75 + 3
			want: 33.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HypeScore(&tt.event, nil, t0); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestHypeScore_Bounded(t *testing.T) {
	event := &domain.Event{
		EventDate:         t0.Add(time.Hour),
		TicketStatus:      domain.TicketSoldOut,
		EstimatedAudience: domain.Ptr(500000),
		EventType:         domain.EventFestival,
		IsFestival:        true,
		Artist:            &domain.Artist{Popularity: 100},
		Venue:             &domain.Venue{Capacity: domain.Ptr(100)},
	}
	snaps := []domain.EventSnapshot{snap(domain.TicketAvailable, t0), snap(domain.TicketSoldOut, t0.Add(time.Hour))}

	got := HypeScore(event, snaps, t0)
	if got < 0 || got > 100 {
		t.Errorf("hype out of range: %v", got)
	}
	if got != 100 {
		t.Errorf("expected maximal hype 100, got %v", got)
	}
}

func TestSalesPotential(t *testing.T) {
	tests := []struct {
		name  string
		event domain.Event
		hype  float64
		want  float64
	}{
		{
			name: "metal in sao paulo",
			event: domain.Event{
				EstimatedAudience: domain.Ptr(10000),
				Artist:            &domain.Artist{Genre: "metal"},
				Venue:             &domain.Venue{City: "São Paulo"},
			},
			hype: 50,
			// (20 + 30) * 1.6 * 1.2 = 96
			want: 96,
		},
		{
			name: "capacity fallback in unlisted city",
			event: domain.Event{
				Venue: &domain.Venue{City: "Campinas", Capacity: domain.Ptr(5000)},
			},
			hype: 10,
			// (4 + 10) * 1.0 * 0.9 = 12.6
			want: 12.6,
		},
		{
			name: "festival funk in rio",
			event: domain.Event{
				EventType:         domain.EventFestival,
				IsFestival:        true,
				EstimatedAudience: domain.Ptr(2000),
				Artist:            &domain.Artist{Genre: "funk"},
				Venue:             &domain.Venue{City: "rio de janeiro"},
			},
			hype: 30,
			// (12 + 6 + 15) * 0.7 * 1.1 = 25.41
			want: 25.4,
		},
		{
			name:  "no venue",
			event: domain.Event{EventType: domain.EventTourStop},
			hype:  0,
			// 5 * 1.0 * 0.9
			want: 4.5,
		},
		{
			name: "clamped",
			event: domain.Event{
				EventType:         domain.EventFestival,
				IsFestival:        true,
				EstimatedAudience: domain.Ptr(90000),
				Artist:            &domain.Artist{Genre: "metal"},
				Venue:             &domain.Venue{City: "São Paulo"},
			},
			hype: 100,
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SalesPotential(&tt.event, tt.hype); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMultipliers(t *testing.T) {
	if GenreMultiplier("") != 1.0 {
		t.Error("missing genre should count as pop")
	}
	if GenreMultiplier("Rock") != 1.5 {
		t.Error("genre lookup should be case-insensitive")
	}
	if GenreMultiplier("axé") != 0.7 {
		t.Error("genre lookup should ignore accents")
	}
	if GenreMultiplier("forró") != 1.0 {
		t.Error("unknown genre should be neutral")
	}
	if CityMultiplier("Brasília") != 0.95 {
		t.Error("accented city should match")
	}
	if CityMultiplier("") != 0.9 {
		t.Error("unknown city should use default multiplier")
	}
}

func TestProductionWindow(t *testing.T) {
	today := time.Date(2026, 1, 10, 12, 0, 0, 0, normalize.BRT)
	eventDate := time.Date(2026, 6, 20, 21, 0, 0, 0, normalize.BRT)
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, normalize.BRT)
	}

	tests := []struct {
		name         string
		date         time.Time
		potential    float64
		wantStart    time.Time
		wantDeadline time.Time
	}{
		{"high potential", eventDate, 75, day(2026, 5, 6), day(2026, 5, 30)},
		{"medium potential", eventDate, 40, day(2026, 5, 21), day(2026, 6, 6)},
		{"low potential", eventDate, 39.9, day(2026, 5, 30), day(2026, 6, 10)},
		{"start clamped to today", day(2026, 2, 10), 75, day(2026, 1, 10), day(2026, 1, 20)},
		{"both clamped", day(2026, 1, 15), 75, day(2026, 1, 10), day(2026, 1, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, deadline := ProductionWindow(tt.date, tt.potential, today)
			if !start.Equal(tt.wantStart) {
				t.Errorf("start: expected %v, got %v", tt.wantStart, start)
			}
			if !deadline.Equal(tt.wantDeadline) {
				t.Errorf("deadline: expected %v, got %v", tt.wantDeadline, deadline)
			}
		})
	}
}

func TestProductionWindow_UTCEventKeepsBrazilianDay(t *testing.T) {
	// 22:00 in Sao Paulo is 01:00 UTC the next day.
	eventDate := time.Date(2026, 6, 21, 1, 0, 0, 0, time.UTC)
	today := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	start, _ := ProductionWindow(eventDate, 75, today)
	want := time.Date(2026, 5, 6, 0, 0, 0, 0, normalize.BRT)
	if !start.Equal(want) {
		t.Errorf("expected %v, got %v", want, start)
	}
}

func TestScorer_Apply(t *testing.T) {
	scorer := &Scorer{Now: func() time.Time { return t0 }}
	event := &domain.Event{
		EventDate:         t0.Add(20 * 24 * time.Hour),
		TicketStatus:      domain.TicketSoldOut,
		EstimatedAudience: domain.Ptr(60000),
		Artist:            &domain.Artist{Popularity: 80, Genre: "rock"},
		Venue:             &domain.Venue{City: "São Paulo", Capacity: domain.Ptr(60000)},
	}

	scorer.Apply(event, nil)

	if event.HypeScore != 80 {
		t.Errorf("expected hype 80, got %v", event.HypeScore)
	}
	// (32 + 30) * 1.5 * 1.2 = 111.6 -> 100
	if event.SalesPotentialScore != 100 {
		t.Errorf("expected sales potential 100, got %v", event.SalesPotentialScore)
	}
	if event.ProductionStartDate == nil || event.ProductionDeadline == nil {
		t.Fatal("expected production window to be set")
	}
	if event.ProductionStartDate.After(*event.ProductionDeadline) {
		t.Error("production start should not be after deadline")
	}
}
