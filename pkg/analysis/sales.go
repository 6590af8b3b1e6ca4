package analysis

import (
	"math"
	"strings"

	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/normalize"
)

var genreMultipliers = map[string]float64{
	"metal":      1.6,
	"rock":       1.5,
	"punk":       1.4,
	"indie":      1.3,
	"rap":        1.2,
	"hip hop":    1.2,
	"pop":        1.0,
	"k-pop":      1.1,
	"eletronica": 0.9,
	"edm":        0.9,
	"sertanejo":  0.8,
	"funk":       0.7,
	"pagode":     0.7,
	"axe":        0.7,
}

// Keys are folded with normalize.Fold.
var cityMultipliers = map[string]float64{
	"sao paulo":      1.2,
	"rio de janeiro": 1.1,
	"porto alegre":   1.05,
	"curitiba":       1.0,
	"belo horizonte": 1.0,
	"brasilia":       0.95,
	"salvador":       0.9,
	"recife":         0.9,
	"fortaleza":      0.9,
}

const defaultCityMultiplier = 0.9

// GenreMultiplier returns the merch affinity of a genre. A missing genre is
// treated as pop and unknown genres are neutral.
func GenreMultiplier(genre string) float64 {
	genre = strings.ToLower(strings.TrimSpace(genre))
	if genre == "" {
		genre = DefaultGenre
	}
	if m, ok := genreMultipliers[normalize.Fold(genre)]; ok {
		return m
	}
	return 1.0
}

func CityMultiplier(city string) float64 {
	if m, ok := cityMultipliers[normalize.Fold(city)]; ok {
		return m
	}
	return defaultCityMultiplier
}

// SalesPotential estimates merchandise opportunity on a 0-100 scale from the
// hype score, audience size, event type, genre and city.
func SalesPotential(event *domain.Event, hype float64) float64 {
	score := hype * 0.4

	if event.EstimatedAudience != nil && *event.EstimatedAudience > 0 {
		score += math.Min(float64(*event.EstimatedAudience)/10000*30, 30)
	} else if event.Venue != nil && event.Venue.Capacity != nil && *event.Venue.Capacity > 0 {
		score += math.Min(float64(*event.Venue.Capacity)/10000*20, 20)
	}

	score += eventTypeBonus(event, 15, 5)

	genre := ""
	if event.Artist != nil {
		genre = event.Artist.Genre
	}
	score *= GenreMultiplier(genre)

	city := ""
	if event.Venue != nil {
		city = event.Venue.City
	}
	score *= CityMultiplier(city)

	return clamp(round1(score))
}
