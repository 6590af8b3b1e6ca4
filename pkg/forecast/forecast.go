// Package forecast cross-references marketplace listings with upcoming events
// to project merchandise demand, and summarizes the marketplace itself.
package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/normalize"
)

const (
	BaseConversionRate = 0.02
	ProductionCost     = 15.0
	MarketplaceFee     = 0.12
	FallbackPrice      = 37.50
	DefaultDaysAhead   = 90
)

type EventForecast struct {
	EventID              string              `json:"event_id"`
	EventTitle           string              `json:"event_title"`
	Artist               string              `json:"artist"`
	Venue                string              `json:"venue"`
	City                 string              `json:"city"`
	EventDate            string              `json:"event_date"`
	DaysUntil            int                 `json:"days_until"`
	Audience             int                 `json:"audience"`
	TicketStatus         domain.TicketStatus `json:"ticket_status"`
	HypeScore            float64             `json:"hype_score"`
	SalesPotential       float64             `json:"sales_potential"`
	IsFestival           bool                `json:"is_festival"`
	MatchingProducts     int                 `json:"matching_products"`
	MarketplaceAvgPrice  float64             `json:"marketplace_avg_price"`
	MarketplaceTotalSold int                 `json:"marketplace_total_sold"`
	BestSellerTitle      string              `json:"best_seller_title,omitempty"`
	BestSellerSold       int                 `json:"best_seller_sold"`
	BestSellerURL        string              `json:"best_seller_url,omitempty"`
	ConversionRatePct    float64             `json:"conversion_rate_pct"`
	ProjectedUnits       int                 `json:"projected_units"`
	SuggestedPrice       float64             `json:"suggested_price"`
	ProjectedRevenue     float64             `json:"projected_revenue"`
	ProjectedProfit      float64             `json:"projected_profit"`
}

type WeeklyForecast struct {
	Week    string  `json:"week"`
	Events  int     `json:"events"`
	Units   int     `json:"units"`
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
}

type Report struct {
	PeriodDays            int              `json:"period_days"`
	TotalEvents           int              `json:"total_events"`
	TotalAudience         int              `json:"total_audience"`
	TotalProjectedUnits   int              `json:"total_projected_units"`
	TotalProjectedRevenue float64          `json:"total_projected_revenue"`
	TotalProjectedProfit  float64          `json:"total_projected_profit"`
	AvgConversionRatePct  float64          `json:"avg_conversion_rate_pct"`
	AvgTicket             float64          `json:"avg_ticket"`
	Events                []EventForecast  `json:"events"`
	WeeklyForecast        []WeeklyForecast `json:"weekly_forecast"`
}

// ConversionRate is the share of an event's audience expected to buy a
// related shirt online.
func ConversionRate(status domain.TicketStatus, festival bool, hype float64) float64 {
	statusMult := 1.0
	switch status {
	case domain.TicketSoldOut:
		statusMult = 1.8
	case domain.TicketSellingFast:
		statusMult = 1.4
	}
	festivalMult := 1.0
	if festival {
		festivalMult = 1.3
	}
	return BaseConversionRate * statusMult * festivalMult * (1 + hype/200)
}

// SuggestedPrice undercuts the average competitor by 10% without going
// below 2.5x production cost. With no competitors the fallback price is used.
func SuggestedPrice(avgPrice float64) float64 {
	if avgPrice <= 0 {
		return FallbackPrice
	}
	return round2(math.Max(avgPrice*0.9, ProductionCost*2.5))
}

// NetPerUnit is what one sale leaves after production cost and marketplace fee.
func NetPerUnit(price float64) float64 {
	return price - ProductionCost - price*MarketplaceFee
}

// IndexByArtist groups products by normalize.ArtistKey of their related
// artist. Products without one are left out.
func IndexByArtist(products []domain.MarketplaceProduct) map[string][]domain.MarketplaceProduct {
	index := make(map[string][]domain.MarketplaceProduct)
	for _, p := range products {
		key := normalize.ArtistKey(p.RelatedArtist)
		if key == "" {
			continue
		}
		index[key] = append(index[key], p)
	}
	return index
}

// Events projects merchandise demand for every active event dated within
// daysAhead of now.
func Events(events []domain.Event, products []domain.MarketplaceProduct, now time.Time, daysAhead int) Report {
	if daysAhead <= 0 {
		daysAhead = DefaultDaysAhead
	}
	cutoff := now.AddDate(0, 0, daysAhead)
	index := IndexByArtist(products)

	upcoming := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if !e.IsActive || e.EventDate.Before(now) || e.EventDate.After(cutoff) {
			continue
		}
		upcoming = append(upcoming, e)
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].EventDate.Before(upcoming[j].EventDate)
	})

	report := Report{
		PeriodDays:     daysAhead,
		Events:         make([]EventForecast, 0, len(upcoming)),
		WeeklyForecast: []WeeklyForecast{},
	}
	weeks := make(map[string]*WeeklyForecast)

	for i := range upcoming {
		f := forecastEvent(&upcoming[i], index, now)
		report.Events = append(report.Events, f)

		report.TotalAudience += f.Audience
		report.TotalProjectedUnits += f.ProjectedUnits
		report.TotalProjectedRevenue += f.ProjectedRevenue
		report.TotalProjectedProfit += f.ProjectedProfit

		key := weekStart(upcoming[i].EventDate)
		w, ok := weeks[key]
		if !ok {
			w = &WeeklyForecast{Week: key}
			weeks[key] = w
		}
		w.Events++
		w.Units += f.ProjectedUnits
		w.Revenue += f.ProjectedRevenue
		w.Profit += f.ProjectedProfit
	}

	for _, w := range weeks {
		w.Revenue = round2(w.Revenue)
		w.Profit = round2(w.Profit)
		report.WeeklyForecast = append(report.WeeklyForecast, *w)
	}
	sort.Slice(report.WeeklyForecast, func(i, j int) bool {
		return report.WeeklyForecast[i].Week < report.WeeklyForecast[j].Week
	})

	report.TotalEvents = len(report.Events)
	report.TotalProjectedRevenue = round2(report.TotalProjectedRevenue)
	report.TotalProjectedProfit = round2(report.TotalProjectedProfit)
	if report.TotalAudience > 0 {
		report.AvgConversionRatePct = round2(float64(report.TotalProjectedUnits) / float64(report.TotalAudience) * 100)
	}
	if report.TotalProjectedUnits > 0 {
		report.AvgTicket = round2(report.TotalProjectedRevenue / float64(report.TotalProjectedUnits))
	}
	return report
}

func forecastEvent(event *domain.Event, index map[string][]domain.MarketplaceProduct, now time.Time) EventForecast {
	f := EventForecast{
		EventID:        event.ID,
		EventTitle:     event.Title,
		EventDate:      event.EventDate.In(normalize.BRT).Format("2006-01-02"),
		TicketStatus:   event.TicketStatus,
		HypeScore:      round1(event.HypeScore),
		SalesPotential: round1(event.SalesPotentialScore),
		IsFestival:     event.IsFestival,
	}
	if event.Artist != nil {
		f.Artist = event.Artist.Name
	}
	if event.Venue != nil {
		f.Venue = event.Venue.Name
		f.City = event.Venue.City
	}
	if event.EstimatedAudience != nil {
		f.Audience = *event.EstimatedAudience
	}
	if days := int(math.Floor(event.EventDate.Sub(now).Hours() / 24)); days > 0 {
		f.DaysUntil = days
	}

	matched := matchProducts(event, index)
	if len(matched) > 0 {
		var priceSum float64
		best := matched[0]
		for _, p := range matched {
			priceSum += p.Price
			f.MarketplaceTotalSold += p.SoldCount
			if p.SoldCount > best.SoldCount {
				best = p
			}
		}
		f.MatchingProducts = len(matched)
		f.MarketplaceAvgPrice = priceSum / float64(len(matched))
		f.BestSellerTitle = best.Title
		f.BestSellerSold = best.SoldCount
		f.BestSellerURL = best.ProductURL
	}

	rate := ConversionRate(event.TicketStatus, event.IsFestival, event.HypeScore)
	f.ConversionRatePct = round2(rate * 100)
	f.ProjectedUnits = int(float64(f.Audience) * rate)
	f.SuggestedPrice = SuggestedPrice(f.MarketplaceAvgPrice)
	f.ProjectedRevenue = round2(float64(f.ProjectedUnits) * f.SuggestedPrice)
	f.ProjectedProfit = round2(float64(f.ProjectedUnits) * NetPerUnit(f.SuggestedPrice))
	f.MarketplaceAvgPrice = round2(f.MarketplaceAvgPrice)
	return f
}

// matchProducts collects the products of the event's artist and, for
// festivals, of every headliner, without repeating a product.
func matchProducts(event *domain.Event, index map[string][]domain.MarketplaceProduct) []domain.MarketplaceProduct {
	var keys []string
	if event.Artist != nil {
		keys = append(keys, normalize.ArtistKey(event.Artist.Name))
	}
	if event.IsFestival {
		for _, h := range event.Headliners {
			keys = append(keys, normalize.ArtistKey(h))
		}
	}

	seen := make(map[string]bool)
	var matched []domain.MarketplaceProduct
	for _, key := range keys {
		if key == "" {
			continue
		}
		for _, p := range index[key] {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			matched = append(matched, p)
		}
	}
	return matched
}

// weekStart returns the Monday of the event's week in Brazilian time.
func weekStart(t time.Time) string {
	t = t.In(normalize.BRT)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset).Format("2006-01-02")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
