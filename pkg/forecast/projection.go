package forecast

import (
	"sort"

	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/normalize"
)

// UncategorizedLabel groups products that have no category tag.
const UncategorizedLabel = "sem_categoria"

type GrowthTier string

const (
	GrowthLow    GrowthTier = "low"
	GrowthMedium GrowthTier = "medium"
	GrowthHigh   GrowthTier = "high"
)

type ArtistProjection struct {
	Artist                  string     `json:"artist"`
	TotalSold               int        `json:"total_sold"`
	MaxSold                 int        `json:"max_sold"`
	AvgPrice                float64    `json:"avg_price"`
	MinPrice                float64    `json:"min_price"`
	MaxPrice                float64    `json:"max_price"`
	ProductsCount           int        `json:"products_count"`
	EstimatedMonthlyRevenue float64    `json:"estimated_monthly_revenue"`
	EstimatedUnitsPerMonth  int        `json:"estimated_units_per_month"`
	MarketSharePct          float64    `json:"market_share_pct"`
	GrowthPotential         GrowthTier `json:"growth_potential"`
	SuggestedPrice          float64    `json:"suggested_price"`
	ProfitMarginPct         float64    `json:"profit_margin_pct"`
}

type CategoryBreakdown struct {
	Category        string  `json:"category"`
	Products        int     `json:"products"`
	TotalSold       int     `json:"total_sold"`
	AvgPrice        float64 `json:"avg_price"`
	RevenueEstimate float64 `json:"revenue_estimate"`
}

type Opportunity struct {
	MarketSize            string  `json:"market_size"`
	CompetitionLevel      string  `json:"competition_level"`
	AvgProfitMarginPct    float64 `json:"avg_profit_margin"`
	RecommendedInvestment float64 `json:"recommended_investment"`
	ProjectedROIPct       float64 `json:"projected_roi_pct"`
}

type Projection struct {
	TotalMarketRevenue float64             `json:"total_market_revenue"`
	TotalUnitsSold     int                 `json:"total_units_sold"`
	AvgTicket          float64             `json:"avg_ticket"`
	Projections        []ArtistProjection  `json:"projections"`
	CategoryBreakdown  []CategoryBreakdown `json:"category_breakdown"`
	Opportunity        Opportunity         `json:"opportunity_score"`
}

// Listed sales are assumed to cover roughly three months.
const salesWindowMonths = 3

// unitsPerArtist is the starter batch size behind the investment estimate.
const unitsPerArtist = 50

// ClassifyGrowth buckets an artist by total units sold and listing count.
func ClassifyGrowth(totalSold, products int) GrowthTier {
	switch {
	case totalSold > 10000 && products >= 3:
		return GrowthHigh
	case totalSold > 5000 || products >= 3:
		return GrowthMedium
	}
	return GrowthLow
}

type artistGroup struct {
	name     string
	count    int
	priceSum float64
	sold     int
	maxSold  int
	minPrice float64
	maxPrice float64
}

// SalesProjection estimates per-artist monthly revenue and the overall
// opportunity in the shirt market from the listed products.
func SalesProjection(products []domain.MarketplaceProduct) Projection {
	groups := make(map[string]*artistGroup)
	var order []string
	for _, p := range products {
		key := normalize.ArtistKey(p.RelatedArtist)
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &artistGroup{name: p.RelatedArtist, minPrice: p.Price, maxPrice: p.Price}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
		g.priceSum += p.Price
		g.sold += p.SoldCount
		if p.SoldCount > g.maxSold {
			g.maxSold = p.SoldCount
		}
		if p.Price < g.minPrice {
			g.minPrice = p.Price
		}
		if p.Price > g.maxPrice {
			g.maxPrice = p.Price
		}
	}

	grandSold := 0
	for _, g := range groups {
		grandSold += g.sold
	}

	result := Projection{
		Projections:       make([]ArtistProjection, 0, len(groups)),
		CategoryBreakdown: categoryBreakdown(products),
	}

	for _, key := range order {
		g := groups[key]
		avg := round2(g.priceSum / float64(g.count))
		units := g.sold / salesWindowMonths
		revenue := float64(units) * avg
		suggested := round2(maxFloat(avg*0.9, ProductionCost*2.5))

		var share, margin float64
		if grandSold > 0 {
			share = float64(g.sold) / float64(grandSold) * 100
		}
		if suggested > 0 {
			margin = NetPerUnit(suggested) / suggested * 100
		}

		result.TotalMarketRevenue += revenue
		result.Projections = append(result.Projections, ArtistProjection{
			Artist:                  g.name,
			TotalSold:               g.sold,
			MaxSold:                 g.maxSold,
			AvgPrice:                avg,
			MinPrice:                g.minPrice,
			MaxPrice:                g.maxPrice,
			ProductsCount:           g.count,
			EstimatedMonthlyRevenue: round2(revenue),
			EstimatedUnitsPerMonth:  units,
			MarketSharePct:          round1(share),
			GrowthPotential:         ClassifyGrowth(g.sold, g.count),
			SuggestedPrice:          suggested,
			ProfitMarginPct:         round1(margin),
		})
	}
	sort.SliceStable(result.Projections, func(i, j int) bool {
		return result.Projections[i].TotalSold > result.Projections[j].TotalSold
	})
	result.TotalMarketRevenue = round2(result.TotalMarketRevenue)

	var priceSum float64
	for _, p := range products {
		priceSum += p.Price
		result.TotalUnitsSold += p.SoldCount
	}
	var avgAll float64
	if len(products) > 0 {
		avgAll = priceSum / float64(len(products))
	}
	result.AvgTicket = round2(avgAll)
	result.Opportunity = opportunity(len(products), result.TotalUnitsSold, avgAll, len(result.Projections))

	return result
}

func categoryBreakdown(products []domain.MarketplaceProduct) []CategoryBreakdown {
	type acc struct {
		count    int
		sold     int
		priceSum float64
	}
	byCategory := make(map[string]*acc)
	for _, p := range products {
		cat := p.Category
		if cat == "" {
			cat = UncategorizedLabel
		}
		a, ok := byCategory[cat]
		if !ok {
			a = &acc{}
			byCategory[cat] = a
		}
		a.count++
		a.sold += p.SoldCount
		a.priceSum += p.Price
	}

	out := make([]CategoryBreakdown, 0, len(byCategory))
	for cat, a := range byCategory {
		avg := a.priceSum / float64(a.count)
		out = append(out, CategoryBreakdown{
			Category:        cat,
			Products:        a.count,
			TotalSold:       a.sold,
			AvgPrice:        round2(avg),
			RevenueEstimate: round2(float64(a.sold) / salesWindowMonths * avg),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSold != out[j].TotalSold {
			return out[i].TotalSold > out[j].TotalSold
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func opportunity(totalProducts, totalSold int, avgPrice float64, artists int) Opportunity {
	o := Opportunity{
		MarketSize:            "small",
		CompetitionLevel:      "low",
		RecommendedInvestment: round2(ProductionCost * unitsPerArtist * float64(artists)),
	}
	switch {
	case totalSold > 50000:
		o.MarketSize = "large"
	case totalSold > 20000:
		o.MarketSize = "medium"
	}
	switch {
	case totalProducts > 50:
		o.CompetitionLevel = "high"
	case totalProducts > 20:
		o.CompetitionLevel = "medium"
	}
	if avgPrice > 0 {
		net := NetPerUnit(avgPrice)
		o.AvgProfitMarginPct = round1(net / avgPrice * 100)
		o.ProjectedROIPct = round1(net / ProductionCost * 100)
	}
	return o
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
