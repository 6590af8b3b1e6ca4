package forecast

import (
	"math"
	"sort"

	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/normalize"
)

const topN = 10

type SellerStat struct {
	Seller   string  `json:"seller"`
	Products int     `json:"products"`
	AvgSold  float64 `json:"avg_sold"`
}

type ArtistStat struct {
	Artist    string  `json:"artist"`
	Products  int     `json:"products"`
	AvgPrice  float64 `json:"avg_price"`
	TotalSold int     `json:"total_sold"`
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type PlatformCount struct {
	Platform string `json:"platform"`
	Count    int    `json:"count"`
}

type MarketStats struct {
	TotalProducts     int             `json:"total_products"`
	AvgPrice          float64         `json:"avg_price"`
	TopSellers        []SellerStat    `json:"top_sellers"`
	TopArtists        []ArtistStat    `json:"top_artists"`
	PriceRange        PriceRange      `json:"price_range"`
	PlatformBreakdown []PlatformCount `json:"platform_breakdown"`
}

type rollup struct {
	label    string
	count    int
	sold     int
	priceSum float64
}

// MarketplaceStats summarizes the listed products: top sellers and artists by
// units sold, price range and per-platform counts.
func MarketplaceStats(products []domain.MarketplaceProduct) MarketStats {
	stats := MarketStats{
		TotalProducts:     len(products),
		TopSellers:        []SellerStat{},
		TopArtists:        []ArtistStat{},
		PlatformBreakdown: []PlatformCount{},
	}
	if len(products) == 0 {
		return stats
	}

	sellers := make(map[string]*rollup)
	artists := make(map[string]*rollup)
	platforms := make(map[string]int)
	var priceSum float64

	stats.PriceRange = PriceRange{Min: products[0].Price, Max: products[0].Price}
	for _, p := range products {
		priceSum += p.Price
		if p.Price < stats.PriceRange.Min {
			stats.PriceRange.Min = p.Price
		}
		if p.Price > stats.PriceRange.Max {
			stats.PriceRange.Max = p.Price
		}
		platforms[p.Platform]++

		if p.SellerName != "" {
			add(sellers, p.SellerName, p.SellerName, p)
		}
		if key := normalize.ArtistKey(p.RelatedArtist); key != "" {
			add(artists, key, p.RelatedArtist, p)
		}
	}
	stats.AvgPrice = round2(priceSum / float64(len(products)))

	for _, r := range topBySold(sellers) {
		stats.TopSellers = append(stats.TopSellers, SellerStat{
			Seller:   r.label,
			Products: r.count,
			AvgSold:  math.Round(float64(r.sold) / float64(r.count)),
		})
	}
	for _, r := range topBySold(artists) {
		stats.TopArtists = append(stats.TopArtists, ArtistStat{
			Artist:    r.label,
			Products:  r.count,
			AvgPrice:  round2(r.priceSum / float64(r.count)),
			TotalSold: r.sold,
		})
	}

	for platform, count := range platforms {
		stats.PlatformBreakdown = append(stats.PlatformBreakdown, PlatformCount{Platform: platform, Count: count})
	}
	sort.Slice(stats.PlatformBreakdown, func(i, j int) bool {
		return stats.PlatformBreakdown[i].Platform < stats.PlatformBreakdown[j].Platform
	})

	return stats
}

func add(m map[string]*rollup, key, label string, p domain.MarketplaceProduct) {
	r, ok := m[key]
	if !ok {
		r = &rollup{label: label}
		m[key] = r
	}
	r.count++
	r.sold += p.SoldCount
	r.priceSum += p.Price
}

func topBySold(m map[string]*rollup) []*rollup {
	list := make([]*rollup, 0, len(m))
	for _, r := range m {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].sold != list[j].sold {
			return list[i].sold > list[j].sold
		}
		return list[i].label < list[j].label
	})
	if len(list) > topN {
		list = list[:topN]
	}
	return list
}
