package domain

import (
	"time"
)

type MarketplaceProduct struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	ProductURL     string    `json:"product_url"`
	ExternalID     string    `json:"external_id,omitempty"`
	Platform       string    `json:"platform"`
	Price          float64   `json:"price"`
	OriginalPrice  *float64  `json:"original_price,omitempty"`
	SoldCount      int       `json:"sold_count"`
	Rating         *float64  `json:"rating,omitempty"`
	ReviewCount    int       `json:"review_count"`
	SellerName     string    `json:"seller_name,omitempty"`
	SellerLocation string    `json:"seller_location,omitempty"`
	Category       string    `json:"category,omitempty"`
	RelatedArtist  string    `json:"related_artist,omitempty"`
	RelatedEvent   string    `json:"related_event,omitempty"`
	SearchTerm     string    `json:"search_term,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	FirstSeenAt    time.Time `json:"first_seen_at"`
	LastScrapedAt  time.Time `json:"last_scraped_at"`
}

type ScrapedProduct struct {
	Title          string   `json:"title" validate:"required"`
	ProductURL     string   `json:"product_url" validate:"required,url"`
	ExternalID     string   `json:"external_id,omitempty"`
	Platform       string   `json:"platform" validate:"required"`
	Price          float64  `json:"price" validate:"gt=0"`
	OriginalPrice  *float64 `json:"original_price,omitempty" validate:"omitempty,gt=0"`
	SoldCount      int      `json:"sold_count" validate:"gte=0"`
	Rating         *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	ReviewCount    int      `json:"review_count" validate:"gte=0"`
	SellerName     string   `json:"seller_name,omitempty"`
	SellerLocation string   `json:"seller_location,omitempty"`
	Category       string   `json:"category,omitempty"`
	RelatedArtist  string   `json:"related_artist,omitempty"`
	RelatedEvent   string   `json:"related_event,omitempty"`
	SearchTerm     string   `json:"search_term,omitempty"`
	ImageURL       string   `json:"image_url,omitempty" validate:"omitempty,url"`
}

// SearchTerm pairs a marketplace query with the artist it is about. Artist
// may be empty for generic queries.
type SearchTerm struct {
	Term   string `json:"term"`
	Artist string `json:"artist,omitempty"`
}

type ProductFilter struct {
	Platform      string
	RelatedArtist string
	Category      string
	Search        string
	MinPrice      *float64
	MaxPrice      *float64
	MinSold       *int
	// SortBy is one of price_asc, price_desc, rating, sold_count (default).
	SortBy   string
	Page     int
	PageSize int
}

type ProductListResponse struct {
	Products []MarketplaceProduct `json:"products"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}
