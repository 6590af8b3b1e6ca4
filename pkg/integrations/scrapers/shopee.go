package scrapers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yair/merchpulse/pkg/domain"
	"github.com/yair/merchpulse/pkg/ratelimit"
)

var DefaultSearchTerms = []domain.SearchTerm{
	{Term: "camiseta ac dc", Artist: "AC/DC"},
	{Term: "camiseta acdc rock", Artist: "AC/DC"},
	{Term: "camiseta guns n roses", Artist: "Guns N' Roses"},
	{Term: "camiseta guns roses", Artist: "Guns N' Roses"},
	{Term: "camiseta my chemical romance", Artist: "My Chemical Romance"},
	{Term: "camiseta mcr black parade", Artist: "My Chemical Romance"},
	{Term: "camiseta bad bunny", Artist: "Bad Bunny"},
	{Term: "camiseta the weeknd", Artist: "The Weeknd"},
	{Term: "camiseta weeknd xo", Artist: "The Weeknd"},
	{Term: "camiseta doja cat", Artist: "Doja Cat"},
	{Term: "camiseta tyler the creator", Artist: "Tyler The Creator"},
	{Term: "camiseta chappell roan", Artist: "Chappell Roan"},
	{Term: "camiseta sabrina carpenter", Artist: "Sabrina Carpenter"},
	{Term: "camiseta lollapalooza"},
	{Term: "camiseta lollapalooza 2026"},
	{Term: "camiseta monsters of rock"},
	{Term: "camiseta black label society", Artist: "Black Label Society"},
	{Term: "camiseta cypress hill", Artist: "Cypress Hill"},
	{Term: "camiseta interpol banda", Artist: "Interpol"},
	{Term: "camiseta mac demarco", Artist: "Mac DeMarco"},
	{Term: "camiseta bryan adams", Artist: "Bryan Adams"},
	{Term: "camiseta jackson wang", Artist: "Jackson Wang"},
	{Term: "camiseta banda rock"},
	{Term: "camiseta festival musica"},
	{Term: "camiseta rock vintage oversize"},
}

type ShopeeConfig struct {
	PageSize   int
	MaxPages   int
	MaxRetries int
	// BackoffStep is multiplied by the attempt number between retries of an empty search.
	BackoffStep time.Duration
}

func (c ShopeeConfig) withDefaults() ShopeeConfig {
	if c.PageSize <= 0 {
		c.PageSize = 15
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 1
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffStep == 0 {
		c.BackoffStep = 3 * time.Second
	}
	return c
}

// ShopeeScraper queries Shopee Brazil's internal search API for merch listings.
type ShopeeScraper struct {
	*BaseScraper
	apiURL   string
	siteURL  string
	imageURL string
	shopee   ShopeeConfig
	terms    []domain.SearchTerm
}

func NewShopeeScraper(config ScrapingConfig, shopee ShopeeConfig, limiter ratelimit.Limiter) *ShopeeScraper {
	return &ShopeeScraper{
		BaseScraper: NewBaseScraper("shopee", config, limiter),
		apiURL:      "https://shopee.com.br/api/v4/search/search_items",
		siteURL:     "https://shopee.com.br",
		imageURL:    "https://down-br.img.susercontent.com/file/",
		shopee:      shopee.withDefaults(),
		terms:       DefaultSearchTerms,
	}
}

func (s *ShopeeScraper) Scrape(ctx context.Context) ([]domain.ScrapedProduct, error) {
	return s.ScrapeTerms(ctx, s.terms)
}

// ScrapeTerms searches every term and merges the results, keeping the first
// listing seen per product URL and dropping zero-priced ones. A term that
// stays empty after all retries is abandoned and reported in the returned
// *PageErrors without stopping the others.
func (s *ShopeeScraper) ScrapeTerms(ctx context.Context, terms []domain.SearchTerm) ([]domain.ScrapedProduct, error) {
	var (
		products []domain.ScrapedProduct
		tally    pageTally
	)
	seen := make(map[string]bool)

	for _, term := range terms {
		if ctx.Err() != nil {
			return products, ctx.Err()
		}

		found, err := s.searchTerm(ctx, term)
		if err != nil {
			tally.fail(err)
			continue
		}
		tally.ok()

		for _, p := range found {
			if p.ProductURL == "" || p.Price <= 0 || seen[p.ProductURL] {
				continue
			}
			seen[p.ProductURL] = true
			products = append(products, p)
		}
	}

	log.Printf("[shopee] %d products | terms ok: %d, abandoned: %d", len(products), tally.total-tally.failed, tally.failed)
	return products, tally.err()
}

func (s *ShopeeScraper) searchTerm(ctx context.Context, term domain.SearchTerm) ([]domain.ScrapedProduct, error) {
	first, err := s.firstPageWithRetry(ctx, term.Term)
	if err != nil {
		return nil, err
	}

	products := s.parseItems(first, term)
	if len(first) < s.shopee.PageSize {
		return products, nil
	}

	for page := 1; page < s.shopee.MaxPages; page++ {
		items, err := s.callAPI(ctx, term.Term, page*s.shopee.PageSize)
		if err != nil || len(items) == 0 {
			break
		}
		products = append(products, s.parseItems(items, term)...)
		if len(items) < s.shopee.PageSize {
			break
		}
	}
	return products, nil
}

func (s *ShopeeScraper) firstPageWithRetry(ctx context.Context, term string) ([]shopeeItem, error) {
	var lastErr error
	for attempt := 1; attempt <= s.shopee.MaxRetries; attempt++ {
		items, err := s.callAPI(ctx, term, 0)
		if err == nil && len(items) > 0 {
			return items, nil
		}
		if err != nil {
			lastErr = err
			log.Printf("[shopee] %q: error on attempt %d: %v", term, attempt, err)
		} else {
			lastErr = fmt.Errorf("no items for %q", term)
			log.Printf("[shopee] %q: 0 items (attempt %d)", term, attempt)
		}

		if attempt < s.shopee.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * s.shopee.BackoffStep):
			}
		}
	}

	log.Printf("[shopee] %q: all %d attempts failed", term, s.shopee.MaxRetries)
	return nil, fmt.Errorf("search %q abandoned: %w", term, lastErr)
}

type shopeeSearchResponse struct {
	Items []shopeeItem `json:"items"`
}

type shopeeItem struct {
	ItemBasic *shopeeItemBasic `json:"item_basic"`
	shopeeItemBasic
}

type shopeeItemBasic struct {
	Name                string          `json:"name"`
	ItemID              flexString      `json:"itemid"`
	ItemIDAlt           flexString      `json:"item_id"`
	ShopID              flexString      `json:"shopid"`
	ShopIDAlt           flexString      `json:"shop_id"`
	Price               float64         `json:"price"`
	PriceBeforeDiscount float64         `json:"price_before_discount"`
	Sold                int             `json:"sold"`
	HistoricalSold      int             `json:"historical_sold"`
	ItemRating          json.RawMessage `json:"item_rating"`
	Image               string          `json:"image"`
	ShopName            string          `json:"shop_name"`
	ShopLocation        string          `json:"shop_location"`
}

type shopeeRating struct {
	RatingStar  float64 `json:"rating_star"`
	RatingCount []int   `json:"rating_count"`
}

// callAPI fetches one result page. A 403 is the anti-bot wall and counts as
// an empty page rather than an error.
func (s *ShopeeScraper) callAPI(ctx context.Context, term string, offset int) ([]shopeeItem, error) {
	params := url.Values{}
	params.Set("by", "sales")
	params.Set("keyword", term)
	params.Set("limit", strconv.Itoa(s.shopee.PageSize))
	params.Set("newest", strconv.Itoa(offset))
	params.Set("order", "desc")
	params.Set("page_type", "search")
	params.Set("scenario", "PAGE_GLOBAL_SEARCH")
	params.Set("version", "2")

	headers := map[string]string{
		"Accept":           "application/json",
		"Referer":          s.siteURL + "/",
		"X-Requested-With": "XMLHttpRequest",
	}

	status, body, err := s.Fetch(ctx, s.apiURL+"?"+params.Encode(), headers)
	if status == http.StatusForbidden {
		log.Printf("[shopee] API returned 403 for %q", term)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var resp shopeeSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return resp.Items, nil
}

func (s *ShopeeScraper) parseItems(items []shopeeItem, term domain.SearchTerm) []domain.ScrapedProduct {
	var products []domain.ScrapedProduct
	for _, item := range items {
		if p, ok := s.parseItem(item, term); ok {
			products = append(products, p)
		}
	}
	return products
}

func (s *ShopeeScraper) parseItem(item shopeeItem, term domain.SearchTerm) (domain.ScrapedProduct, bool) {
	info := item.shopeeItemBasic
	if item.ItemBasic != nil {
		info = *item.ItemBasic
	}

	name := strings.TrimSpace(info.Name)
	if name == "" {
		return domain.ScrapedProduct{}, false
	}

	itemID := string(info.ItemID)
	if itemID == "" || itemID == "0" {
		itemID = string(info.ItemIDAlt)
	}
	shopID := string(info.ShopID)
	if shopID == "" || shopID == "0" {
		shopID = string(info.ShopIDAlt)
	}

	price := scaleShopeePrice(info.Price)
	p := domain.ScrapedProduct{
		Title:          name,
		ProductURL:     s.productURL(name, shopID, itemID),
		ExternalID:     itemID,
		Platform:       s.Platform(),
		Price:          round2(price),
		SoldCount:      info.Sold,
		SellerName:     info.ShopName,
		SellerLocation: info.ShopLocation,
		Category:       GuessCategory(name, term.Artist),
		RelatedArtist:  term.Artist,
		SearchTerm:     term.Term,
	}
	if p.SoldCount == 0 {
		p.SoldCount = info.HistoricalSold
	}

	if info.PriceBeforeDiscount > 0 {
		original := scaleShopeePrice(info.PriceBeforeDiscount)
		if original > price {
			v := round2(original)
			p.OriginalPrice = &v
		}
	}

	p.Rating, p.ReviewCount = parseShopeeRating(info.ItemRating)

	if info.Image != "" {
		p.ImageURL = s.imageURL + info.Image
	}
	return p, true
}

// productURL rebuilds the public listing URL from the item name slug and ids.
func (s *ShopeeScraper) productURL(name, shopID, itemID string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "/", "-")
	if r := []rune(slug); len(r) > 80 {
		slug = string(r[:80])
	}
	return fmt.Sprintf("%s/%s-i.%s.%s", s.siteURL, url.PathEscape(slug), shopID, itemID)
}

// scaleShopeePrice undoes the API's fixed-point encodings: values above 10000
// are in 1/100000 units, values above 100 in cents.
func scaleShopeePrice(raw float64) float64 {
	switch {
	case raw > 10000:
		return raw / 100000
	case raw > 100:
		return raw / 100
	}
	return raw
}

func parseShopeeRating(raw json.RawMessage) (*float64, int) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, 0
	}

	if raw[0] == '{' {
		var r shopeeRating
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, 0
		}
		reviews := 0
		for _, c := range r.RatingCount {
			reviews += c
		}
		if r.RatingStar > 0 {
			v := round1(r.RatingStar)
			return &v, reviews
		}
		return nil, reviews
	}

	var star float64
	if err := json.Unmarshal(raw, &star); err == nil && star > 0 {
		v := round1(star)
		return &v, 0
	}
	return nil, 0
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
