package scrapers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yair/merchpulse/pkg/domain"
)

const shopeeACDCResponse = `{"items":[
  {"item_basic":{"name":"Camiseta AC/DC Back In Black","itemid":111,"shopid":222,"price":4990000,
    "price_before_discount":7990000,"sold":1200,
    "item_rating":{"rating_star":4.86,"rating_count":[100,1,2,3,4,90]},
    "image":"abc123","shop_name":"Rock Store","shop_location":"São Paulo"}},
  {"item_basic":{"name":"Camiseta Zero","itemid":112,"shopid":222,"price":0}},
  {"name":"Camiseta Lollapalooza Vintage","itemid":"113","shopid":223,"price":5990,"historical_sold":40,"item_rating":4.44}
]}`

func newTestShopee(serverURL string, shopee ShopeeConfig) *ShopeeScraper {
	s := NewShopeeScraper(testConfig(), shopee, nil)
	s.apiURL = serverURL + "/api/v4/search/search_items"
	return s
}

func TestShopeeScraper_ScrapeTerms(t *testing.T) {
	var blockedHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("by") != "sales" || q.Get("order") != "desc" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if r.Header.Get("X-Requested-With") != "XMLHttpRequest" {
			t.Error("expected X-Requested-With header")
		}

		switch q.Get("keyword") {
		case "camiseta ac dc":
			fmt.Fprint(w, shopeeACDCResponse)
		case "camiseta blocked":
			blockedHits.Add(1)
			w.WriteHeader(http.StatusForbidden)
		default:
			fmt.Fprint(w, `{"items":null}`)
		}
	}))
	defer server.Close()

	scraper := newTestShopee(server.URL, ShopeeConfig{PageSize: 15, MaxPages: 2, MaxRetries: 2, BackoffStep: time.Millisecond})

	products, err := scraper.ScrapeTerms(context.Background(), []domain.SearchTerm{
		{Term: "camiseta ac dc", Artist: "AC/DC"},
		{Term: "camiseta blocked"},
	})

	var pageErr *PageErrors
	if !errors.As(err, &pageErr) || pageErr.Failed != 1 || pageErr.Total != 2 {
		t.Fatalf("expected one abandoned term, got %v", err)
	}
	if blockedHits.Load() != 2 {
		t.Errorf("expected blocked term to be retried twice, got %d", blockedHits.Load())
	}

	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d: %+v", len(products), products)
	}

	t.Run("item_basic listing", func(t *testing.T) {
		p := products[0]
		if p.ProductURL != "https://shopee.com.br/camiseta-ac-dc-back-in-black-i.222.111" {
			t.Errorf("unexpected url: %s", p.ProductURL)
		}
		if p.ExternalID != "111" || p.Platform != "shopee" {
			t.Errorf("unexpected id/platform: %q %q", p.ExternalID, p.Platform)
		}
		if p.Price != 49.9 {
			t.Errorf("expected price 49.9, got %v", p.Price)
		}
		if p.OriginalPrice == nil || *p.OriginalPrice != 79.9 {
			t.Errorf("expected original price 79.9, got %v", p.OriginalPrice)
		}
		if p.SoldCount != 1200 || p.ReviewCount != 200 {
			t.Errorf("unexpected sold/reviews: %d %d", p.SoldCount, p.ReviewCount)
		}
		if p.Rating == nil || *p.Rating != 4.9 {
			t.Errorf("expected rating 4.9, got %v", p.Rating)
		}
		if p.Category != CategoryArtist || p.RelatedArtist != "AC/DC" || p.SearchTerm != "camiseta ac dc" {
			t.Errorf("unexpected tagging: %q %q %q", p.Category, p.RelatedArtist, p.SearchTerm)
		}
		if p.ImageURL != "https://down-br.img.susercontent.com/file/abc123" || p.SellerName != "Rock Store" {
			t.Errorf("unexpected image/seller: %q %q", p.ImageURL, p.SellerName)
		}
	})

	t.Run("flat listing", func(t *testing.T) {
		p := products[1]
		if p.ExternalID != "113" || p.Price != 59.9 || p.SoldCount != 40 {
			t.Errorf("unexpected flat listing: %+v", p)
		}
		if p.OriginalPrice != nil {
			t.Errorf("expected no original price, got %v", *p.OriginalPrice)
		}
		if p.Rating == nil || *p.Rating != 4.4 {
			t.Errorf("expected rating 4.4, got %v", p.Rating)
		}
		if p.Category != CategoryFestival {
			t.Errorf("expected festival category, got %s", p.Category)
		}
	})
}

func TestShopeeScraper_Pagination(t *testing.T) {
	var offsets []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("newest"))
		offsets = append(offsets, offset)

		count := 2
		if offset >= 4 {
			count = 1
		}
		fmt.Fprint(w, `{"items":[`)
		for i := 0; i < count; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"item_basic":{"name":"Camiseta Metal %d","itemid":%d,"shopid":9,"price":3990}}`, offset+i, offset+i+1)
		}
		fmt.Fprint(w, `]}`)
	}))
	defer server.Close()

	scraper := newTestShopee(server.URL, ShopeeConfig{PageSize: 2, MaxPages: 5, MaxRetries: 1, BackoffStep: time.Millisecond})

	products, err := scraper.ScrapeTerms(context.Background(), []domain.SearchTerm{{Term: "camiseta metal"}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(products) != 5 {
		t.Fatalf("expected 5 products, got %d", len(products))
	}
	if fmt.Sprint(offsets) != "[0 2 4]" {
		t.Errorf("expected offsets [0 2 4], got %v", offsets)
	}
	if products[0].Category != CategoryBand || products[0].Price != 39.9 {
		t.Errorf("unexpected first product: %+v", products[0])
	}
}

func TestScaleShopeePrice(t *testing.T) {
	tests := []struct {
		raw, want float64
	}{
		{4990000, 49.9},
		{5990, 59.9},
		{45, 45},
	}
	for _, tt := range tests {
		if got := round2(scaleShopeePrice(tt.raw)); got != tt.want {
			t.Errorf("scaleShopeePrice(%v) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewDefaultRegistry(testConfig(), ShopeeConfig{}, nil)

	if got := fmt.Sprint(r.Platforms()); got != "[eventbrite eventim shopee sympla]" {
		t.Errorf("unexpected platforms: %s", got)
	}

	filtered := r.Filter([]string{"sympla", "shopee", "nope"})
	if _, ok := filtered.EventSource("sympla"); !ok {
		t.Error("expected sympla to survive filter")
	}
	if _, ok := filtered.ProductSource("shopee"); !ok {
		t.Error("expected shopee to survive filter")
	}
	if _, ok := filtered.EventSource("eventbrite"); ok {
		t.Error("expected eventbrite to be filtered out")
	}
	if len(r.Filter(nil).Platforms()) != 4 {
		t.Error("expected empty filter to keep every platform")
	}
}
