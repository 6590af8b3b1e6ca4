package collectors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yair/merchpulse/pkg/domain"
)

func TestProductRepository(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	repo := store.Products()

	products := []*domain.MarketplaceProduct{
		{Title: "Camiseta AC/DC Back in Black", ProductURL: "https://shopee.com.br/a-i.1.10", ExternalID: "10", Platform: "shopee", Price: 59.9, SoldCount: 1200, Rating: domain.Ptr(4.8), RelatedArtist: "AC/DC", Category: "camiseta_banda"},
		{Title: "Camiseta Metallica", ProductURL: "https://shopee.com.br/b-i.1.11", ExternalID: "11", Platform: "shopee", Price: 39.9, SoldCount: 300, RelatedArtist: "Metallica", Category: "camiseta_banda"},
		{Title: "Camiseta Lollapalooza", ProductURL: "https://shopee.com.br/c-i.1.12", ExternalID: "12", Platform: "shopee", Price: 79.9, SoldCount: 50, Rating: domain.Ptr(4.1), Category: "camiseta_festival"},
	}
	for _, p := range products {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("failed to create product: %v", err)
		}
	}

	t.Run("duplicate url", func(t *testing.T) {
		dup := &domain.MarketplaceProduct{Title: "dup", ProductURL: products[0].ProductURL, Platform: "shopee", Price: 10}
		if err := repo.Create(ctx, dup); !errors.Is(err, domain.ErrDuplicateProduct) {
			t.Errorf("expected ErrDuplicateProduct, got %v", err)
		}
	})

	t.Run("missing url", func(t *testing.T) {
		err := repo.Create(ctx, &domain.MarketplaceProduct{Title: "x", Price: 10})
		var vErr domain.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})

	t.Run("lookup by external id is platform scoped", func(t *testing.T) {
		got, err := repo.GetByExternalID(ctx, "10", "shopee")
		if err != nil {
			t.Fatalf("expected product, got %v", err)
		}
		if got.ID != products[0].ID {
			t.Errorf("expected %s, got %s", products[0].ID, got.ID)
		}
		if _, err := repo.GetByExternalID(ctx, "10", "mercadolivre"); !errors.Is(err, domain.ErrProductNotFound) {
			t.Errorf("expected ErrProductNotFound, got %v", err)
		}
		if _, err := repo.GetByExternalID(ctx, "", "shopee"); !errors.Is(err, domain.ErrProductNotFound) {
			t.Errorf("expected ErrProductNotFound for empty id, got %v", err)
		}
	})

	t.Run("update metrics", func(t *testing.T) {
		p, err := repo.GetByURL(ctx, products[1].ProductURL)
		if err != nil {
			t.Fatalf("failed to get by url: %v", err)
		}
		p.Price = 44.9
		p.SoldCount = 450
		p.Rating = domain.Ptr(4.5)
		if err := repo.UpdateMetrics(ctx, p); err != nil {
			t.Fatalf("failed to update: %v", err)
		}

		got, err := repo.GetByURL(ctx, products[1].ProductURL)
		if err != nil {
			t.Fatalf("failed to get by url: %v", err)
		}
		if got.Price != 44.9 || got.SoldCount != 450 || got.Rating == nil || *got.Rating != 4.5 {
			t.Errorf("metrics not updated: %+v", got)
		}
		if got.RelatedArtist != "Metallica" {
			t.Errorf("expected related artist to be kept, got %q", got.RelatedArtist)
		}

		if err := repo.UpdateMetrics(ctx, &domain.MarketplaceProduct{ID: "missing"}); !errors.Is(err, domain.ErrProductNotFound) {
			t.Errorf("expected ErrProductNotFound, got %v", err)
		}
	})

	t.Run("list filters and sorts", func(t *testing.T) {
		list, total, err := repo.List(ctx, domain.ProductFilter{Category: "banda", SortBy: "price_asc"})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if total != 2 || len(list) != 2 {
			t.Fatalf("expected 2 band shirts, got %d", total)
		}
		if list[0].Price > list[1].Price {
			t.Error("expected ascending price order")
		}

		minSold := 100
		list, total, err = repo.List(ctx, domain.ProductFilter{MinSold: &minSold})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if total != 2 || list[0].SoldCount < list[1].SoldCount {
			t.Errorf("expected 2 products sorted by sold desc, got %d", total)
		}

		list, _, err = repo.List(ctx, domain.ProductFilter{Search: "lolla"})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(list) != 1 || list[0].Category != "camiseta_festival" {
			t.Errorf("expected the festival shirt, got %d results", len(list))
		}
	})

	t.Run("all", func(t *testing.T) {
		all, err := repo.All(ctx)
		if err != nil {
			t.Fatalf("all failed: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 products, got %d", len(all))
		}
	})
}

func TestScrapingLogRepository(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	repo := store.ScrapingLogs()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	entries := []domain.ScrapingLog{
		{Platform: "sympla", Status: domain.RunSuccess, ItemsFound: 10, ItemsNew: 4, StartedAt: base},
		{Platform: "eventim", Status: domain.RunFailed, ErrorMessage: "timeout", StartedAt: base.Add(time.Minute)},
		{Platform: "sympla", Status: domain.RunPartial, ItemsFound: 3, StartedAt: base.Add(2 * time.Minute)},
	}
	for i := range entries {
		done := entries[i].StartedAt.Add(30 * time.Second)
		entries[i].CompletedAt = &done
		entries[i].DurationSeconds = 30
		if err := repo.Create(ctx, &entries[i]); err != nil {
			t.Fatalf("failed to create log: %v", err)
		}
	}

	logs, err := repo.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 logs, got %d", len(logs))
	}
	if logs[0].Status != domain.RunPartial {
		t.Errorf("expected newest first, got %s", logs[0].Status)
	}

	logs, err = repo.List(ctx, "eventim", 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(logs) != 1 || logs[0].ErrorMessage != "timeout" || logs[0].CompletedAt == nil {
		t.Errorf("unexpected eventim logs: %+v", logs)
	}
}

func TestStore_WithTx(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		err := store.WithTx(ctx, func(repos domain.Repositories) error {
			return repos.Artists().Create(ctx, &domain.Artist{Name: "Pitty", NormalizedName: "pitty"})
		})
		if err != nil {
			t.Fatalf("expected commit, got %v", err)
		}
		if _, err := store.Artists().GetByNormalizedName(ctx, "pitty"); err != nil {
			t.Errorf("expected committed artist, got %v", err)
		}
	})

	t.Run("rollback", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.WithTx(ctx, func(repos domain.Repositories) error {
			if err := repos.Artists().Create(ctx, &domain.Artist{Name: "Matanza", NormalizedName: "matanza"}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if _, err := store.Artists().GetByNormalizedName(ctx, "matanza"); !errors.Is(err, domain.ErrArtistNotFound) {
			t.Errorf("expected rolled back artist to be absent, got %v", err)
		}
	})

	t.Run("panic rolls back", func(t *testing.T) {
		func() {
			defer func() {
				if recover() == nil {
					t.Error("expected panic to propagate")
				}
			}()
			store.WithTx(ctx, func(repos domain.Repositories) error {
				repos.Artists().Create(ctx, &domain.Artist{Name: "Ira!", NormalizedName: "ira"})
				panic("fail")
			})
		}()
		if _, err := store.Artists().GetByNormalizedName(ctx, "ira"); !errors.Is(err, domain.ErrArtistNotFound) {
			t.Errorf("expected artist to be absent after panic, got %v", err)
		}
	})
}
