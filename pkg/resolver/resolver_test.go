package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yair/merchpulse/pkg/collectors"
)

func setupTestStore(t *testing.T) *collectors.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resolver.db")

	db, err := collectors.NewSQLiteDB(path)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.Remove(path)
	})

	store, err := collectors.NewStore(db, collectors.DialectSQLite)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestResolveArtist(t *testing.T) {
	store := setupTestStore(t)
	r := New(store)
	ctx := context.Background()

	t.Run("name variants resolve to one artist", func(t *testing.T) {
		first, err := r.ResolveArtist(ctx, "AC/DC", "AC/DC Power Up Tour")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if first == nil {
			t.Fatal("expected artist, got nil")
		}
		if first.NormalizedName != "acdc" {
			t.Errorf("expected key acdc, got %s", first.NormalizedName)
		}
		if first.Genre != "rock" {
			t.Errorf("expected genre rock, got %s", first.Genre)
		}

		for _, variant := range []string{"ac dc", "AC-DC", "  AC/DC (Live)  "} {
			again, err := r.ResolveArtist(ctx, variant, "anything at all")
			if err != nil {
				t.Fatalf("expected no error for %q, got %v", variant, err)
			}
			if again.ID != first.ID {
				t.Errorf("%q resolved to a different artist", variant)
			}
			if again.Genre != "rock" {
				t.Errorf("genre should not be recomputed, got %s", again.Genre)
			}
		}

		all, err := store.Artists().List(ctx, 10)
		if err != nil {
			t.Fatalf("failed to list artists: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("expected 1 artist row, got %d", len(all))
		}
	})

	t.Run("empty names resolve to nothing", func(t *testing.T) {
		for _, name := range []string{"", "   ", "!!!", "()"} {
			artist, err := r.ResolveArtist(ctx, name, "title")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if artist != nil {
				t.Errorf("expected nil artist for %q", name)
			}
		}
	})

	t.Run("accented names fold", func(t *testing.T) {
		a, err := r.ResolveArtist(ctx, "Matuê", "Matuê 333 Tour")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		b, err := r.ResolveArtist(ctx, "matue", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if a.ID != b.ID {
			t.Error("expected accent-insensitive resolution")
		}
		if a.Genre != "rap" {
			t.Errorf("expected rap, got %s", a.Genre)
		}
	})
}

func TestResolveVenue(t *testing.T) {
	store := setupTestStore(t)
	r := New(store)
	ctx := context.Background()

	t.Run("lookup or create by name and city", func(t *testing.T) {
		v1, err := r.ResolveVenue(ctx, "Allianz Parque", "São Paulo", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if v1.State != "SP" {
			t.Errorf("expected state guessed as SP, got %q", v1.State)
		}

		v2, err := r.ResolveVenue(ctx, " Allianz  Parque ", "São Paulo", "SP")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if v1.ID != v2.ID {
			t.Error("expected the same venue")
		}

		other, err := r.ResolveVenue(ctx, "Allianz Parque", "Rio de Janeiro", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if other.ID == v1.ID {
			t.Error("same name in another city must be a different venue")
		}
	})

	t.Run("placeholders", func(t *testing.T) {
		v, err := r.ResolveVenue(ctx, "", "Curitiba", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if v.Name != UnknownPlaceholder || v.City != "Curitiba" {
			t.Errorf("unexpected venue %+v", v)
		}

		again, err := r.ResolveVenue(ctx, "", "Curitiba", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if again.ID != v.ID {
			t.Error("placeholder venues must resolve idempotently")
		}

		v, err = r.ResolveVenue(ctx, "Espaço Unimed", "", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if v.City != UnknownPlaceholder {
			t.Errorf("expected Unknown city, got %q", v.City)
		}
	})

	t.Run("nothing known", func(t *testing.T) {
		v, err := r.ResolveVenue(ctx, "", "", "SP")
		if err != nil || v != nil {
			t.Errorf("expected nil venue and no error, got %v, %v", v, err)
		}
	})
}
