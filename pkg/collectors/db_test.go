package collectors

import (
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestNewSQLiteDB(t *testing.T) {
	t.Run("successful creation", func(t *testing.T) {
		tempFile, err := os.CreateTemp("", "test-*.db")
		if err != nil {
			t.Fatalf("failed to create temp file: %v", err)
		}
		defer os.Remove(tempFile.Name())

		db, err := NewSQLiteDB(tempFile.Name())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer db.Close()

		if db == nil {
			t.Fatal("expected database connection, got nil")
		}

		err = db.Ping()
		if err != nil {
			t.Errorf("expected successful ping, got %v", err)
		}
	})

	t.Run("invalid path", func(t *testing.T) {
		_, err := NewSQLiteDB("/invalid/path/to/database.db")
		if err == nil {
			t.Error("expected error for invalid path")
		}
	})
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		driver  string
		want    Dialect
		wantErr bool
	}{
		{"", DialectSQLite, false},
		{"sqlite3", DialectSQLite, false},
		{"postgres", DialectPostgres, false},
		{"PGX", DialectPostgres, false},
		{"mysql", DialectSQLite, true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			got, err := ParseDialect(tt.driver)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDialect(%q) error = %v, wantErr %v", tt.driver, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDialect(%q) = %v, want %v", tt.driver, got, tt.want)
			}
		})
	}
}

func TestConn_Rebind(t *testing.T) {
	query := `SELECT id FROM events WHERE a = ? AND b = ? LIMIT ?`

	sqlite := conn{dialect: DialectSQLite}
	if got := sqlite.rebind(query); got != query {
		t.Errorf("sqlite rebind changed query: %s", got)
	}

	pg := conn{dialect: DialectPostgres}
	want := `SELECT id FROM events WHERE a = $1 AND b = $2 LIMIT $3`
	if got := pg.rebind(query); got != want {
		t.Errorf("postgres rebind = %s, want %s", got, want)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(errors.New("UNIQUE constraint failed: artists.normalized_name")) {
		t.Error("expected sqlite unique message to match")
	}
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("expected postgres 23505 to match")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("expected foreign key violation not to match")
	}
	if isUniqueViolation(nil) {
		t.Error("expected nil not to match")
	}
}
