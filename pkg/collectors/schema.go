package collectors

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS artists (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		normalized_name TEXT NOT NULL UNIQUE,
		genre TEXT,
		popularity INTEGER NOT NULL DEFAULT 0,
		spotify_id TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS venues (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		city TEXT NOT NULL,
		state TEXT,
		capacity INTEGER,
		venue_type TEXT,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (name, city)
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		event_date TIMESTAMP NOT NULL,
		artist_id TEXT REFERENCES artists(id),
		venue_id TEXT REFERENCES venues(id),
		source_platform TEXT NOT NULL,
		source_url TEXT UNIQUE,
		external_id TEXT,
		ticket_status TEXT NOT NULL,
		estimated_audience INTEGER,
		ticket_price_min DOUBLE PRECISION,
		ticket_price_max DOUBLE PRECISION,
		event_type TEXT NOT NULL,
		is_festival BOOLEAN NOT NULL DEFAULT FALSE,
		headliners TEXT,
		hype_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		sales_potential_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		production_start_date TIMESTAMP,
		production_deadline TIMESTAMP,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		first_seen_at TIMESTAMP NOT NULL,
		last_scraped_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_event_date ON events(event_date)`,
	`CREATE INDEX IF NOT EXISTS idx_events_artist_id ON events(artist_id)`,
	`CREATE TABLE IF NOT EXISTS event_snapshots (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL REFERENCES events(id),
		seq INTEGER NOT NULL,
		ticket_status TEXT NOT NULL,
		estimated_audience INTEGER,
		ticket_price_min DOUBLE PRECISION,
		ticket_price_max DOUBLE PRECISION,
		snapshot_at TIMESTAMP NOT NULL,
		UNIQUE (event_id, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS marketplace_products (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		product_url TEXT NOT NULL UNIQUE,
		external_id TEXT,
		platform TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		original_price DOUBLE PRECISION,
		sold_count INTEGER NOT NULL DEFAULT 0,
		rating DOUBLE PRECISION,
		review_count INTEGER NOT NULL DEFAULT 0,
		seller_name TEXT,
		seller_location TEXT,
		category TEXT,
		related_artist TEXT,
		related_event TEXT,
		search_term TEXT,
		image_url TEXT,
		first_seen_at TIMESTAMP NOT NULL,
		last_scraped_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_external_id ON marketplace_products(external_id, platform)`,
	`CREATE INDEX IF NOT EXISTS idx_products_related_artist ON marketplace_products(related_artist)`,
	`CREATE TABLE IF NOT EXISTS scraping_logs (
		id TEXT PRIMARY KEY,
		platform TEXT NOT NULL,
		status TEXT NOT NULL,
		items_found INTEGER NOT NULL DEFAULT 0,
		items_new INTEGER NOT NULL DEFAULT 0,
		items_updated INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scraping_logs_platform ON scraping_logs(platform, started_at)`,
}

func (s *Store) createTables(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
