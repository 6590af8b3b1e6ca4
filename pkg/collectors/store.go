package collectors

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/yair/merchpulse/pkg/domain"
)

// Store is the SQL-backed domain.Store. Repositories returned directly from
// the Store run in autocommit mode; WithTx hands out transaction-bound ones.
type Store struct {
	*repoSet
	db      *sql.DB
	dialect Dialect
}

func NewStore(db *sql.DB, dialect Dialect) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	s := &Store{
		repoSet: newRepoSet(conn{q: db, dialect: dialect}),
		db:      db,
		dialect: dialect,
	}
	if err := s.createTables(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) WithTx(ctx context.Context, fn func(domain.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newRepoSet(conn{q: tx, dialect: s.dialect})); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("[store] rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type repoSet struct {
	artists   *ArtistRepository
	venues    *VenueRepository
	events    *EventRepository
	snapshots *SnapshotRepository
	products  *ProductRepository
	logs      *ScrapingLogRepository
}

func newRepoSet(c conn) *repoSet {
	return &repoSet{
		artists:   &ArtistRepository{conn: c},
		venues:    &VenueRepository{conn: c},
		events:    &EventRepository{conn: c},
		snapshots: &SnapshotRepository{conn: c},
		products:  &ProductRepository{conn: c},
		logs:      &ScrapingLogRepository{conn: c},
	}
}

func (r *repoSet) Artists() domain.ArtistRepository           { return r.artists }
func (r *repoSet) Venues() domain.VenueRepository             { return r.venues }
func (r *repoSet) Events() domain.EventRepository             { return r.events }
func (r *repoSet) Snapshots() domain.SnapshotRepository       { return r.snapshots }
func (r *repoSet) Products() domain.ProductRepository         { return r.products }
func (r *repoSet) ScrapingLogs() domain.ScrapingLogRepository { return r.logs }
