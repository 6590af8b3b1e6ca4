package collectors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yair/merchpulse/pkg/domain"
)

// SnapshotRepository is append-only: snapshots are never updated or deleted.
type SnapshotRepository struct {
	conn
}

const snapshotColumns = `id, event_id, seq, ticket_status, estimated_audience, ticket_price_min, ticket_price_max, snapshot_at`

func (r *SnapshotRepository) Append(ctx context.Context, snapshot *domain.EventSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if snapshot.EventID == "" {
		return domain.ValidationError{Field: "event_id", Message: "is required"}
	}

	var last int
	err := r.queryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM event_snapshots WHERE event_id = ?`, snapshot.EventID).Scan(&last)
	if err != nil {
		return fmt.Errorf("failed to read snapshot sequence: %w", err)
	}

	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.SnapshotAt.IsZero() {
		snapshot.SnapshotAt = time.Now().UTC()
	}
	snapshot.Seq = last + 1

	query := `INSERT INTO event_snapshots (` + snapshotColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.exec(ctx, query,
		snapshot.ID,
		snapshot.EventID,
		snapshot.Seq,
		string(snapshot.TicketStatus),
		nullInt(snapshot.EstimatedAudience),
		nullFloat(snapshot.TicketPriceMin),
		nullFloat(snapshot.TicketPriceMax),
		utc(snapshot.SnapshotAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) Latest(ctx context.Context, eventID string) (*domain.EventSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM event_snapshots WHERE event_id = ? ORDER BY seq DESC LIMIT 1`

	snapshot, err := scanSnapshot(r.queryRow(ctx, query, eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return snapshot, nil
}

// ListByEvent returns the event's history ordered by capture time, oldest first.
func (r *SnapshotRepository) ListByEvent(ctx context.Context, eventID string) ([]domain.EventSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM event_snapshots WHERE event_id = ? ORDER BY snapshot_at ASC, seq ASC`

	rows, err := r.query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []domain.EventSnapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, *snapshot)
	}
	return snapshots, rows.Err()
}

func scanSnapshot(row rowScanner) (*domain.EventSnapshot, error) {
	var snapshot domain.EventSnapshot
	var status string
	var audience sql.NullInt64
	var priceMin, priceMax sql.NullFloat64

	err := row.Scan(
		&snapshot.ID,
		&snapshot.EventID,
		&snapshot.Seq,
		&status,
		&audience,
		&priceMin,
		&priceMax,
		&snapshot.SnapshotAt,
	)
	if err != nil {
		return nil, err
	}

	snapshot.TicketStatus = domain.TicketStatus(status)
	snapshot.EstimatedAudience = intPtr(audience)
	snapshot.TicketPriceMin = floatPtr(priceMin)
	snapshot.TicketPriceMax = floatPtr(priceMax)
	return &snapshot, nil
}
