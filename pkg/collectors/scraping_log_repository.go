package collectors

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/yair/merchpulse/pkg/domain"
)

type ScrapingLogRepository struct {
	conn
}

func (r *ScrapingLogRepository) Create(ctx context.Context, entry *domain.ScrapingLog) error {
	if entry == nil {
		return fmt.Errorf("scraping log cannot be nil")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	query := `
	INSERT INTO scraping_logs (id, platform, status, items_found, items_new, items_updated,
		error_message, duration_seconds, started_at, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.exec(ctx, query,
		entry.ID,
		entry.Platform,
		string(entry.Status),
		entry.ItemsFound,
		entry.ItemsNew,
		entry.ItemsUpdated,
		nullString(entry.ErrorMessage),
		entry.DurationSeconds,
		utc(entry.StartedAt),
		nullTime(entry.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create scraping log: %w", err)
	}
	return nil
}

// List returns the newest runs first, optionally restricted to one platform.
func (r *ScrapingLogRepository) List(ctx context.Context, platform string, limit int) ([]domain.ScrapingLog, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
	SELECT id, platform, status, items_found, items_new, items_updated, error_message,
		duration_seconds, started_at, completed_at
	FROM scraping_logs`
	var args []any
	if platform != "" {
		query += ` WHERE platform = ?`
		args = append(args, platform)
	}
	query += ` ORDER BY started_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scraping logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.ScrapingLog
	for rows.Next() {
		var entry domain.ScrapingLog
		var status string
		var errMsg sql.NullString
		var completed sql.NullTime

		if err := rows.Scan(
			&entry.ID,
			&entry.Platform,
			&status,
			&entry.ItemsFound,
			&entry.ItemsNew,
			&entry.ItemsUpdated,
			&errMsg,
			&entry.DurationSeconds,
			&entry.StartedAt,
			&completed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scraping log: %w", err)
		}

		entry.Status = domain.RunStatus(status)
		entry.ErrorMessage = errMsg.String
		entry.CompletedAt = timePtr(completed)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
