package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// FeedStatus is the outcome of the most recent fetch of one feed.
type FeedStatus struct {
	FeedID        string     `json:"feedId"`
	Endpoint      string     `json:"endpoint"`
	LastAttemptAt time.Time  `json:"lastAttemptAt"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
	EntityCount   int        `json:"entityCount"`
	NyctVersion   string     `json:"nyctVersion,omitempty"`
}

// RecordFeedStatus upserts s. A failed attempt (nil LastSuccessAt) keeps the
// previous success time, entity count and version.
func (db *DB) RecordFeedStatus(ctx context.Context, s FeedStatus) error {
	var success sql.NullInt64
	if s.LastSuccessAt != nil {
		success = sql.NullInt64{Int64: s.LastSuccessAt.Unix(), Valid: true}
	}

	_, err := db.ExecContext(ctx, db.rebind(`
		INSERT INTO feed_status
			(feed_id, endpoint, last_attempt_at, last_success_at, last_error, entity_count, nyct_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (feed_id) DO UPDATE SET
			endpoint        = excluded.endpoint,
			last_attempt_at = excluded.last_attempt_at,
			last_error      = excluded.last_error,
			last_success_at = COALESCE(excluded.last_success_at, feed_status.last_success_at),
			entity_count    = CASE WHEN excluded.last_success_at IS NULL
				THEN feed_status.entity_count ELSE excluded.entity_count END,
			nyct_version    = CASE WHEN excluded.last_success_at IS NULL
				THEN feed_status.nyct_version ELSE excluded.nyct_version END`),
		s.FeedID, s.Endpoint, s.LastAttemptAt.Unix(), success, s.LastError, s.EntityCount, s.NyctVersion,
	)
	if err != nil {
		return fmt.Errorf("record feed status %s: %w", s.FeedID, err)
	}
	return nil
}

// FeedStatuses returns every recorded feed ordered by feed id.
func (db *DB) FeedStatuses(ctx context.Context) ([]FeedStatus, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT feed_id, endpoint, last_attempt_at, last_success_at, last_error, entity_count, nyct_version
		FROM feed_status
		ORDER BY feed_id`)
	if err != nil {
		return nil, fmt.Errorf("query feed status: %w", err)
	}
	defer rows.Close()

	var out []FeedStatus
	for rows.Next() {
		var (
			s       FeedStatus
			attempt int64
			success sql.NullInt64
		)
		if err := rows.Scan(&s.FeedID, &s.Endpoint, &attempt, &success, &s.LastError, &s.EntityCount, &s.NyctVersion); err != nil {
			return nil, fmt.Errorf("scan feed status: %w", err)
		}
		s.LastAttemptAt = time.Unix(attempt, 0).UTC()
		if success.Valid {
			t := time.Unix(success.Int64, 0).UTC()
			s.LastSuccessAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
