package storage

import "fmt"

// migrate creates the schema if it doesn't exist.
func (db *DB) migrate() error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	db.logger.Info("database migrations applied")
	return nil
}

// Times are unix seconds so the schema is the same on both drivers.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS feed_status (
		feed_id         TEXT PRIMARY KEY,
		endpoint        TEXT NOT NULL,
		last_attempt_at BIGINT NOT NULL,
		last_success_at BIGINT,
		last_error      TEXT NOT NULL DEFAULT '',
		entity_count    INTEGER NOT NULL DEFAULT 0,
		nyct_version    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_feed_status_attempt ON feed_status(last_attempt_at)`,
}
