package db

import (
	"database/sql"
	"fmt"
)

// Base schema for the local adapter. Snowflake IDs, no AUTOINCREMENT.
const baseSchema = `
CREATE TABLE IF NOT EXISTS channels (
  uid TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  sort INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS feeds (
  id INTEGER PRIMARY KEY,
  channel_uid TEXT NOT NULL,
  url TEXT NOT NULL,
  name TEXT,
  photo TEXT,
  site_url TEXT,
  etag TEXT,
  last_modified TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  UNIQUE (channel_uid, url),
  FOREIGN KEY (channel_uid) REFERENCES channels(uid) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_feeds_channel_uid ON feeds(channel_uid);
CREATE INDEX IF NOT EXISTS idx_feeds_url ON feeds(url);

CREATE TABLE IF NOT EXISTS entries (
  id INTEGER PRIMARY KEY,
  uid TEXT NOT NULL,
  feed_id INTEGER NOT NULL,
  channel_uid TEXT NOT NULL,
  url TEXT,
  name TEXT,
  content_html TEXT,
  content_text TEXT,
  author_name TEXT,
  author_url TEXT,
  author_photo TEXT,
  photo TEXT,
  published TEXT,
  is_read INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  UNIQUE (channel_uid, uid),
  FOREIGN KEY (feed_id) REFERENCES feeds(id) ON DELETE CASCADE,
  FOREIGN KEY (channel_uid) REFERENCES channels(uid) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_entries_channel_published ON entries(channel_uid, published);
CREATE INDEX IF NOT EXISTS idx_entries_read ON entries(channel_uid, is_read);

CREATE TABLE IF NOT EXISTS feed_filters (
  id INTEGER PRIMARY KEY,
  channel_uid TEXT NOT NULL,
  url TEXT NOT NULL,
  kind TEXT NOT NULL,
  created_at TEXT NOT NULL,
  UNIQUE (channel_uid, url, kind),
  FOREIGN KEY (channel_uid) REFERENCES channels(uid) ON DELETE CASCADE
);
`

// Migrate applies the base schema and incremental migrations.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(baseSchema); err != nil {
		return fmt.Errorf("apply base schema: %w", err)
	}

	// Migration 1: site_url column on feeds predates some deployments.
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info('feeds') WHERE name = 'site_url'
	`).Scan(&count)
	if err != nil {
		return fmt.Errorf("check site_url column: %w", err)
	}
	if count == 0 {
		if _, err := db.Exec(`ALTER TABLE feeds ADD COLUMN site_url TEXT`); err != nil {
			return fmt.Errorf("add site_url column: %w", err)
		}
	}

	return nil
}
