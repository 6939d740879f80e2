// Package sqlite implements the storage interfaces on an embedded SQLite
// database (standalone mode). The schema is created at open so the bot runs
// without a separate migration step.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/bamit99/whatsapp-bot/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	sender_id       TEXT NOT NULL,
	sender_name     TEXT NOT NULL DEFAULT '',
	kind            TEXT NOT NULL,
	text            TEXT NOT NULL DEFAULT '',
	media_url       TEXT NOT NULL DEFAULT '',
	media_mime      TEXT NOT NULL DEFAULT '',
	is_group        INTEGER NOT NULL DEFAULT 0,
	reply_to_id     TEXT NOT NULL DEFAULT '',
	ts              INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);
CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	first_seen    INTEGER NOT NULL,
	last_activity INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS triggers (
	keyword        TEXT PRIMARY KEY,
	response       TEXT NOT NULL,
	match          TEXT NOT NULL,
	case_sensitive INTEGER NOT NULL DEFAULT 0,
	active         INTEGER NOT NULL DEFAULT 1,
	created_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS logs (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	level   TEXT NOT NULL,
	message TEXT NOT NULL,
	context TEXT NOT NULL DEFAULT '{}',
	ts      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS data_points (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	kind       TEXT NOT NULL,
	value      TEXT NOT NULL,
	source_id  TEXT NOT NULL,
	message_id TEXT NOT NULL,
	ts         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_data_points_kind ON data_points(kind);

CREATE TABLE IF NOT EXISTS spam_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id  TEXT NOT NULL,
	message_id TEXT NOT NULL,
	reason     TEXT NOT NULL,
	severity   TEXT NOT NULL,
	action     TEXT NOT NULL,
	violations TEXT NOT NULL DEFAULT '[]',
	ts         INTEGER NOT NULL
);
`

// NewStores opens (creating if needed) the SQLite database at path and
// returns the full store set backed by it.
func NewStores(path string) (*store.Stores, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// modernc sqlite serializes writes; one connection avoids SQLITE_BUSY
	// under concurrent pipeline and HTTP access.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &store.Stores{
		Messages: &messageStore{db: db},
		Users:    &userStore{db: db},
		Triggers: &triggerStore{db: db},
		Logs:     &logStore{db: db},
		Data:     &dataStore{db: db},
		Spam:     &spamStore{db: db},
	}
	s.SetCloser(db.Close)
	return s, nil
}
