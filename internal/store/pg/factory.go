// Package pg implements the storage interfaces on Postgres (managed mode).
// Schema lives in migrations/ and is applied with the migrate command.
package pg

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/bamit99/whatsapp-bot/internal/store"
)

// OpenDB opens a pooled Postgres handle via the pgx stdlib driver.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewStores creates all stores backed by Postgres.
func NewStores(dsn string) (*store.Stores, error) {
	db, err := OpenDB(dsn)
	if err != nil {
		return nil, err
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
