package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bamit99/whatsapp-bot/internal/store"
)

type messageStore struct {
	db *sql.DB
}

func (s *messageStore) SaveMessage(ctx context.Context, rec store.MessageRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages
		 (id, conversation_id, sender_id, sender_name, kind, text, media_url, media_mime, is_group, reply_to_id, ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.ConversationID, rec.SenderID, rec.SenderName, rec.Kind,
		rec.Text, rec.MediaURL, rec.MediaMime, rec.IsGroup, rec.ReplyToID, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *messageStore) CountMessages(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

type userStore struct {
	db *sql.DB
}

func (s *userStore) UpsertUser(ctx context.Context, id, name string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, first_seen, last_activity)
		 VALUES ($1, $2, $3, $3)
		 ON CONFLICT (id) DO UPDATE SET
		   name = CASE WHEN EXCLUDED.name != '' THEN EXCLUDED.name ELSE users.name END`,
		id, name, now,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *userStore) TouchActivity(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_activity = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("touch user activity: %w", err)
	}
	return nil
}

func (s *userStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
