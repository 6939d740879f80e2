package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bamit99/whatsapp-bot/internal/store"
)

type messageStore struct {
	db *sql.DB
}

// SaveMessage inserts the record, silently ignoring a duplicate message id
// so redelivery from the transport cannot duplicate rows.
func (s *messageStore) SaveMessage(ctx context.Context, rec store.MessageRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO messages
		 (id, conversation_id, sender_id, sender_name, kind, text, media_url, media_mime, is_group, reply_to_id, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ConversationID, rec.SenderID, rec.SenderName, rec.Kind,
		rec.Text, rec.MediaURL, rec.MediaMime, boolToInt(rec.IsGroup),
		rec.ReplyToID, rec.Timestamp.Unix(),
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

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
