package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bamit99/whatsapp-bot/internal/store"
)

type logStore struct {
	db *sql.DB
}

func (s *logStore) AppendLog(ctx context.Context, level, msg string, kv map[string]string) error {
	contextJSON := "{}"
	if len(kv) > 0 {
		if data, err := json.Marshal(kv); err == nil {
			contextJSON = string(data)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (level, message, context, ts) VALUES (?, ?, ?, ?)`,
		level, msg, contextJSON, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

type dataStore struct {
	db *sql.DB
}

func (s *dataStore) SaveDataPoint(ctx context.Context, dp store.DataPoint) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO data_points (kind, value, source_id, message_id, ts)
		 VALUES (?, ?, ?, ?, ?)`,
		dp.Kind, dp.Value, dp.SourceID, dp.MessageID, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert data point: %w", err)
	}
	return nil
}

func (s *dataStore) CountDataPoints(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM data_points`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count data points: %w", err)
	}
	return n, nil
}

type spamStore struct {
	db *sql.DB
}

func (s *spamStore) SaveSpamEvent(ctx context.Context, ev store.SpamEvent) error {
	violations := "[]"
	if len(ev.Violations) > 0 {
		if data, err := json.Marshal(ev.Violations); err == nil {
			violations = string(data)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO spam_events (source_id, message_id, reason, severity, action, violations, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.SourceID, ev.MessageID, ev.Reason, ev.Severity, ev.Action, violations, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert spam event: %w", err)
	}
	return nil
}

func (s *spamStore) CountSpamEvents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM spam_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count spam events: %w", err)
	}
	return n, nil
}
