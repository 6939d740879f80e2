package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bamit99/whatsapp-bot/internal/store"
)

type triggerStore struct {
	db *sql.DB
}

// ActiveTriggers returns active rules in creation order (evaluation order).
func (s *triggerStore) ActiveTriggers(ctx context.Context) ([]store.TriggerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT keyword, response, match, case_sensitive, active, created_at
		 FROM triggers WHERE active = 1 ORDER BY created_at, keyword`)
	if err != nil {
		return nil, fmt.Errorf("query triggers: %w", err)
	}
	defer rows.Close()

	var out []store.TriggerRecord
	for rows.Next() {
		var rec store.TriggerRecord
		var caseSensitive, active int
		var createdAt int64
		if err := rows.Scan(&rec.Keyword, &rec.Response, &rec.Match, &caseSensitive, &active, &createdAt); err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		rec.CaseSensitive = caseSensitive != 0
		rec.Active = active != 0
		rec.CreatedAt = time.Unix(0, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AddTrigger stores created_at at nanosecond resolution so rules added in
// the same second keep their evaluation order across reloads.
func (s *triggerStore) AddTrigger(ctx context.Context, rec store.TriggerRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO triggers (keyword, response, match, case_sensitive, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Keyword, rec.Response, rec.Match, boolToInt(rec.CaseSensitive),
		boolToInt(rec.Active), rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		// The driver has no typed constraint error to match on.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrDuplicateTrigger
		}
		return fmt.Errorf("insert trigger: %w", err)
	}
	return nil
}

func (s *triggerStore) RemoveTrigger(ctx context.Context, keyword string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM triggers WHERE keyword = ?`, keyword)
	if err != nil {
		return fmt.Errorf("delete trigger: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("trigger %q not found", keyword)
	}
	return nil
}
