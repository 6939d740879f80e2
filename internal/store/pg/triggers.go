package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bamit99/whatsapp-bot/internal/store"
)

type triggerStore struct {
	db *sql.DB
}

func (s *triggerStore) ActiveTriggers(ctx context.Context) ([]store.TriggerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT keyword, response, match, case_sensitive, active, created_at
		 FROM triggers WHERE active ORDER BY created_at, keyword`)
	if err != nil {
		return nil, fmt.Errorf("query triggers: %w", err)
	}
	defer rows.Close()

	var out []store.TriggerRecord
	for rows.Next() {
		var rec store.TriggerRecord
		if err := rows.Scan(&rec.Keyword, &rec.Response, &rec.Match, &rec.CaseSensitive, &rec.Active, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *triggerStore) AddTrigger(ctx context.Context, rec store.TriggerRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO triggers (keyword, response, match, case_sensitive, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.Keyword, rec.Response, rec.Match, rec.CaseSensitive, rec.Active, rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return store.ErrDuplicateTrigger
		}
		return fmt.Errorf("insert trigger: %w", err)
	}
	return nil
}

func (s *triggerStore) RemoveTrigger(ctx context.Context, keyword string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM triggers WHERE keyword = $1`, keyword)
	if err != nil {
		return fmt.Errorf("delete trigger: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("trigger %q not found", keyword)
	}
	return nil
}
