package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hamed0406/healthwatch/internal/repo"
)

func (s *Store) Get(ctx context.Context, key string) (*repo.AlertRecord, error) {
	const q = `SELECT last_down, last_sent_at FROM alerts WHERE key=$1`
	var r repo.AlertRecord
	r.Key = key
	var lastSent *time.Time
	err := s.pool.QueryRow(ctx, q, key).Scan(&r.LastDown, &lastSent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}
	r.LastSentAt = lastSent
	return &r, nil
}

func (s *Store) Set(ctx context.Context, key string, lastDown bool, sentAt time.Time) error {
	const q = `
		INSERT INTO alerts (key, last_down, last_sent_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (key)
		DO UPDATE SET last_down=EXCLUDED.last_down,
		              last_sent_at=COALESCE(EXCLUDED.last_sent_at, alerts.last_sent_at)
	`
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	if _, err := s.pool.Exec(ctx, q, key, lastDown, ts); err != nil {
		return fmt.Errorf("set alert: %w", err)
	}
	return nil
}
