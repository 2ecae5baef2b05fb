package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/healthwatch/internal/domain"
	"github.com/hamed0406/healthwatch/internal/repo"
)

var _ repo.CheckStore = (*Store)(nil)
var _ repo.AlertStore = (*Store)(nil)

// Schema is applied by EnsureSchema; every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS health_checks (
  id          BIGSERIAL PRIMARY KEY,
  target      TEXT NOT NULL,
  up          BOOLEAN NOT NULL,
  kind        TEXT NOT NULL DEFAULT '',
  http_status INTEGER NULL,
  latency_ms  DOUBLE PRECISION NULL,
  message     TEXT NOT NULL DEFAULT '',
  retry_count INTEGER NOT NULL DEFAULT 0,
  checked_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_health_checks_checked_at ON health_checks (checked_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS alerts (
  key          TEXT PRIMARY KEY,
  last_down    BOOLEAN NOT NULL,
  last_sent_at TIMESTAMPTZ NULL
);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.log.Info("postgres_schema_ready")
	return nil
}

// ---- CheckStore ----

func (s *Store) Append(ctx context.Context, r *domain.CheckRecord) error {
	if r.CheckedAt.IsZero() {
		r.CheckedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO health_checks
		   (target, up, kind, http_status, latency_ms, message, retry_count, checked_at)
		 VALUES
		   ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		r.Target, r.Up, string(r.Kind), r.HTTPStatus, r.LatencyMS, r.Message, int64(r.RetryCount), r.CheckedAt,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("insert check: %w", err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]domain.CheckRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, target, up, kind, http_status, latency_ms, message, retry_count, checked_at
  FROM health_checks
 ORDER BY checked_at DESC, id DESC
 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent checks: %w", err)
	}
	defer rows.Close()

	var out []domain.CheckRecord
	for rows.Next() {
		var (
			r        domain.CheckRecord
			kind     string
			httpNull sql.NullInt32
			latNull  sql.NullFloat64
			retries  int64
		)
		if err := rows.Scan(&r.ID, &r.Target, &r.Up, &kind, &httpNull, &latNull, &r.Message, &retries, &r.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		r.Kind = domain.ErrorKind(kind)
		r.RetryCount = uint(retries)
		if httpNull.Valid {
			v := int(httpNull.Int32)
			r.HTTPStatus = &v
		}
		if latNull.Valid {
			v := latNull.Float64
			r.LatencyMS = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
