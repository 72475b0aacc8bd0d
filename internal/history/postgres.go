package history

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore keeps history in the history_entries table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects and applies pending migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 4
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect history database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate history database: %w", err)
	}
	return nil
}

func (s *PostgresStore) Previous(ctx context.Context, key string) (Entry, bool, error) {
	const q = `SELECT id::text, run_id, key, recorded_at, averages
FROM history_entries WHERE key = $1 ORDER BY recorded_at DESC LIMIT 1`
	var (
		e   Entry
		raw []byte
	)
	err := s.pool.QueryRow(ctx, q, key).Scan(&e.ID, &e.RunID, &e.Key, &e.RecordedAt, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("query previous run: %w", err)
	}
	if err := json.Unmarshal(raw, &e.Averages); err != nil {
		return Entry{}, false, fmt.Errorf("decode stored averages: %w", err)
	}
	return e, true, nil
}

func (s *PostgresStore) Record(ctx context.Context, e Entry) error {
	raw, err := json.Marshal(e.Averages)
	if err != nil {
		return fmt.Errorf("encode averages: %w", err)
	}
	const q = `INSERT INTO history_entries (id, run_id, key, recorded_at, averages) VALUES ($1::uuid, $2, $3, $4, $5)`
	if _, err := s.pool.Exec(ctx, q, e.ID, e.RunID, e.Key, e.RecordedAt, raw); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Open returns a PostgresStore when dsn is set, otherwise a FileStore under dir.
func Open(ctx context.Context, dsn, dir string) (Store, error) {
	if dsn != "" {
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	return s, nil
}
