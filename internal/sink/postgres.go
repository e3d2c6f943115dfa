package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ytcollect/storage"
)

// PostgresSink stores snapshots in a PostgreSQL table.
type PostgresSink struct {
	pool  *pgxpool.Pool
	table string
}

// OpenPostgres connects to databaseURL and creates the snapshot table.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	config.MaxConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresSink{pool: pool, table: "ytcollect_snapshots"}
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+s.table+` (
			name TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			data BYTEA NOT NULL
		)`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create snapshot table: %w", err)
	}
	return s, nil
}

// Put inserts a new snapshot row.
func (s *PostgresSink) Put(ctx context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.table+` (name, data) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		name, data)
	if err != nil {
		return &storage.StorageError{Op: "put", Entity: "snapshot", ID: name, Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &storage.StorageError{Op: "put", Entity: "snapshot", ID: name, Err: storage.ErrAlreadyExists}
	}
	return nil
}

// Latest returns the row with the greatest name.
func (s *PostgresSink) Latest(ctx context.Context) (string, []byte, error) {
	var (
		name string
		data []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT name, data FROM `+s.table+` ORDER BY name DESC LIMIT 1`).Scan(&name, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, storage.ErrNotFound
	}
	if err != nil {
		return "", nil, &storage.StorageError{Op: "latest", Entity: "snapshot", Err: err}
	}
	return name, data, nil
}

// Close closes the pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
