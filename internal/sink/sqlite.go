package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"ytcollect/storage"
)

// SQLiteSink stores snapshots as rows of a single SQLite table.
type SQLiteSink struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteSink, error) {
	if path == "" {
		return nil, &storage.StorageError{Op: "open", Entity: "sqlite", Err: storage.ErrInvalidInput}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteSink{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteSink) createTables(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS snapshots (
		name TEXT PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		data BLOB NOT NULL
	);`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Put inserts a new snapshot row.
func (s *SQLiteSink) Put(ctx context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (name, data) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, data)
	if err != nil {
		return &storage.StorageError{Op: "put", Entity: "snapshot", ID: name, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &storage.StorageError{Op: "put", Entity: "snapshot", ID: name, Err: err}
	}
	if n == 0 {
		return &storage.StorageError{Op: "put", Entity: "snapshot", ID: name, Err: storage.ErrAlreadyExists}
	}
	return nil
}

// Latest returns the row with the greatest name.
func (s *SQLiteSink) Latest(ctx context.Context) (string, []byte, error) {
	var (
		name string
		data []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, data FROM snapshots ORDER BY name DESC LIMIT 1`).Scan(&name, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, storage.ErrNotFound
	}
	if err != nil {
		return "", nil, &storage.StorageError{Op: "latest", Entity: "snapshot", Err: err}
	}
	return name, data, nil
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
