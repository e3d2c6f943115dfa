package sink

import (
	"context"
	"fmt"
	"path/filepath"

	"ytcollect/storage"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendRedis    = "redis"
)

// Backends lists every supported backend.
var Backends = []string{BackendFile, BackendSQLite, BackendPostgres, BackendMongo, BackendRedis}

// Config selects and addresses a snapshot backend.
type Config struct {
	// Backend is one of Backends.
	Backend string
	// Dir is the snapshot directory for the file backend and the default
	// location of the SQLite database.
	Dir string
	// DSN is the database path or connection URL for the other backends.
	DSN string
	// Database is the MongoDB database name.
	Database string
}

// Open returns the sink described by cfg.
func Open(ctx context.Context, cfg Config) (storage.SnapshotSink, error) {
	switch cfg.Backend {
	case "", BackendFile:
		return NewFileSink(cfg.Dir)
	case BackendSQLite:
		path := cfg.DSN
		if path == "" {
			path = filepath.Join(cfg.Dir, "channels.db")
		}
		return OpenSQLite(ctx, path)
	case BackendPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres backend requires a DSN")
		}
		return OpenPostgres(ctx, cfg.DSN)
	case BackendMongo:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("mongo backend requires a DSN")
		}
		return OpenMongo(ctx, cfg.DSN, cfg.Database)
	case BackendRedis:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("redis backend requires a DSN")
		}
		return OpenRedis(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}
