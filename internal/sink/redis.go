package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ytcollect/storage"
)

// RedisSink stores each snapshot under its own key and keeps a sorted set
// of names so the newest one can be found without scanning.
type RedisSink struct {
	rdb    *redis.Client
	prefix string
}

// OpenRedis connects using a redis:// URL.
func OpenRedis(ctx context.Context, redisURL string) (*RedisSink, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis: connection failed: %w", err)
	}
	return &RedisSink{rdb: rdb, prefix: "ytcollect:"}, nil
}

func (s *RedisSink) indexKey() string { return s.prefix + "snapshots" }
func (s *RedisSink) snapshotKey(name string) string { return s.prefix + "snapshot:" + name }

// Put stores data only if the key does not exist yet, then indexes it. If
// indexing fails the key is removed again.
func (s *RedisSink) Put(ctx context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}

	ok, err := s.rdb.SetNX(ctx, s.snapshotKey(name), data, 0).Result()
	if err != nil {
		return &storage.StorageError{Op: "put", Entity: "snapshot", ID: name, Err: err}
	}
	if !ok {
		return &storage.StorageError{Op: "put", Entity: "snapshot", ID: name, Err: storage.ErrAlreadyExists}
	}

	// All members share score 0 so ZRANGE ... REV orders them by name.
	if err := s.rdb.ZAdd(ctx, s.indexKey(), redis.Z{Score: 0, Member: name}).Err(); err != nil {
		// An unindexed key is invisible to Latest and would make a retry
		// of the same name fail with ErrAlreadyExists.
		if derr := s.rdb.Del(context.WithoutCancel(ctx), s.snapshotKey(name)).Err(); derr != nil {
			err = errors.Join(err, fmt.Errorf("remove unindexed snapshot: %w", derr))
		}
		return &storage.StorageError{Op: "put", Entity: "snapshot_index", ID: name, Err: err}
	}
	return nil
}

// Latest returns the lexically greatest indexed snapshot.
func (s *RedisSink) Latest(ctx context.Context) (string, []byte, error) {
	names, err := s.rdb.ZRevRange(ctx, s.indexKey(), 0, 0).Result()
	if err != nil {
		return "", nil, &storage.StorageError{Op: "latest", Entity: "snapshot_index", Err: err}
	}
	if len(names) == 0 {
		return "", nil, storage.ErrNotFound
	}

	name := names[0]
	data, err := s.rdb.Get(ctx, s.snapshotKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", nil, &storage.StorageError{Op: "latest", Entity: "snapshot", ID: name, Err: storage.ErrStorageCorrupt}
	}
	if err != nil {
		return "", nil, &storage.StorageError{Op: "latest", Entity: "snapshot", ID: name, Err: err}
	}
	return name, data, nil
}

// Close closes the client.
func (s *RedisSink) Close() error {
	return s.rdb.Close()
}
