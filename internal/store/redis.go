package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient — клиент с короткими таймаутами.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
}

// RedisBackend хранит каждую коллекцию под своим ключом с общим префиксом.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (r *RedisBackend) key(k string) string { return r.prefix + k }

func (r *RedisBackend) Load(ctx context.Context) (*Snapshot, error) {
	keys := make([]string, len(Keys))
	for i, k := range Keys {
		keys[i] = r.key(k)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	entries := make(map[string][]byte, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("redis key %s: unexpected type %T", keys[i], v)
		}
		entries[Keys[i]] = []byte(s)
	}
	return DecodeSnapshot(entries)
}

// Save пишет все ключи одной транзакцией MULTI/EXEC.
func (r *RedisBackend) Save(ctx context.Context, snap *Snapshot) error {
	entries, err := snap.Encode()
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range Keys {
			p.Set(ctx, r.key(k), entries[k], 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis tx: %w", err)
	}
	return nil
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
