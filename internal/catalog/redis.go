package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"audioflow/pkg/audiometa"
)

const (
	redisIDsKey = "audio:ids"
)

// Redis serves records stored as hashes under audio:<id>.
type Redis struct {
	rc *redis.Client
}

// RedisConfig holds connection settings for NewRedisClient.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

// NewRedisClient connects to redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg *RedisConfig) (*redis.Client, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
	})

	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return rc, nil
}

// NewRedis creates a catalog on top of rc.
func NewRedis(rc *redis.Client) *Redis {
	return &Redis{rc: rc}
}

func (r *Redis) recordKey(id string) string {
	return "audio:" + id
}

// Lookup reads the hash for id.
func (r *Redis) Lookup(ctx context.Context, id string) (*audiometa.Record, error) {
	cmd := r.rc.HGetAll(ctx, r.recordKey(id))
	if err := cmd.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", audiometa.ErrUnavailable, err)
	}
	if len(cmd.Val()) == 0 {
		return nil, fmt.Errorf("%w: %s", audiometa.ErrNotFound, id)
	}

	var record audiometa.Record
	if err := cmd.Scan(&record); err != nil {
		return nil, fmt.Errorf("%w: failed to scan record: %w", audiometa.ErrUnavailable, err)
	}
	if record.ID == "" {
		record.ID = id
	}

	return &record, nil
}

// IDs returns every identifier registered in the catalog.
func (r *Redis) IDs(ctx context.Context) ([]string, error) {
	ids, err := r.rc.SMembers(ctx, redisIDsKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to list ids: %w", err)
	}
	return ids, nil
}

// Seed writes records in a single transaction.
func (r *Redis) Seed(ctx context.Context, records []audiometa.Record) error {
	pipe := r.rc.TxPipeline()
	for _, record := range records {
		if record.ID == "" {
			continue
		}
		pipe.HSet(ctx, r.recordKey(record.ID), record)
		pipe.SAdd(ctx, redisIDsKey, record.ID)
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to seed records: %w", err)
	}
	return nil
}

func (r *Redis) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}
		return err
	}
	return nil
}
