package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KarpovAlexandrGo/task-api/internal/entity"
	"github.com/redis/go-redis/v9"
)

// listsKey is a hash of cached listings keyed by entity.TaskFilter.CacheKey.
// Dropping the hash invalidates every cached listing at once.
const listsKey = "tasks:lists"

// generationKey counts invalidations. A listing is only written back while
// the counter still holds the value seen when the listing was looked up.
const generationKey = "tasks:lists:generation"

type CacheRepository struct {
	client *redis.Client
}

func NewCacheRepository(addr, password string, db int) *CacheRepository {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &CacheRepository{client: client}
}

// GetTasks returns the cached listing for key and the current generation; ok
// is false on a cache miss.
func (c *CacheRepository) GetTasks(ctx context.Context, key string) (tasks []entity.Task, generation int64, ok bool, err error) {
	var genCmd *redis.StringCmd
	var dataCmd *redis.StringCmd
	_, err = c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		genCmd = pipe.Get(ctx, generationKey)
		dataCmd = pipe.HGet(ctx, listsKey, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, err
	}

	generation, err = readGeneration(genCmd)
	if err != nil {
		return nil, 0, false, err
	}

	data, err := dataCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, generation, false, nil
	} else if err != nil {
		return nil, 0, false, err
	}

	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, 0, false, fmt.Errorf("failed to decode cached tasks: %w", err)
	}
	return tasks, generation, true, nil
}

// SetTasks stores tasks under key unless the cache was invalidated since
// generation was read. A skipped write is not an error.
func (c *CacheRepository) SetTasks(ctx context.Context, generation int64, key string, tasks []entity.Task, ttl time.Duration) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("failed to encode cached tasks: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(tx.Get(ctx, generationKey))
		if err != nil {
			return err
		}
		if current != generation {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, listsKey, key, data)
			pipe.Expire(ctx, listsKey, ttl)
			return nil
		})
		return err
	}, generationKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *CacheRepository) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, listsKey)
		return nil
	})
	return err
}

func readGeneration(cmd *redis.StringCmd) (int64, error) {
	generation, err := cmd.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

// Ping checks the Redis connection.
func (c *CacheRepository) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *CacheRepository) Close() error {
	return c.client.Close()
}
