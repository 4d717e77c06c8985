package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	model "task-tracker.com/task-tracker/internal/models"
)

// tombstone marks a deleted task. It can never be a JSON encoded task.
const tombstone = "-"

type RedisTaskCache struct {
	client rueidis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisTaskCache(client rueidis.Client, prefix string, ttl time.Duration) *RedisTaskCache {
	return &RedisTaskCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisTaskCache) Get(ctx context.Context, id uint) (*model.Task, bool, error) {
	cmd := r.client.B().Get().Key(key(r.prefix, id)).Build()
	data, err := r.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	if string(data) == tombstone {
		return nil, false, nil
	}

	var task model.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}

	return &task, true, nil
}

func (r *RedisTaskCache) Add(ctx context.Context, task *model.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	cmd := r.client.B().Set().
		Key(key(r.prefix, task.ID)).
		Value(rueidis.BinaryString(data)).
		Nx().
		ExSeconds(r.ttlSeconds()).
		Build()

	// SET NX answers nil when the key already exists.
	if err := r.client.Do(ctx, cmd).Error(); err != nil && !rueidis.IsRedisNil(err) {
		return fmt.Errorf("cache add: %w", err)
	}

	return nil
}

func (r *RedisTaskCache) Set(ctx context.Context, task *model.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	if err := r.write(ctx, task.ID, rueidis.BinaryString(data)); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}

	return nil
}

func (r *RedisTaskCache) Delete(ctx context.Context, id uint) error {
	if err := r.write(ctx, id, tombstone); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (r *RedisTaskCache) write(ctx context.Context, id uint, value string) error {
	cmd := r.client.B().Set().
		Key(key(r.prefix, id)).
		Value(value).
		ExSeconds(r.ttlSeconds()).
		Build()

	return r.client.Do(ctx, cmd).Error()
}

func (r *RedisTaskCache) ttlSeconds() int64 {
	return int64(r.ttl / time.Second)
}
