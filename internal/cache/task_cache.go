package cache

import (
	"context"
	"strconv"

	model "task-tracker.com/task-tracker/internal/models"
)

// TaskCache is a cache-aside store for single tasks. The database stays the
// source of truth; a miss is reported as (nil, false, nil).
//
// Readers populate with Add, writers with Set and Delete. Add never replaces
// an existing entry or tombstone, so a reader holding a row loaded before a
// concurrent write cannot put it back over the writer's entry.
type TaskCache interface {
	Get(ctx context.Context, id uint) (*model.Task, bool, error)

	// Add stores task only when nothing is cached under its id.
	Add(ctx context.Context, task *model.Task) error

	// Set stores task, replacing any entry or tombstone.
	Set(ctx context.Context, task *model.Task) error

	// Delete replaces the entry with a tombstone that reads as a miss.
	Delete(ctx context.Context, id uint) error
}

func key(prefix string, id uint) string {
	return prefix + strconv.FormatUint(uint64(id), 10)
}

type NopTaskCache struct{}

func (NopTaskCache) Get(context.Context, uint) (*model.Task, bool, error) { return nil, false, nil }

func (NopTaskCache) Add(context.Context, *model.Task) error { return nil }

func (NopTaskCache) Set(context.Context, *model.Task) error { return nil }

func (NopTaskCache) Delete(context.Context, uint) error { return nil }
