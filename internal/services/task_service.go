package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"task-tracker.com/task-tracker/internal/cache"
	apperrors "task-tracker.com/task-tracker/internal/errors"
	model "task-tracker.com/task-tracker/internal/models"
	repository "task-tracker.com/task-tracker/internal/repositories"
)

type TaskService struct {
	repo  *repository.TaskRepository
	cache cache.TaskCache
}

func NewTaskService(repo *repository.TaskRepository, taskCache cache.TaskCache) *TaskService {
	if taskCache == nil {
		taskCache = cache.NopTaskCache{}
	}

	return &TaskService{
		repo:  repo,
		cache: taskCache,
	}
}

func (s *TaskService) ListTasks(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, storageFault(err)
	}
	return tasks, nil
}

func (s *TaskService) GetTask(ctx context.Context, id uint) (*model.Task, error) {
	if task, ok := s.cachedTask(ctx, id); ok {
		return task, nil
	}

	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storageFault(err)
	}

	s.rememberTask(ctx, task)
	return task, nil
}

// CreateTask persists a new task. Any id carried by the input is discarded.
func (s *TaskService) CreateTask(ctx context.Context, input model.Task) (*model.Task, error) {
	task := &model.Task{}
	task.Overwrite(input)

	if err := s.repo.Save(ctx, task); err != nil {
		return nil, storageFault(err)
	}

	s.storeTask(ctx, task)
	return task, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, id uint, input model.Task) (*model.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storageFault(err)
	}

	task.Overwrite(input)

	if err := s.repo.Save(ctx, task); err != nil {
		return nil, storageFault(err)
	}

	s.storeTask(ctx, task)
	return task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id uint) error {
	exists, err := s.repo.ExistsByID(ctx, id)
	if err != nil {
		return storageFault(err)
	}
	if !exists {
		return apperrors.ErrTaskNotFound
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return storageFault(err)
	}

	s.forgetTask(ctx, id)
	return nil
}

func (s *TaskService) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return storageFault(err)
	}
	return nil
}

func (s *TaskService) cachedTask(ctx context.Context, id uint) (*model.Task, bool) {
	task, ok, err := s.cache.Get(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "task cache read failed", "task_id", id, "error", err)
		return nil, false
	}
	return task, ok
}

// rememberTask caches a task loaded by a reader. It never replaces an entry a
// concurrent writer may have stored in the meantime.
func (s *TaskService) rememberTask(ctx context.Context, task *model.Task) {
	if err := s.cache.Add(ctx, task); err != nil {
		slog.WarnContext(ctx, "task cache write failed", "task_id", task.ID, "error", err)
	}
}

func (s *TaskService) storeTask(ctx context.Context, task *model.Task) {
	if err := s.cache.Set(ctx, task); err != nil {
		slog.WarnContext(ctx, "task cache write failed", "task_id", task.ID, "error", err)
	}
}

func (s *TaskService) forgetTask(ctx context.Context, id uint) {
	if err := s.cache.Delete(ctx, id); err != nil {
		slog.WarnContext(ctx, "task cache invalidation failed", "task_id", id, "error", err)
	}
}

// storageFault passes application errors through and turns everything else
// coming out of the repository into ErrStorageUnavailable.
func storageFault(err error) error {
	var appErr *apperrors.Exception
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
}
