package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	apperrors "task-tracker.com/task-tracker/internal/errors"
	model "task-tracker.com/task-tracker/internal/models"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&model.Task{}); err != nil {
		return fmt.Errorf("failed to migrate tasks table: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindAll(ctx context.Context) ([]model.Task, error) {
	tasks := make([]model.Task, 0)
	if err := r.db.WithContext(ctx).Order("id asc").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task %d: %w", id, err)
	}
	return &task, nil
}

// Save inserts the task when it has no id yet and overwrites the stored row otherwise.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if task.ID == 0 {
		if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return nil
	}

	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"title":    task.Title,
			"due_date": task.DueDate,
			"priority": task.Priority,
			"status":   task.Status,
		})

	if res.Error != nil {
		return fmt.Errorf("failed to update task %d: %w", task.ID, res.Error)
	}

	if res.RowsAffected == 0 {
		return apperrors.ErrTaskNotFound
	}

	return nil
}

func (r *TaskRepository) DeleteByID(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Task{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete task %d: %w", id, err)
	}
	return nil
}

func (r *TaskRepository) ExistsByID(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check task %d: %w", id, err)
	}
	return count > 0, nil
}

func (r *TaskRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
