package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "task-tracker.com/task-tracker/internal/errors"
	model "task-tracker.com/task-tracker/internal/models"
	repository "task-tracker.com/task-tracker/internal/repositories"
)

// mockTaskCache is a simple in-memory task cache for testing
type mockTaskCache struct {
	mu         sync.Mutex
	tasks      map[uint]model.Task
	tombstones map[uint]bool
	err        error
	// beforeAdd runs outside the lock, letting a test pause a reader
	// between its database read and its cache write.
	beforeAdd func()
}

func newMockTaskCache() *mockTaskCache {
	return &mockTaskCache{
		tasks:      make(map[uint]model.Task),
		tombstones: make(map[uint]bool),
	}
}

func (m *mockTaskCache) Get(ctx context.Context, id uint) (*model.Task, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, false, m.err
	}
	task, ok := m.tasks[id]
	if !ok {
		return nil, false, nil
	}
	return &task, true, nil
}

func (m *mockTaskCache) Add(ctx context.Context, task *model.Task) error {
	m.mu.Lock()
	hook := m.beforeAdd
	m.mu.Unlock()

	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if _, ok := m.tasks[task.ID]; ok || m.tombstones[task.ID] {
		return nil
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *mockTaskCache) Set(ctx context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	delete(m.tombstones, task.ID)
	m.tasks[task.ID] = *task
	return nil
}

func (m *mockTaskCache) Delete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	delete(m.tasks, id)
	m.tombstones[id] = true
	return nil
}

func (m *mockTaskCache) has(id uint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.tasks[id]
	return ok
}

func (m *mockTaskCache) cached(id uint) (model.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	return task, ok
}

func (m *mockTaskCache) evict(id uint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tasks, id)
}

// pauseNextAdd blocks the next Add until the returned release func is called.
// entered is closed once the Add is blocked.
func (m *mockTaskCache) pauseNextAdd() (entered <-chan struct{}, release func()) {
	enteredCh := make(chan struct{})
	releaseCh := make(chan struct{})

	m.mu.Lock()
	m.beforeAdd = func() {
		m.mu.Lock()
		m.beforeAdd = nil
		m.mu.Unlock()

		close(enteredCh)
		<-releaseCh
	}
	m.mu.Unlock()

	return enteredCh, func() { close(releaseCh) }
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Task{}), "failed to migrate database")

	return db
}

func setupService(t *testing.T) (*TaskService, *mockTaskCache) {
	t.Helper()

	taskCache := newMockTaskCache()
	repo := repository.NewTaskRepository(setupTestDB(t))
	return NewTaskService(repo, taskCache), taskCache
}

func TestTaskService_CreateAndGet(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	created, err := service.CreateTask(ctx, model.Task{Title: "Buy milk", Priority: "low", Status: "open"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Nil(t, created.DueDate)
	assert.Equal(t, "low", created.Priority)
	assert.Equal(t, "open", created.Status)

	fetched, err := service.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, fetched)
}

func TestTaskService_CreateIgnoresClientID(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	first, err := service.CreateTask(ctx, model.Task{Title: "first"})
	require.NoError(t, err)

	second, err := service.CreateTask(ctx, model.Task{ID: first.ID, Title: "second"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	stored, err := service.GetTask(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", stored.Title)
}

func TestTaskService_GetServesFromCache(t *testing.T) {
	service, taskCache := setupService(t)
	ctx := context.Background()

	taskCache.tasks[41] = model.Task{ID: 41, Title: "cached only"}

	task, err := service.GetTask(ctx, 41)
	require.NoError(t, err)
	assert.Equal(t, "cached only", task.Title)
}

func TestTaskService_UpdateOverwritesFields(t *testing.T) {
	service, taskCache := setupService(t)
	ctx := context.Background()

	due := model.NewDate(2025, time.May, 5)
	created, err := service.CreateTask(ctx, model.Task{Title: "Report", DueDate: &due, Priority: "high", Status: "open"})
	require.NoError(t, err)
	require.True(t, taskCache.has(created.ID))

	updated, err := service.UpdateTask(ctx, created.ID, model.Task{ID: 12345, Title: "Report", DueDate: &due, Priority: "high", Status: "done"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "done", updated.Status)
	cached, ok := taskCache.cached(created.ID)
	require.True(t, ok, "update must cache the fresh task")
	assert.Equal(t, "done", cached.Status)

	fetched, err := service.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "done", fetched.Status)
	assert.Equal(t, "Report", fetched.Title)
	assert.Equal(t, "high", fetched.Priority)
	require.NotNil(t, fetched.DueDate)
	assert.Equal(t, "2025-05-05", fetched.DueDate.String())
}

func TestTaskService_NotFound(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	_, err := service.GetTask(ctx, 999999)
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)

	_, err = service.UpdateTask(ctx, 999999, model.Task{Title: "x"})
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)

	err = service.DeleteTask(ctx, 999999)
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)
}

func TestTaskService_DeleteThenGet(t *testing.T) {
	service, taskCache := setupService(t)
	ctx := context.Background()

	created, err := service.CreateTask(ctx, model.Task{Title: "Short lived"})
	require.NoError(t, err)

	require.NoError(t, service.DeleteTask(ctx, created.ID))
	assert.False(t, taskCache.has(created.ID))

	_, err = service.GetTask(ctx, created.ID)
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)
}

func TestTaskService_CacheFaultsAreIgnored(t *testing.T) {
	service, taskCache := setupService(t)
	taskCache.err = errors.New("redis down")
	ctx := context.Background()

	created, err := service.CreateTask(ctx, model.Task{Title: "resilient"})
	require.NoError(t, err)

	fetched, err := service.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "resilient", fetched.Title)

	assert.NoError(t, service.DeleteTask(ctx, created.ID))
}

func TestTaskService_StorageFault(t *testing.T) {
	db := setupTestDB(t)
	service := NewTaskService(repository.NewTaskRepository(db), nil)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = service.ListTasks(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	_, err = service.GetTask(context.Background(), 1)
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	assert.ErrorIs(t, service.Ping(context.Background()), apperrors.ErrStorageUnavailable)
}

func TestTaskService_ConcurrentCreates(t *testing.T) {
	service, _ := setupService(t)

	const concurrentCount = 50
	var wg sync.WaitGroup
	wg.Add(concurrentCount)

	errs := make(chan error, concurrentCount)

	for i := 0; i < concurrentCount; i++ {
		go func() {
			defer wg.Done()
			if _, err := service.CreateTask(context.Background(), model.Task{Title: "Title"}); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent creation failed: %v", err)
	}

	tasks, err := service.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, concurrentCount)
}

func TestTaskService_ReaderRacingUpdateDoesNotCacheStaleTask(t *testing.T) {
	service, taskCache := setupService(t)
	ctx := context.Background()

	created, err := service.CreateTask(ctx, model.Task{Title: "Groceries", Priority: "low", Status: "open"})
	require.NoError(t, err)
	taskCache.evict(created.ID)

	entered, release := taskCache.pauseNextAdd()
	readDone := make(chan *model.Task, 1)
	go func() {
		task, err := service.GetTask(ctx, created.ID)
		assert.NoError(t, err)
		readDone <- task
	}()

	// the reader has loaded the row and is about to populate the cache
	<-entered

	_, err = service.UpdateTask(ctx, created.ID, model.Task{Title: "Groceries", Priority: "low", Status: "done"})
	require.NoError(t, err)

	release()
	stale := <-readDone
	assert.Equal(t, "open", stale.Status)

	fetched, err := service.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "done", fetched.Status)
}

func TestTaskService_ReaderRacingDeleteDoesNotCacheDeletedTask(t *testing.T) {
	service, taskCache := setupService(t)
	ctx := context.Background()

	created, err := service.CreateTask(ctx, model.Task{Title: "Old errand"})
	require.NoError(t, err)
	taskCache.evict(created.ID)

	entered, release := taskCache.pauseNextAdd()
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_, err := service.GetTask(ctx, created.ID)
		assert.NoError(t, err)
	}()

	<-entered
	require.NoError(t, service.DeleteTask(ctx, created.ID))

	release()
	<-readDone

	assert.False(t, taskCache.has(created.ID))
	_, err = service.GetTask(ctx, created.ID)
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)
}
