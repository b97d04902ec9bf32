package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"taskboard/internal/apperror"
	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// fakeTaskStore implements TaskStore with overridable behavior per test.
// Calls without a configured func fail the test via panic.
type fakeTaskStore struct {
	createWithTags func(ctx context.Context, task *model.Task, tagIDs []uuid.UUID) error
	getByUser      func(ctx context.Context, userID, taskID uuid.UUID) (*model.Task, error)
	listByUser     func(ctx context.Context, userID uuid.UUID, filter repository.TaskFilter, sortBy, order string, offset, limit int) ([]model.Task, int64, error)
	listPartition  func(ctx context.Context, userID uuid.UUID, status string) ([]model.Task, error)
	nextPosition   func(ctx context.Context, userID uuid.UUID, status string) (int64, error)
	updateWithTags func(ctx context.Context, task *model.Task, tagIDs []uuid.UUID) error
	applyMove      func(ctx context.Context, userID uuid.UUID, moved repository.MovedTask, changes []repository.PositionChange) error
}

func (f *fakeTaskStore) CreateWithTags(ctx context.Context, task *model.Task, tagIDs []uuid.UUID) error {
	return f.createWithTags(ctx, task, tagIDs)
}

func (f *fakeTaskStore) GetByUser(ctx context.Context, userID, taskID uuid.UUID) (*model.Task, error) {
	return f.getByUser(ctx, userID, taskID)
}

func (f *fakeTaskStore) ListByUser(ctx context.Context, userID uuid.UUID, filter repository.TaskFilter, sortBy, order string, offset, limit int) ([]model.Task, int64, error) {
	if f.listByUser == nil {
		return nil, 0, nil
	}
	return f.listByUser(ctx, userID, filter, sortBy, order, offset, limit)
}

func (f *fakeTaskStore) ListByStatus(ctx context.Context, userID uuid.UUID, status string, offset, limit int) ([]model.Task, error) {
	return nil, nil
}

func (f *fakeTaskStore) ListOverdue(ctx context.Context, userID uuid.UUID, now time.Time, offset, limit int) ([]model.Task, error) {
	return nil, nil
}

func (f *fakeTaskStore) ListPartition(ctx context.Context, userID uuid.UUID, status string) ([]model.Task, error) {
	return f.listPartition(ctx, userID, status)
}

func (f *fakeTaskStore) NextPosition(ctx context.Context, userID uuid.UUID, status string) (int64, error) {
	return f.nextPosition(ctx, userID, status)
}

func (f *fakeTaskStore) UpdateWithTags(ctx context.Context, task *model.Task, tagIDs []uuid.UUID) error {
	return f.updateWithTags(ctx, task, tagIDs)
}

func (f *fakeTaskStore) Delete(ctx context.Context, userID, taskID uuid.UUID) error { return nil }

func (f *fakeTaskStore) AddTag(ctx context.Context, taskID, tagID uuid.UUID) error { return nil }

func (f *fakeTaskStore) RemoveTag(ctx context.Context, taskID, tagID uuid.UUID) error { return nil }

func (f *fakeTaskStore) ApplyMove(ctx context.Context, userID uuid.UUID, moved repository.MovedTask, changes []repository.PositionChange) error {
	return f.applyMove(ctx, userID, moved, changes)
}

// fakeTagStore only needs the id validation for these tests.
type fakeTagStore struct {
	filterActiveIDs func(ctx context.Context, userID uuid.UUID, tagIDs []uuid.UUID) (map[uuid.UUID]struct{}, error)
	getByUser       func(ctx context.Context, userID, tagID uuid.UUID) (*model.Tag, error)
}

func (f *fakeTagStore) Create(ctx context.Context, tag *model.Tag) error { return nil }

func (f *fakeTagStore) GetByUser(ctx context.Context, userID, tagID uuid.UUID) (*model.Tag, error) {
	return f.getByUser(ctx, userID, tagID)
}

func (f *fakeTagStore) ListByUser(ctx context.Context, userID uuid.UUID, includeInactive bool, search string, offset, limit int) ([]model.Tag, int64, error) {
	return nil, 0, nil
}

func (f *fakeTagStore) FilterActiveIDs(ctx context.Context, userID uuid.UUID, tagIDs []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	return f.filterActiveIDs(ctx, userID, tagIDs)
}

func (f *fakeTagStore) Update(ctx context.Context, tag *model.Tag) error { return nil }

func (f *fakeTagStore) Deactivate(ctx context.Context, userID, tagID uuid.UUID) error { return nil }

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestTaskService_Create_RejectsUnknownTagIDs(t *testing.T) {
	// Arrange
	userID := uuid.New()
	validID := uuid.New()
	invalidID := uuid.New()

	tags := &fakeTagStore{
		filterActiveIDs: func(ctx context.Context, uid uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]struct{}, error) {
			assert.Equal(t, userID, uid)
			return map[uuid.UUID]struct{}{validID: {}}, nil
		},
	}
	svc := NewTaskService(&fakeTaskStore{}, tags)

	// Act
	_, err := svc.Create(context.Background(), userID, CreateTaskInput{
		Title:  "write report",
		TagIDs: []uuid.UUID{validID, invalidID},
	})

	// Assert
	assert.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeValidation))
	var appErr *apperror.Error
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{invalidID.String()}, appErr.Details)
}

func TestTaskService_Create_AppendsToPartitionTail(t *testing.T) {
	userID := uuid.New()
	var created *model.Task

	tasks := &fakeTaskStore{
		nextPosition: func(ctx context.Context, uid uuid.UUID, status string) (int64, error) {
			assert.Equal(t, model.StatusTodo, status)
			return 5000, nil
		},
		createWithTags: func(ctx context.Context, task *model.Task, tagIDs []uuid.UUID) error {
			task.ID = uuid.New()
			created = task
			return nil
		},
		getByUser: func(ctx context.Context, uid, taskID uuid.UUID) (*model.Task, error) {
			return created, nil
		},
	}
	svc := NewTaskService(tasks, &fakeTagStore{})

	task, err := svc.Create(context.Background(), userID, CreateTaskInput{Title: "write report"})

	assert.NoError(t, err)
	assert.Equal(t, int64(5000), task.Position)
	assert.Equal(t, model.StatusTodo, task.Status)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Nil(t, task.CompletedAt)
}

func TestTaskService_Get_MapsNotFound(t *testing.T) {
	tasks := &fakeTaskStore{
		getByUser: func(ctx context.Context, uid, taskID uuid.UUID) (*model.Task, error) {
			return nil, repository.ErrTaskNotFound
		},
	}
	svc := NewTaskService(tasks, &fakeTagStore{})

	_, err := svc.Get(context.Background(), uuid.New(), uuid.New())

	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestTaskService_List_RejectsUnknownSortField(t *testing.T) {
	svc := NewTaskService(&fakeTaskStore{}, &fakeTagStore{})

	_, _, err := svc.List(context.Background(), uuid.New(), ListTasksInput{SortBy: "hashed_password"})

	assert.True(t, apperror.Is(err, apperror.CodeValidation))
}

func TestTaskService_List_AnchorsOverdueFilterToServiceClock(t *testing.T) {
	overdue := true
	var captured repository.TaskFilter
	tasks := &fakeTaskStore{
		listByUser: func(ctx context.Context, userID uuid.UUID, filter repository.TaskFilter, sortBy, order string, offset, limit int) ([]model.Task, int64, error) {
			captured = filter
			return nil, 0, nil
		},
	}
	svc := NewTaskService(tasks, &fakeTagStore{})
	svc.now = fixedNow

	_, _, err := svc.List(context.Background(), uuid.New(), ListTasksInput{
		Filter: repository.TaskFilter{Overdue: &overdue},
	})

	assert.NoError(t, err)
	assert.Equal(t, fixedNow().UTC(), captured.Now)
}

func TestTaskService_Reorder_NoopWritesNothing(t *testing.T) {
	// Arrange: the task already sits at the requested index
	userID := uuid.New()
	taskID := uuid.New()
	task := &model.Task{ID: taskID, UserID: userID, Status: model.StatusTodo, Position: 2000}
	partition := []model.Task{
		{ID: uuid.New(), Position: 1000},
		*task,
		{ID: uuid.New(), Position: 3000},
	}

	tasks := &fakeTaskStore{
		getByUser: func(ctx context.Context, uid, id uuid.UUID) (*model.Task, error) {
			return task, nil
		},
		listPartition: func(ctx context.Context, uid uuid.UUID, status string) ([]model.Task, error) {
			return partition, nil
		},
		applyMove: func(ctx context.Context, uid uuid.UUID, moved repository.MovedTask, changes []repository.PositionChange) error {
			t.Fatal("ApplyMove must not be called for a no-op move")
			return nil
		},
	}
	svc := NewTaskService(tasks, &fakeTagStore{})

	// Act
	got, err := svc.Reorder(context.Background(), userID, taskID, model.StatusTodo, 1)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, taskID, got.ID)
}

func TestTaskService_Reorder_CrossPartitionStampsCompletion(t *testing.T) {
	userID := uuid.New()
	taskID := uuid.New()
	task := &model.Task{ID: taskID, UserID: userID, Status: model.StatusTodo, Position: 1000}

	var applied repository.MovedTask
	tasks := &fakeTaskStore{
		getByUser: func(ctx context.Context, uid, id uuid.UUID) (*model.Task, error) {
			return task, nil
		},
		listPartition: func(ctx context.Context, uid uuid.UUID, status string) ([]model.Task, error) {
			assert.Equal(t, model.StatusDone, status)
			return nil, nil
		},
		applyMove: func(ctx context.Context, uid uuid.UUID, moved repository.MovedTask, changes []repository.PositionChange) error {
			applied = moved
			assert.Equal(t, []repository.PositionChange{{ID: taskID, Position: 1000}}, changes)
			return nil
		},
	}
	svc := NewTaskService(tasks, &fakeTagStore{})
	svc.now = fixedNow

	_, err := svc.Reorder(context.Background(), userID, taskID, model.StatusDone, 0)

	assert.NoError(t, err)
	assert.True(t, applied.StatusChanged)
	assert.Equal(t, model.StatusDone, applied.Status)
	if assert.NotNil(t, applied.CompletedAt) {
		assert.Equal(t, fixedNow(), *applied.CompletedAt)
	}
}

func TestTaskService_UpdateStatus_LeavingDoneClearsCompletion(t *testing.T) {
	userID := uuid.New()
	taskID := uuid.New()
	completed := fixedNow().Add(-time.Hour)
	task := &model.Task{
		ID:          taskID,
		UserID:      userID,
		Status:      model.StatusDone,
		Position:    1000,
		CompletedAt: &completed,
	}

	var saved *model.Task
	tasks := &fakeTaskStore{
		getByUser: func(ctx context.Context, uid, id uuid.UUID) (*model.Task, error) {
			return task, nil
		},
		nextPosition: func(ctx context.Context, uid uuid.UUID, status string) (int64, error) {
			assert.Equal(t, model.StatusTodo, status)
			return 7000, nil
		},
		updateWithTags: func(ctx context.Context, tk *model.Task, tagIDs []uuid.UUID) error {
			assert.Nil(t, tagIDs)
			saved = tk
			return nil
		},
	}
	svc := NewTaskService(tasks, &fakeTagStore{})
	svc.now = fixedNow

	_, err := svc.UpdateStatus(context.Background(), userID, taskID, model.StatusTodo)

	assert.NoError(t, err)
	assert.Equal(t, model.StatusTodo, saved.Status)
	assert.Equal(t, int64(7000), saved.Position)
	assert.Nil(t, saved.CompletedAt)
}

func TestTaskService_AttachTag_RejectsInactiveTag(t *testing.T) {
	userID := uuid.New()
	taskID := uuid.New()
	tagID := uuid.New()

	tasks := &fakeTaskStore{
		getByUser: func(ctx context.Context, uid, id uuid.UUID) (*model.Task, error) {
			return &model.Task{ID: taskID, UserID: userID}, nil
		},
	}
	tags := &fakeTagStore{
		getByUser: func(ctx context.Context, uid, id uuid.UUID) (*model.Tag, error) {
			return &model.Tag{ID: tagID, UserID: userID, IsActive: false}, nil
		},
	}
	svc := NewTaskService(tasks, tags)

	err := svc.AttachTag(context.Background(), userID, taskID, tagID)

	assert.True(t, apperror.Is(err, apperror.CodeValidation))
}

func TestTaskService_AttachTag_ForeignTagIsValidationError(t *testing.T) {
	userID := uuid.New()
	taskID := uuid.New()
	tagID := uuid.New()

	tasks := &fakeTaskStore{
		getByUser: func(ctx context.Context, uid, id uuid.UUID) (*model.Task, error) {
			return &model.Task{ID: taskID, UserID: userID}, nil
		},
	}
	// The owner-scoped lookup cannot see another user's tag, so a foreign
	// tag id and an unknown one both come back as not found.
	tags := &fakeTagStore{
		getByUser: func(ctx context.Context, uid, id uuid.UUID) (*model.Tag, error) {
			return nil, repository.ErrTagNotFound
		},
	}
	svc := NewTaskService(tasks, tags)

	err := svc.AttachTag(context.Background(), userID, taskID, tagID)

	assert.True(t, apperror.Is(err, apperror.CodeValidation))
	var appErr *apperror.Error
	assert.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Details, tagID.String())
}

func TestPageWindow_Clamps(t *testing.T) {
	offset, limit := pageWindow(0, 0)
	assert.Equal(t, 0, offset)
	assert.Equal(t, DefaultPerPage, limit)

	offset, limit = pageWindow(3, 500)
	assert.Equal(t, 2*MaxPerPage, offset)
	assert.Equal(t, MaxPerPage, limit)
}
