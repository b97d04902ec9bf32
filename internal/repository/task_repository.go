package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
)

// TaskFilter narrows ListByUser. Zero values mean "no filter".
type TaskFilter struct {
	Statuses   []string
	Priorities []string
	TagIDs     []uuid.UUID
	TagNames   []string
	DueFrom    *time.Time
	DueTo      *time.Time
	Overdue    *bool
	// Now anchors the Overdue comparison; zero falls back to wall time.
	Now    time.Time
	Search string
}

// PositionChange is one row of a reorder plan: the task's new ordering key.
type PositionChange struct {
	ID       uuid.UUID
	Position int64
}

// MovedTask carries the extra fields of the dragged task itself. Status
// and CompletedAt are written only when StatusChanged is set, atomically
// with the position updates.
type MovedTask struct {
	ID            uuid.UUID
	Status        string
	StatusChanged bool
	CompletedAt   *time.Time
}

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// CreateWithTags inserts the task and its tag associations in one
// transaction; a failed association insert rolls the task back too.
func (r *TaskRepository) CreateWithTags(ctx context.Context, task *model.Task, tagIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicate
			}
			return err
		}
		return insertAssociations(tx, task.ID, tagIDs)
	})
}

// GetByUser loads a task with its active tags, scoped by owner.
func (r *TaskRepository) GetByUser(ctx context.Context, userID, taskID uuid.UUID) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Preload("Tags", "is_active = ?", true).
		Where("user_id = ? AND id = ?", userID, taskID).
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByUser applies filters, sorting and pagination and returns the page
// plus the unpaginated total.
func (r *TaskRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter TaskFilter, sortBy, order string, offset, limit int) ([]model.Task, int64, error) {
	base := r.db.WithContext(ctx).Model(&model.Task{}).Where("tasks.user_id = ?", userID)
	base = applyFilter(base, filter)

	var total int64
	if err := base.Session(&gorm.Session{}).Distinct("tasks.id").Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []model.Task
	err := base.Session(&gorm.Session{}).
		Preload("Tags", "is_active = ?", true).
		Distinct("tasks.*").
		Order(fmt.Sprintf("tasks.%s %s", sortBy, order)).
		Offset(offset).Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// ListByStatus returns one partition ordered for display.
func (r *TaskRepository) ListByStatus(ctx context.Context, userID uuid.UUID, status string, offset, limit int) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Preload("Tags", "is_active = ?", true).
		Where("user_id = ? AND status = ?", userID, status).
		Order("position").
		Offset(offset).Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListOverdue returns tasks past their due date that are neither done nor
// archived, most overdue first.
func (r *TaskRepository) ListOverdue(ctx context.Context, userID uuid.UUID, now time.Time, offset, limit int) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Preload("Tags", "is_active = ?", true).
		Where("user_id = ? AND due_date < ? AND status NOT IN ?",
			userID, now, []string{model.StatusDone, model.StatusArchived}).
		Order("due_date").
		Offset(offset).Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListPartition loads the ordering sequence of one (user, status)
// partition, ascending by position. Used by the reorder planner.
func (r *TaskRepository) ListPartition(ctx context.Context, userID uuid.UUID, status string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, status).
		Order("position").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// NextPosition returns the key after the current tail of a partition.
func (r *TaskRepository) NextPosition(ctx context.Context, userID uuid.UUID, status string) (int64, error) {
	var max *int64
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND status = ?", userID, status).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return model.PositionStep, nil
	}
	return *max + model.PositionStep, nil
}

// UpdateWithTags saves the task and, when tagIDs is non-nil, replaces the
// whole association set in the same transaction.
func (r *TaskRepository) UpdateWithTags(ctx context.Context, task *model.Task, tagIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Omit("Tags", "Owner").Save(task)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return ErrDuplicate
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}

		if tagIDs == nil {
			return nil
		}
		if err := tx.Exec("DELETE FROM task_tags WHERE task_id = ?", task.ID).Error; err != nil {
			return err
		}
		return insertAssociations(tx, task.ID, tagIDs)
	})
}

func (r *TaskRepository) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Task{}, "id = ?", taskID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// AddTag attaches a tag to a task; attaching an already-attached tag is a
// no-op.
func (r *TaskRepository) AddTag(ctx context.Context, taskID, tagID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(
		"INSERT INTO task_tags (task_id, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		taskID, tagID,
	).Error
}

// RemoveTag detaches a tag; a missing association is not an error.
func (r *TaskRepository) RemoveTag(ctx context.Context, taskID, tagID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(
		"DELETE FROM task_tags WHERE task_id = ? AND tag_id = ?",
		taskID, tagID,
	).Error
}

// ApplyMove persists a reorder plan in one transaction: every changed
// ordering key, plus the moved task's status transition when it crosses
// partitions. The unique (user_id, status, position) constraint is
// deferred to commit, so intermediate states inside the transaction may
// reuse keys that a later update frees up.
func (r *TaskRepository) ApplyMove(ctx context.Context, userID uuid.UUID, moved MovedTask, changes []PositionChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, change := range changes {
			updates := map[string]interface{}{"position": change.Position}
			if change.ID == moved.ID && moved.StatusChanged {
				updates["status"] = moved.Status
				updates["completed_at"] = moved.CompletedAt
			}

			result := tx.Model(&model.Task{}).
				Where("id = ? AND user_id = ?", change.ID, userID).
				Updates(updates)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrTaskNotFound
			}
		}
		return nil
	})
}

func insertAssociations(tx *gorm.DB, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	for _, tagID := range tagIDs {
		err := tx.Exec(
			"INSERT INTO task_tags (task_id, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
			taskID, tagID,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func applyFilter(query *gorm.DB, filter TaskFilter) *gorm.DB {
	if len(filter.Statuses) > 0 {
		query = query.Where("tasks.status IN ?", filter.Statuses)
	}
	if len(filter.Priorities) > 0 {
		query = query.Where("tasks.priority IN ?", filter.Priorities)
	}
	if filter.DueFrom != nil {
		query = query.Where("tasks.due_date >= ?", filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("tasks.due_date <= ?", filter.DueTo)
	}
	if filter.Overdue != nil {
		now := filter.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		if *filter.Overdue {
			query = query.Where("tasks.due_date < ? AND tasks.status <> ?", now, model.StatusDone)
		} else {
			query = query.Where(
				"tasks.due_date >= ? OR tasks.due_date IS NULL OR tasks.status = ?",
				now, model.StatusDone,
			)
		}
	}
	if len(filter.TagIDs) > 0 || len(filter.TagNames) > 0 {
		query = query.Joins("JOIN task_tags ON task_tags.task_id = tasks.id")
		if len(filter.TagIDs) > 0 {
			query = query.Where("task_tags.tag_id IN ?", filter.TagIDs)
		}
		if len(filter.TagNames) > 0 {
			query = query.Joins("JOIN tags ON tags.id = task_tags.tag_id").
				Where("tags.name IN ?", filter.TagNames)
		}
	}
	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		query = query.Where("tasks.title ILIKE ? OR tasks.description ILIKE ?", term, term)
	}
	return query
}
