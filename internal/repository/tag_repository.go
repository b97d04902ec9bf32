package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
)

type TagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) Create(ctx context.Context, tag *model.Tag) error {
	err := r.db.WithContext(ctx).Create(tag).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// GetByUser scopes the lookup by owner, so a tag belonging to another user
// is reported as not found.
func (r *TagRepository) GetByUser(ctx context.Context, userID, tagID uuid.UUID) (*model.Tag, error) {
	var tag model.Tag
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, tagID).
		First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTagNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// ListByUser returns the user's tags, active only unless includeInactive
// is set, optionally filtered by a name substring.
func (r *TagRepository) ListByUser(ctx context.Context, userID uuid.UUID, includeInactive bool, search string, offset, limit int) ([]model.Tag, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Tag{}).Where("user_id = ?", userID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tags []model.Tag
	err := query.Order("name").Offset(offset).Limit(limit).Find(&tags).Error
	if err != nil {
		return nil, 0, err
	}
	return tags, total, nil
}

// FilterActiveIDs returns which of the candidate ids exist as active tags
// owned by the user. Callers diff the result against the input to name the
// invalid ids in a validation error.
func (r *TagRepository) FilterActiveIDs(ctx context.Context, userID uuid.UUID, tagIDs []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	if len(tagIDs) == 0 {
		return map[uuid.UUID]struct{}{}, nil
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.Tag{}).
		Where("user_id = ? AND id IN ? AND is_active = ?", userID, tagIDs, true).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	valid := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		valid[id] = struct{}{}
	}
	return valid, nil
}

func (r *TagRepository) Update(ctx context.Context, tag *model.Tag) error {
	result := r.db.WithContext(ctx).Save(tag)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTagNotFound
	}
	return nil
}

// Deactivate soft-deletes the tag and removes its associations in one
// transaction, so an inactive tag never shows up on a task.
func (r *TagRepository) Deactivate(ctx context.Context, userID, tagID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Tag{}).
			Where("user_id = ? AND id = ? AND is_active = ?", userID, tagID, true).
			Update("is_active", false)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTagNotFound
		}

		return tx.Exec("DELETE FROM task_tags WHERE tag_id = ?", tagID).Error
	})
}
