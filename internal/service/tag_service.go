package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"taskboard/internal/apperror"
	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// TagStore is the persistence surface TagService (and the tag checks in
// TaskService) need.
type TagStore interface {
	Create(ctx context.Context, tag *model.Tag) error
	GetByUser(ctx context.Context, userID, tagID uuid.UUID) (*model.Tag, error)
	ListByUser(ctx context.Context, userID uuid.UUID, includeInactive bool, search string, offset, limit int) ([]model.Tag, int64, error)
	FilterActiveIDs(ctx context.Context, userID uuid.UUID, tagIDs []uuid.UUID) (map[uuid.UUID]struct{}, error)
	Update(ctx context.Context, tag *model.Tag) error
	Deactivate(ctx context.Context, userID, tagID uuid.UUID) error
}

type TagService struct {
	tags TagStore
}

func NewTagService(tags TagStore) *TagService {
	return &TagService{tags: tags}
}

type CreateTagInput struct {
	Name        string
	Color       string
	Description *string
}

// UpdateTagInput uses nil pointers for "leave unchanged".
type UpdateTagInput struct {
	Name        *string
	Color       *string
	Description *string
}

// Create inserts a tag; names are unique per user (case-sensitive, the
// database constraint is the arbiter).
func (s *TagService) Create(ctx context.Context, userID uuid.UUID, in CreateTagInput) (*model.Tag, error) {
	color := in.Color
	if color == "" {
		color = model.DefaultTagColor
	}
	tag := &model.Tag{
		UserID:      userID,
		Name:        in.Name,
		Color:       color,
		Description: in.Description,
		IsActive:    true,
	}
	if err := s.tags.Create(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("tag name already in use")
		}
		return nil, storeErr("tag", err)
	}
	return tag, nil
}

func (s *TagService) Get(ctx context.Context, userID, tagID uuid.UUID) (*model.Tag, error) {
	tag, err := s.tags.GetByUser(ctx, userID, tagID)
	if err != nil {
		return nil, storeErr("tag", err)
	}
	return tag, nil
}

func (s *TagService) List(ctx context.Context, userID uuid.UUID, includeInactive bool, search string, page, perPage int) ([]model.Tag, int64, error) {
	offset, limit := pageWindow(page, perPage)
	tags, total, err := s.tags.ListByUser(ctx, userID, includeInactive, search, offset, limit)
	if err != nil {
		return nil, 0, storeErr("tag", err)
	}
	return tags, total, nil
}

func (s *TagService) Update(ctx context.Context, userID, tagID uuid.UUID, in UpdateTagInput) (*model.Tag, error) {
	tag, err := s.tags.GetByUser(ctx, userID, tagID)
	if err != nil {
		return nil, storeErr("tag", err)
	}

	if in.Name != nil {
		tag.Name = *in.Name
	}
	if in.Color != nil {
		tag.Color = *in.Color
	}
	if in.Description != nil {
		tag.Description = in.Description
	}

	if err := s.tags.Update(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("tag name already in use")
		}
		return nil, storeErr("tag", err)
	}
	return tag, nil
}

// Delete soft-deletes: the tag row survives for history but disappears
// from every task and from default listings.
func (s *TagService) Delete(ctx context.Context, userID, tagID uuid.UUID) error {
	if err := s.tags.Deactivate(ctx, userID, tagID); err != nil {
		return storeErr("tag", err)
	}
	return nil
}
