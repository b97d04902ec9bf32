package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/apperror"
	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// TaskStore is the persistence surface TaskService needs.
type TaskStore interface {
	CreateWithTags(ctx context.Context, task *model.Task, tagIDs []uuid.UUID) error
	GetByUser(ctx context.Context, userID, taskID uuid.UUID) (*model.Task, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter repository.TaskFilter, sortBy, order string, offset, limit int) ([]model.Task, int64, error)
	ListByStatus(ctx context.Context, userID uuid.UUID, status string, offset, limit int) ([]model.Task, error)
	ListOverdue(ctx context.Context, userID uuid.UUID, now time.Time, offset, limit int) ([]model.Task, error)
	ListPartition(ctx context.Context, userID uuid.UUID, status string) ([]model.Task, error)
	NextPosition(ctx context.Context, userID uuid.UUID, status string) (int64, error)
	UpdateWithTags(ctx context.Context, task *model.Task, tagIDs []uuid.UUID) error
	Delete(ctx context.Context, userID, taskID uuid.UUID) error
	AddTag(ctx context.Context, taskID, tagID uuid.UUID) error
	RemoveTag(ctx context.Context, taskID, tagID uuid.UUID) error
	ApplyMove(ctx context.Context, userID uuid.UUID, moved repository.MovedTask, changes []repository.PositionChange) error
}

// Pagination bounds shared by the list endpoints.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// sortColumns whitelists the ListByUser sort keys; the column name is
// interpolated into the ORDER BY clause and must never come from user
// input unchecked.
var sortColumns = map[string]struct{}{
	"created_at": {},
	"updated_at": {},
	"title":      {},
	"status":     {},
	"priority":   {},
	"due_date":   {},
	"position":   {},
}

type TaskService struct {
	tasks TaskStore
	tags  TagStore
	now   func() time.Time
}

func NewTaskService(tasks TaskStore, tags TagStore) *TaskService {
	return &TaskService{tasks: tasks, tags: tags, now: time.Now}
}

type CreateTaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     *time.Time
	TagIDs      []uuid.UUID
}

// UpdateTaskInput uses nil pointers for "leave unchanged". TagIDs nil
// leaves associations alone; an empty non-nil slice clears them.
// ClearDueDate distinguishes "remove the due date" from "don't touch it".
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *string
	Priority     *string
	DueDate      *time.Time
	ClearDueDate bool
	TagIDs       []uuid.UUID
}

type ListTasksInput struct {
	Filter  repository.TaskFilter
	SortBy  string
	Order   string
	Page    int
	PerPage int
}

// Create validates the tag set, appends the task to the tail of its
// status partition and persists task plus associations atomically.
func (s *TaskService) Create(ctx context.Context, userID uuid.UUID, in CreateTaskInput) (*model.Task, error) {
	status := in.Status
	if status == "" {
		status = model.StatusTodo
	}
	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidStatus(status) {
		return nil, apperror.Validation("invalid status", status)
	}
	if !model.ValidPriority(priority) {
		return nil, apperror.Validation("invalid priority", priority)
	}

	tagIDs, err := s.validateTagIDs(ctx, userID, in.TagIDs)
	if err != nil {
		return nil, err
	}

	position, err := s.tasks.NextPosition(ctx, userID, status)
	if err != nil {
		return nil, storeErr("task", err)
	}

	task := &model.Task{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     in.DueDate,
		Position:    position,
	}
	if status == model.StatusDone {
		now := s.now().UTC()
		task.CompletedAt = &now
	}

	if err := s.tasks.CreateWithTags(ctx, task, tagIDs); err != nil {
		return nil, storeErr("task", err)
	}
	return s.Get(ctx, userID, task.ID)
}

func (s *TaskService) Get(ctx context.Context, userID, taskID uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.GetByUser(ctx, userID, taskID)
	if err != nil {
		return nil, storeErr("task", err)
	}
	return task, nil
}

// List returns one page of the user's tasks plus the unpaginated total.
func (s *TaskService) List(ctx context.Context, userID uuid.UUID, in ListTasksInput) ([]model.Task, int64, error) {
	sortBy := in.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	if _, ok := sortColumns[sortBy]; !ok {
		return nil, 0, apperror.Validation("invalid sort field", sortBy)
	}
	order := in.Order
	switch order {
	case "":
		order = "desc"
	case "asc", "desc":
	default:
		return nil, 0, apperror.Validation("invalid sort order", order)
	}

	filter := in.Filter
	filter.Now = s.now().UTC()

	offset, limit := pageWindow(in.Page, in.PerPage)
	tasks, total, err := s.tasks.ListByUser(ctx, userID, filter, sortBy, order, offset, limit)
	if err != nil {
		return nil, 0, storeErr("task", err)
	}
	return tasks, total, nil
}

func (s *TaskService) ListByStatus(ctx context.Context, userID uuid.UUID, status string, page, perPage int) ([]model.Task, error) {
	if !model.ValidStatus(status) {
		return nil, apperror.Validation("invalid status", status)
	}
	offset, limit := pageWindow(page, perPage)
	tasks, err := s.tasks.ListByStatus(ctx, userID, status, offset, limit)
	if err != nil {
		return nil, storeErr("task", err)
	}
	return tasks, nil
}

func (s *TaskService) ListOverdue(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.Task, error) {
	offset, limit := pageWindow(page, perPage)
	tasks, err := s.tasks.ListOverdue(ctx, userID, s.now().UTC(), offset, limit)
	if err != nil {
		return nil, storeErr("task", err)
	}
	return tasks, nil
}

// Update applies a partial update. A status change moves the task to the
// tail of its new partition and adjusts CompletedAt.
func (s *TaskService) Update(ctx context.Context, userID, taskID uuid.UUID, in UpdateTaskInput) (*model.Task, error) {
	task, err := s.tasks.GetByUser(ctx, userID, taskID)
	if err != nil {
		return nil, storeErr("task", err)
	}

	if in.Title != nil {
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Priority != nil {
		if !model.ValidPriority(*in.Priority) {
			return nil, apperror.Validation("invalid priority", *in.Priority)
		}
		task.Priority = *in.Priority
	}
	if in.ClearDueDate {
		task.DueDate = nil
	} else if in.DueDate != nil {
		task.DueDate = in.DueDate
	}

	if in.Status != nil && *in.Status != task.Status {
		if !model.ValidStatus(*in.Status) {
			return nil, apperror.Validation("invalid status", *in.Status)
		}
		if err := s.transition(ctx, task, *in.Status); err != nil {
			return nil, err
		}
	}

	tagIDs := in.TagIDs
	if tagIDs != nil {
		if tagIDs, err = s.validateTagIDs(ctx, userID, tagIDs); err != nil {
			return nil, err
		}
		if len(tagIDs) == 0 {
			tagIDs = []uuid.UUID{}
		}
	}

	if err := s.tasks.UpdateWithTags(ctx, task, tagIDs); err != nil {
		return nil, storeErr("task", err)
	}
	return s.Get(ctx, userID, task.ID)
}

// UpdateStatus is the dedicated status-transition operation.
func (s *TaskService) UpdateStatus(ctx context.Context, userID, taskID uuid.UUID, status string) (*model.Task, error) {
	if !model.ValidStatus(status) {
		return nil, apperror.Validation("invalid status", status)
	}
	task, err := s.tasks.GetByUser(ctx, userID, taskID)
	if err != nil {
		return nil, storeErr("task", err)
	}
	if task.Status == status {
		return task, nil
	}
	if err := s.transition(ctx, task, status); err != nil {
		return nil, err
	}
	if err := s.tasks.UpdateWithTags(ctx, task, nil); err != nil {
		return nil, storeErr("task", err)
	}
	return s.Get(ctx, userID, task.ID)
}

// transition rewrites status, CompletedAt and position for a move into a
// new partition. The task lands at the partition's tail; Reorder exists
// for precise placement.
func (s *TaskService) transition(ctx context.Context, task *model.Task, status string) error {
	position, err := s.tasks.NextPosition(ctx, task.UserID, status)
	if err != nil {
		return storeErr("task", err)
	}
	stampCompletion(task, status, s.now)
	task.Status = status
	task.Position = position
	return nil
}

func (s *TaskService) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	if err := s.tasks.Delete(ctx, userID, taskID); err != nil {
		return storeErr("task", err)
	}
	return nil
}

// Reorder places the task at a 0-based index within a status partition,
// computing the minimal set of ordering-key rewrites and applying them in
// one transaction. Status may equal the task's current one (reorder in
// place) or name another partition (move across). A move that lands where
// the task already sits writes nothing.
func (s *TaskService) Reorder(ctx context.Context, userID, taskID uuid.UUID, status string, index int) (*model.Task, error) {
	task, err := s.tasks.GetByUser(ctx, userID, taskID)
	if err != nil {
		return nil, storeErr("task", err)
	}

	if status == "" {
		status = task.Status
	}
	if !model.ValidStatus(status) {
		return nil, apperror.Validation("invalid status", status)
	}
	if index < 0 {
		return nil, apperror.Validation("position must not be negative")
	}

	partition, err := s.tasks.ListPartition(ctx, userID, status)
	if err != nil {
		return nil, storeErr("task", err)
	}

	changes, noop := planMove(partition, task.ID, index)
	if noop {
		return task, nil
	}

	moved := repository.MovedTask{ID: task.ID, Status: status}
	if status != task.Status {
		moved.StatusChanged = true
		stampCompletion(task, status, s.now)
		moved.CompletedAt = task.CompletedAt
	}

	if err := s.tasks.ApplyMove(ctx, userID, moved, changes); err != nil {
		return nil, storeErr("task", err)
	}
	return s.Get(ctx, userID, task.ID)
}

// AttachTag links an active tag the user owns; relinking is a no-op.
func (s *TaskService) AttachTag(ctx context.Context, userID, taskID, tagID uuid.UUID) error {
	if _, err := s.tasks.GetByUser(ctx, userID, taskID); err != nil {
		return storeErr("task", err)
	}
	tag, err := s.tags.GetByUser(ctx, userID, tagID)
	if err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			return apperror.Validation("unknown or inactive tag ids", tagID.String())
		}
		return storeErr("tag", err)
	}
	if !tag.IsActive {
		return apperror.Validation("unknown or inactive tag ids", tag.ID.String())
	}
	if err := s.tasks.AddTag(ctx, taskID, tagID); err != nil {
		return storeErr("task", err)
	}
	return nil
}

// DetachTag unlinks a tag; a link that never existed is not an error.
func (s *TaskService) DetachTag(ctx context.Context, userID, taskID, tagID uuid.UUID) error {
	if _, err := s.tasks.GetByUser(ctx, userID, taskID); err != nil {
		return storeErr("task", err)
	}
	if _, err := s.tags.GetByUser(ctx, userID, tagID); err != nil {
		return storeErr("tag", err)
	}
	if err := s.tasks.RemoveTag(ctx, taskID, tagID); err != nil {
		return storeErr("task", err)
	}
	return nil
}

// validateTagIDs deduplicates the requested ids and rejects the set when
// any id is missing, inactive or owned by another user, naming the
// offenders in the error details.
func (s *TaskService) validateTagIDs(ctx context.Context, userID uuid.UUID, tagIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(tagIDs) == 0 {
		return tagIDs, nil
	}

	seen := make(map[uuid.UUID]struct{}, len(tagIDs))
	unique := make([]uuid.UUID, 0, len(tagIDs))
	for _, id := range tagIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	valid, err := s.tags.FilterActiveIDs(ctx, userID, unique)
	if err != nil {
		return nil, storeErr("tag", err)
	}

	var invalid []string
	for _, id := range unique {
		if _, ok := valid[id]; !ok {
			invalid = append(invalid, id.String())
		}
	}
	if len(invalid) > 0 {
		return nil, apperror.Validation("unknown or inactive tag ids", invalid...)
	}
	return unique, nil
}

// stampCompletion sets CompletedAt when a task enters done and clears it
// when the task leaves.
func stampCompletion(task *model.Task, newStatus string, now func() time.Time) {
	switch {
	case newStatus == model.StatusDone && task.Status != model.StatusDone:
		t := now().UTC()
		task.CompletedAt = &t
	case newStatus != model.StatusDone && task.Status == model.StatusDone:
		task.CompletedAt = nil
	}
}

func pageWindow(page, perPage int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return (page - 1) * perPage, perPage
}

// storeErr translates repository sentinels into coded errors. Ownership
// mismatches were already collapsed into not-found by the owner-scoped
// queries, so nothing here leaks another user's data.
func storeErr(resource string, err error) error {
	switch {
	case errors.Is(err, repository.ErrTaskNotFound),
		errors.Is(err, repository.ErrTagNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return apperror.NotFound(resource)
	case errors.Is(err, repository.ErrDuplicate):
		return apperror.Conflict(resource + " already exists")
	default:
		return apperror.Wrap(apperror.CodeStore, "storage failure", err)
	}
}
