package model

import (
	"time"

	"github.com/google/uuid"
)

// Task statuses. Each (user, status) pair forms an independent ordering
// partition.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusArchived   = "archived"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// PositionStep is the spacing between ordering keys of freshly numbered
// partitions. Gaps between neighbors absorb most moves; a full renumber
// happens only when a gap is exhausted.
const PositionStep int64 = 1000

type Task struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_tasks_user_status_position,priority:1"`
	Title       string    `gorm:"not null"`
	Description string
	Status      string `gorm:"not null;default:'todo';uniqueIndex:uq_tasks_user_status_position,priority:2"`
	Priority    string `gorm:"not null;default:'medium'"`
	DueDate     *time.Time
	CompletedAt *time.Time
	Position    int64 `gorm:"not null;uniqueIndex:uq_tasks_user_status_position,priority:3"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Owner User  `gorm:"foreignKey:UserID"`
	Tags  []Tag `gorm:"many2many:task_tags"`
}

// ValidStatus reports whether s is one of the four task statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusArchived:
		return true
	}
	return false
}

// ValidPriority reports whether p is one of the four task priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// IsOverdue treats completed tasks as never overdue.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusDone {
		return false
	}
	return t.DueDate.Before(now)
}
