package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"taskboard/internal/model"
)

func TestTask_IsOverdue(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	// No due date, never overdue
	task := &model.Task{Status: model.StatusTodo}
	assert.False(t, task.IsOverdue(now))

	// Past due and still open
	task.DueDate = &past
	assert.True(t, task.IsOverdue(now))

	// Completing clears the overdue state
	task.Status = model.StatusDone
	assert.False(t, task.IsOverdue(now))

	// Due in the future
	task = &model.Task{Status: model.StatusInProgress, DueDate: &future}
	assert.False(t, task.IsOverdue(now))
}

func TestValidStatusAndPriority(t *testing.T) {
	assert.True(t, model.ValidStatus(model.StatusInProgress))
	assert.False(t, model.ValidStatus("on_hold"))

	assert.True(t, model.ValidPriority(model.PriorityUrgent))
	assert.False(t, model.ValidPriority("critical"))
}
