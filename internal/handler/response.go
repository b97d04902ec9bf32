package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskboard/internal/apperror"
	"taskboard/internal/middleware"
	"taskboard/internal/model"
)

// writeError maps coded application errors onto HTTP statuses. Anything
// unclassified is a storage failure and must not leak its cause.
func writeError(c *gin.Context, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) || appErr.Code == apperror.CodeStore {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var status int
	switch appErr.Code {
	case apperror.CodeNotFound:
		status = http.StatusNotFound
	case apperror.CodeValidation:
		status = http.StatusBadRequest
	case apperror.CodeConflict:
		status = http.StatusConflict
	case apperror.CodeUnauthorized:
		status = http.StatusUnauthorized
	default:
		status = http.StatusInternalServerError
	}

	body := gin.H{"error": appErr.Message}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.JSON(status, body)
}

// currentUserID pulls the authenticated user's id out of the context set
// by the auth middleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// requireUserID is the guard every protected handler opens with.
func requireUserID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	}
	return id, ok
}

type UserResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	IsVerified  bool    `json:"is_verified"`
	LastLoginAt *string `json:"last_login_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type TagResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Description *string `json:"description,omitempty"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type TaskResponse struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Priority    string        `json:"priority"`
	DueDate     *string       `json:"due_date,omitempty"`
	CompletedAt *string       `json:"completed_at,omitempty"`
	Position    int64         `json:"position"`
	Tags        []TagResponse `json:"tags"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
}

// ListMeta is the pagination envelope wrapped around list payloads.
type ListMeta struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

func newUserResponse(u *model.User) UserResponse {
	resp := UserResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		IsVerified:  u.IsVerified,
		CreatedAt:   u.CreatedAt.Format(time.RFC3339),
	}
	if u.LastLoginAt != nil {
		s := u.LastLoginAt.Format(time.RFC3339)
		resp.LastLoginAt = &s
	}
	return resp
}

func newTagResponse(t *model.Tag) TagResponse {
	return TagResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		Color:       t.Color,
		Description: t.Description,
		IsActive:    t.IsActive,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.Format(time.RFC3339),
	}
}

func newTaskResponse(t *model.Task) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Position:    t.Position,
		Tags:        make([]TagResponse, 0, len(t.Tags)),
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.Format(time.RFC3339),
	}
	if t.DueDate != nil {
		s := t.DueDate.Format(time.RFC3339)
		resp.DueDate = &s
	}
	if t.CompletedAt != nil {
		s := t.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	for i := range t.Tags {
		resp.Tags = append(resp.Tags, newTagResponse(&t.Tags[i]))
	}
	return resp
}

func newTaskListResponse(tasks []model.Task) []TaskResponse {
	out := make([]TaskResponse, len(tasks))
	for i := range tasks {
		out[i] = newTaskResponse(&tasks[i])
	}
	return out
}
