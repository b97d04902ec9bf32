package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskboard/internal/model"
	"taskboard/internal/repository"
	"taskboard/internal/service"
)

type TaskHandler struct {
	tasks *service.TaskService
}

func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type createTaskRequest struct {
	Title       string     `json:"title" binding:"required,min=1,max=200"`
	Description string     `json:"description" binding:"max=2000"`
	Status      string     `json:"status" binding:"omitempty,oneof=todo in_progress done archived"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time `json:"due_date"`
	TagIDs      []string   `json:"tag_ids" binding:"omitempty,dive,uuid"`
}

type updateTaskRequest struct {
	Title        *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description  *string    `json:"description" binding:"omitempty,max=2000"`
	Status       *string    `json:"status" binding:"omitempty,oneof=todo in_progress done archived"`
	Priority     *string    `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
	TagIDs       *[]string  `json:"tag_ids" binding:"omitempty,dive,uuid"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=todo in_progress done archived"`
}

type reorderRequest struct {
	TaskID   string `json:"task_id" binding:"required,uuid"`
	Status   string `json:"status" binding:"omitempty,oneof=todo in_progress done archived"`
	Position *int   `json:"position" binding:"required,min=0"`
}

func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	tagIDs, err := parseUUIDs(req.TagIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID format"})
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), userID, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		TagIDs:      tagIDs,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTaskResponse(task))
}

func (h *TaskHandler) GetByID(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	task, err := h.tasks.Get(c.Request.Context(), userID, taskID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

// List supports filtering, sorting and pagination via query parameters.
// Multi-valued filters accept repeated parameters or comma-separated
// lists.
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	filter := repository.TaskFilter{
		Statuses:   splitMulti(c.QueryArray("status")),
		Priorities: splitMulti(c.QueryArray("priority")),
		TagNames:   splitMulti(c.QueryArray("tag")),
		Search:     c.Query("search"),
	}

	for _, s := range filter.Statuses {
		if !model.ValidStatus(s) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}
	}
	for _, p := range filter.Priorities {
		if !model.ValidPriority(p) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority filter"})
			return
		}
	}

	tagIDs, err := parseUUIDs(splitMulti(c.QueryArray("tag_id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID format"})
		return
	}
	filter.TagIDs = tagIDs

	if filter.DueFrom, err = parseTimeParam(c, "due_from"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid due_from, expected RFC3339"})
		return
	}
	if filter.DueTo, err = parseTimeParam(c, "due_to"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid due_to, expected RFC3339"})
		return
	}

	if raw := c.Query("overdue"); raw != "" {
		overdue, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid overdue flag"})
			return
		}
		filter.Overdue = &overdue
	}

	page, perPage := pageParams(c)
	tasks, total, err := h.tasks.List(c.Request.Context(), userID, service.ListTasksInput{
		Filter:  filter,
		SortBy:  c.Query("sort_by"),
		Order:   c.Query("order"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": newTaskListResponse(tasks),
		"meta":  ListMeta{Total: total, Page: page, PerPage: perPage},
	})
}

func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	in := service.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
	}
	if req.TagIDs != nil {
		tagIDs, err := parseUUIDs(*req.TagIDs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID format"})
			return
		}
		if tagIDs == nil {
			tagIDs = []uuid.UUID{}
		}
		in.TagIDs = tagIDs
	}

	task, err := h.tasks.Update(c.Request.Context(), userID, taskID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	task, err := h.tasks.UpdateStatus(c.Request.Context(), userID, taskID, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

// Reorder is the drag-and-drop move: it places a task at an index within
// a status partition, possibly crossing partitions.
func (h *TaskHandler) Reorder(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	task, err := h.tasks.Reorder(c.Request.Context(), userID, taskID, req.Status, *req.Position)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), userID, taskID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) AddTag(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}
	tagID, err := uuid.Parse(c.Param("tag_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID format"})
		return
	}

	if err := h.tasks.AttachTag(c.Request.Context(), userID, taskID, tagID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tag added to task successfully"})
}

func (h *TaskHandler) RemoveTag(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}
	tagID, err := uuid.Parse(c.Param("tag_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID format"})
		return
	}

	if err := h.tasks.DetachTag(c.Request.Context(), userID, taskID, tagID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tag removed from task successfully"})
}

// ListByStatus returns one partition in display order.
func (h *TaskHandler) ListByStatus(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	page, perPage := pageParams(c)
	tasks, err := h.tasks.ListByStatus(c.Request.Context(), userID, c.Param("status"), page, perPage)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskListResponse(tasks))
}

func (h *TaskHandler) ListOverdue(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	page, perPage := pageParams(c)
	tasks, err := h.tasks.ListOverdue(c.Request.Context(), userID, page, perPage)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskListResponse(tasks))
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// splitMulti flattens repeated query parameters and comma-separated
// values into one list.
func splitMulti(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseTimeParam(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func pageParams(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(service.DefaultPerPage)))
	return page, perPage
}
