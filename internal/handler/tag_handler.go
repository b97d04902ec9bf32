package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskboard/internal/service"
)

type TagHandler struct {
	tags *service.TagService
}

func NewTagHandler(tags *service.TagService) *TagHandler {
	return &TagHandler{tags: tags}
}

type createTagRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=100"`
	Color       string  `json:"color" binding:"omitempty,hexcolor"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

type updateTagRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Color       *string `json:"color" binding:"omitempty,hexcolor"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

func (h *TagHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req createTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	tag, err := h.tags.Create(c.Request.Context(), userID, service.CreateTagInput{
		Name:        req.Name,
		Color:       req.Color,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTagResponse(tag))
}

func (h *TagHandler) GetByID(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	tagID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID format"})
		return
	}

	tag, err := h.tags.Get(c.Request.Context(), userID, tagID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTagResponse(tag))
}

// List returns the user's active tags; include_inactive widens it to
// soft-deleted ones.
func (h *TagHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	includeInactive := false
	if raw := c.Query("include_inactive"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid include_inactive flag"})
			return
		}
		includeInactive = v
	}

	page, perPage := pageParams(c)
	tags, total, err := h.tags.List(c.Request.Context(), userID, includeInactive, c.Query("search"), page, perPage)
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]TagResponse, len(tags))
	for i := range tags {
		items[i] = newTagResponse(&tags[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"meta":  ListMeta{Total: total, Page: page, PerPage: perPage},
	})
}

func (h *TagHandler) Update(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	tagID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID format"})
		return
	}

	var req updateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	tag, err := h.tags.Update(c.Request.Context(), userID, tagID, service.UpdateTagInput{
		Name:        req.Name,
		Color:       req.Color,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTagResponse(tag))
}

// Delete deactivates the tag and strips it from every task.
func (h *TagHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	tagID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID format"})
		return
	}

	if err := h.tags.Delete(c.Request.Context(), userID, tagID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
