package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskboard/internal/handler"
	"taskboard/internal/middleware"
	"taskboard/internal/model"
	"taskboard/internal/repository"
	"taskboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockTagStore struct {
	mock.Mock
}

func (m *MockTagStore) Create(ctx context.Context, tag *model.Tag) error {
	args := m.Called(ctx, tag)
	return args.Error(0)
}

func (m *MockTagStore) GetByUser(ctx context.Context, userID, tagID uuid.UUID) (*model.Tag, error) {
	args := m.Called(ctx, userID, tagID)
	tag := args.Get(0)
	if tag == nil {
		return nil, args.Error(1)
	}
	return tag.(*model.Tag), args.Error(1)
}

func (m *MockTagStore) ListByUser(ctx context.Context, userID uuid.UUID, includeInactive bool, search string, offset, limit int) ([]model.Tag, int64, error) {
	args := m.Called(ctx, userID, includeInactive, search, offset, limit)
	return args.Get(0).([]model.Tag), args.Get(1).(int64), args.Error(2)
}

func (m *MockTagStore) FilterActiveIDs(ctx context.Context, userID uuid.UUID, tagIDs []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	args := m.Called(ctx, userID, tagIDs)
	return args.Get(0).(map[uuid.UUID]struct{}), args.Error(1)
}

func (m *MockTagStore) Update(ctx context.Context, tag *model.Tag) error {
	args := m.Called(ctx, tag)
	return args.Error(0)
}

func (m *MockTagStore) Deactivate(ctx context.Context, userID, tagID uuid.UUID) error {
	args := m.Called(ctx, userID, tagID)
	return args.Error(0)
}

func setupTagRouter(userID uuid.UUID) (*gin.Engine, *MockTagStore) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	store := new(MockTagStore)
	tagHandler := handler.NewTagHandler(service.NewTagService(store))

	r.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(middleware.UserIDKey, userID)
		}
		c.Next()
	})
	r.POST("/tags", tagHandler.Create)
	r.GET("/tags/:id", tagHandler.GetByID)
	return r, store
}

func TestTagHandler_Create_Success(t *testing.T) {
	userID := uuid.New()
	router, store := setupTagRouter(userID)

	store.On("Create", mock.Anything, mock.AnythingOfType("*model.Tag")).Return(nil)

	body, _ := json.Marshal(map[string]string{"name": "backend"})
	req, _ := http.NewRequest("POST", "/tags", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp handler.TagResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "backend", resp.Name)
	assert.Equal(t, model.DefaultTagColor, resp.Color)
	store.AssertExpectations(t)
}

func TestTagHandler_Create_DuplicateName(t *testing.T) {
	userID := uuid.New()
	router, store := setupTagRouter(userID)

	store.On("Create", mock.Anything, mock.AnythingOfType("*model.Tag")).Return(repository.ErrDuplicate)

	body, _ := json.Marshal(map[string]string{"name": "backend"})
	req, _ := http.NewRequest("POST", "/tags", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "tag name already in use")
}

func TestTagHandler_Create_InvalidColor(t *testing.T) {
	router, _ := setupTagRouter(uuid.New())

	body, _ := json.Marshal(map[string]string{"name": "backend", "color": "not-a-color"})
	req, _ := http.NewRequest("POST", "/tags", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTagHandler_GetByID_NotFound(t *testing.T) {
	userID := uuid.New()
	router, store := setupTagRouter(userID)

	tagID := uuid.New()
	store.On("GetByUser", mock.Anything, userID, tagID).Return(nil, repository.ErrTagNotFound)

	req, _ := http.NewRequest("GET", "/tags/"+tagID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTagHandler_GetByID_InvalidID(t *testing.T) {
	router, _ := setupTagRouter(uuid.New())

	req, _ := http.NewRequest("GET", "/tags/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid tag ID format")
}

func TestTagHandler_NoAuthContext(t *testing.T) {
	router, _ := setupTagRouter(uuid.Nil)

	req, _ := http.NewRequest("GET", "/tags/"+uuid.New().String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Not authenticated")
}
