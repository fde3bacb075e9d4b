package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeActionItemStore struct {
	items      map[uuid.UUID]*models.ActionItem
	lastFilter models.ListActionItemsFilter
}

func newFakeActionItemStore() *fakeActionItemStore {
	return &fakeActionItemStore{items: make(map[uuid.UUID]*models.ActionItem)}
}

func (f *fakeActionItemStore) GetByID(_ context.Context, id uuid.UUID) (*models.ActionItem, error) {
	return f.items[id], nil
}

func (f *fakeActionItemStore) List(_ context.Context, filter models.ListActionItemsFilter) ([]models.ActionItem, int, error) {
	f.lastFilter = filter
	var out []models.ActionItem
	for _, item := range f.items {
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (f *fakeActionItemStore) Update(_ context.Context, id uuid.UUID, req models.UpdateActionItemRequest) (*models.ActionItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Assignee != nil {
		item.Assignee = req.Assignee
	}
	if req.Priority != nil {
		item.Priority = *req.Priority
	}
	return item, nil
}

func (f *fakeActionItemStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.ActionItemStatus) (*models.ActionItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	item.Status = status
	if status == models.ActionItemCompleted {
		now := time.Now()
		item.CompletedAt = &now
	} else {
		item.CompletedAt = nil
	}
	return item, nil
}

func (f *fakeActionItemStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := f.items[id]; !ok {
		return false, nil
	}
	delete(f.items, id)
	return true, nil
}

type itemAPIFixture struct {
	e     *echo.Echo
	store *fakeActionItemStore
}

func newItemAPIFixture(t *testing.T) *itemAPIFixture {
	t.Helper()

	f := &itemAPIFixture{e: echo.New(), store: newFakeActionItemStore()}
	f.e.HTTPErrorHandler = middleware.Error(noopLogger())

	h := NewActionItemHandler(f.store, noopLogger())
	h.RegisterRoutes(f.e.Group("/api/v1"))
	return f
}

func (f *itemAPIFixture) request(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *itemAPIFixture) seedItem() *models.ActionItem {
	item := &models.ActionItem{
		ID:          uuid.New(),
		CallID:      uuid.New(),
		Description: "follow up on billing question",
		Priority:    3,
		Status:      models.ActionItemPending,
	}
	f.store.items[item.ID] = item
	return item
}

func TestListActionItems_Filters(t *testing.T) {
	f := newItemAPIFixture(t)
	f.seedItem()
	callID := uuid.New()

	rec := f.request(http.MethodGet, "/api/v1/action-items?status=pending&assignee=sam&priority=4&call_id="+callID.String(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.store.lastFilter.Status)
	assert.Equal(t, models.ActionItemPending, *f.store.lastFilter.Status)
	require.NotNil(t, f.store.lastFilter.Assignee)
	assert.Equal(t, "sam", *f.store.lastFilter.Assignee)
	require.NotNil(t, f.store.lastFilter.Priority)
	assert.Equal(t, 4, *f.store.lastFilter.Priority)
	require.NotNil(t, f.store.lastFilter.CallID)
	assert.Equal(t, callID, *f.store.lastFilter.CallID)
}

func TestListActionItems_InvalidFilters(t *testing.T) {
	f := newItemAPIFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.request(http.MethodGet, "/api/v1/action-items?status=done", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.request(http.MethodGet, "/api/v1/action-items?priority=9", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.request(http.MethodGet, "/api/v1/action-items?call_id=nope", nil).Code)
}

func TestGetActionItem(t *testing.T) {
	f := newItemAPIFixture(t)
	item := f.seedItem()

	rec := f.request(http.MethodGet, "/api/v1/action-items/"+item.ID.String(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.ActionItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, item.ID, got.ID)
}

func TestGetActionItem_NotFound(t *testing.T) {
	f := newItemAPIFixture(t)

	rec := f.request(http.MethodGet, "/api/v1/action-items/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateActionItem(t *testing.T) {
	f := newItemAPIFixture(t)
	item := f.seedItem()

	rec := f.request(http.MethodPatch, "/api/v1/action-items/"+item.ID.String(), map[string]any{
		"assignee": "sam",
		"priority": 5,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.ActionItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.Assignee)
	assert.Equal(t, "sam", *got.Assignee)
	assert.Equal(t, 5, got.Priority)
}

func TestUpdateActionItem_InvalidPriority(t *testing.T) {
	f := newItemAPIFixture(t)
	item := f.seedItem()

	rec := f.request(http.MethodPatch, "/api/v1/action-items/"+item.ID.String(), map[string]any{
		"priority": 7,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateActionItemStatus(t *testing.T) {
	f := newItemAPIFixture(t)
	item := f.seedItem()

	rec := f.request(http.MethodPut, "/api/v1/action-items/"+item.ID.String()+"/status", map[string]any{
		"status": "completed",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.ActionItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.ActionItemCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
}

func TestDeleteActionItem(t *testing.T) {
	f := newItemAPIFixture(t)
	item := f.seedItem()

	rec := f.request(http.MethodDelete, "/api/v1/action-items/"+item.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.store.items)

	rec = f.request(http.MethodDelete, "/api/v1/action-items/"+item.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateActionItemStatus_Invalid(t *testing.T) {
	f := newItemAPIFixture(t)
	item := f.seedItem()

	rec := f.request(http.MethodPut, "/api/v1/action-items/"+item.ID.String()+"/status", map[string]any{
		"status": "done",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
