package handlers

import (
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
	"github.com/Ramsey-B/fern/pkg/redis"
)

type fakeDLQStore struct {
	entries map[string]*redis.DLQEntry
	retried []string
}

func newFakeDLQStore() *fakeDLQStore {
	return &fakeDLQStore{entries: make(map[string]*redis.DLQEntry)}
}

func (f *fakeDLQStore) Count(_ context.Context) (int64, error) {
	return int64(len(f.entries)), nil
}

func (f *fakeDLQStore) List(_ context.Context, _ int64) ([]redis.DLQEntry, error) {
	var out []redis.DLQEntry
	for _, entry := range f.entries {
		out = append(out, *entry)
	}
	return out, nil
}

func (f *fakeDLQStore) Get(_ context.Context, messageID string) (*redis.DLQEntry, error) {
	return f.entries[messageID], nil
}

func (f *fakeDLQStore) Delete(_ context.Context, messageID string) error {
	if _, ok := f.entries[messageID]; !ok {
		return redis.ErrEntryNotFound
	}
	delete(f.entries, messageID)
	return nil
}

func (f *fakeDLQStore) Retry(_ context.Context, messageID string) error {
	if _, ok := f.entries[messageID]; !ok {
		return redis.ErrEntryNotFound
	}
	f.retried = append(f.retried, messageID)
	delete(f.entries, messageID)
	return nil
}

type dlqAPIFixture struct {
	e     *echo.Echo
	store *fakeDLQStore
}

func newDLQAPIFixture(t *testing.T) *dlqAPIFixture {
	t.Helper()

	f := &dlqAPIFixture{e: echo.New(), store: newFakeDLQStore()}
	f.e.HTTPErrorHandler = middleware.Error(noopLogger())

	h := NewDLQHandler(f.store, noopLogger())
	h.RegisterRoutes(f.e.Group("/api/v1"))
	return f
}

func (f *dlqAPIFixture) request(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *dlqAPIFixture) seedEntry() *redis.DLQEntry {
	messageID := "1693000000000-0"
	entry := &redis.DLQEntry{
		ID:     uuid.NewString(),
		CallID: uuid.NewString(),
		OriginalJob: &redis.JobMessage{
			ID:     uuid.NewString(),
			Type:   "call_processing",
			CallID: uuid.NewString(),
		},
		Reason:       redis.DLQReasonMaxRetries,
		ErrorMessage: "transcription backend unavailable",
		RetryCount:   3,
		CreatedAt:    time.Now(),
	}
	f.store.entries[messageID] = entry
	return entry
}

func TestListDLQEntries(t *testing.T) {
	f := newDLQAPIFixture(t)
	f.seedEntry()

	rec := f.request(http.MethodGet, "/api/v1/admin/dlq")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DLQListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.TotalCount)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, redis.DLQReasonMaxRetries, resp.Entries[0].Reason)
}

func TestListDLQEntries_Empty(t *testing.T) {
	f := newDLQAPIFixture(t)

	rec := f.request(http.MethodGet, "/api/v1/admin/dlq")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DLQListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.TotalCount)
	assert.NotNil(t, resp.Entries)
}

func TestListDLQEntries_InvalidLimit(t *testing.T) {
	f := newDLQAPIFixture(t)

	rec := f.request(http.MethodGet, "/api/v1/admin/dlq?limit=zero")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDLQEntry(t *testing.T) {
	f := newDLQAPIFixture(t)
	seeded := f.seedEntry()

	rec := f.request(http.MethodGet, "/api/v1/admin/dlq/1693000000000-0")

	require.Equal(t, http.StatusOK, rec.Code)
	var got redis.DLQEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, seeded.ID, got.ID)
	assert.Equal(t, seeded.CallID, got.CallID)
}

func TestGetDLQEntry_NotFound(t *testing.T) {
	f := newDLQAPIFixture(t)

	rec := f.request(http.MethodGet, "/api/v1/admin/dlq/1693000000000-0")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRetryDLQEntry(t *testing.T) {
	f := newDLQAPIFixture(t)
	f.seedEntry()

	rec := f.request(http.MethodPost, "/api/v1/admin/dlq/1693000000000-0/retry")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"1693000000000-0"}, f.store.retried)
	assert.Empty(t, f.store.entries, "retried entry removed from the queue")
}

func TestRetryDLQEntry_NotFound(t *testing.T) {
	f := newDLQAPIFixture(t)

	rec := f.request(http.MethodPost, "/api/v1/admin/dlq/1693000000000-0/retry")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteDLQEntry(t *testing.T) {
	f := newDLQAPIFixture(t)
	f.seedEntry()

	rec := f.request(http.MethodDelete, "/api/v1/admin/dlq/1693000000000-0")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.request(http.MethodDelete, "/api/v1/admin/dlq/1693000000000-0")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
