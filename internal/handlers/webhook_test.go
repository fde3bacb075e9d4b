package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/webhook"
)

const testSecret = "test-webhook-secret"

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeCallStore struct {
	calls   map[string]*models.Call
	getErr  error
	saveErr error
	byID    map[uuid.UUID]*models.Call
}

func newFakeCallStore() *fakeCallStore {
	return &fakeCallStore{
		calls: make(map[string]*models.Call),
		byID:  make(map[uuid.UUID]*models.Call),
	}
}

func (f *fakeCallStore) CreateIfAbsent(_ context.Context, call *models.Call) (*models.Call, bool, error) {
	if f.saveErr != nil {
		return nil, false, f.saveErr
	}
	if existing, ok := f.calls[call.ExternalID]; ok {
		return existing, false, nil
	}
	stored := *call
	stored.ID = uuid.New()
	f.calls[call.ExternalID] = &stored
	f.byID[stored.ID] = &stored
	return &stored, true, nil
}

func (f *fakeCallStore) GetByID(_ context.Context, id uuid.UUID) (*models.Call, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.byID[id], nil
}

type fakeDispatcher struct {
	dispatched []uuid.UUID
	err        error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, callID uuid.UUID) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.dispatched = append(f.dispatched, callID)
	return fmt.Sprintf("msg-%d", len(f.dispatched)), nil
}

type fakeEmitter struct {
	received []uuid.UUID
	err      error
}

func (f *fakeEmitter) EmitCallReceived(_ context.Context, call *models.Call) error {
	if f.err != nil {
		return f.err
	}
	f.received = append(f.received, call.ID)
	return nil
}

type webhookFixture struct {
	e          *echo.Echo
	calls      *fakeCallStore
	dispatcher *fakeDispatcher
	emitter    *fakeEmitter
}

func newWebhookFixture(t *testing.T, simulation bool) *webhookFixture {
	t.Helper()

	f := &webhookFixture{
		e:          echo.New(),
		calls:      newFakeCallStore(),
		dispatcher: &fakeDispatcher{},
		emitter:    &fakeEmitter{},
	}
	f.e.HTTPErrorHandler = middleware.Error(noopLogger())

	h := NewWebhookHandler(f.calls, f.dispatcher, f.emitter, testSecret, simulation, noopLogger())
	h.RegisterRoutes(f.e)
	return f
}

func (f *webhookFixture) post(path string, body []byte, sign bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if sign {
		req.Header.Set(webhook.SignatureHeader, webhook.ComputeSignature(body, testSecret))
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func callEndedPayload(externalID string, recordingURL string) []byte {
	data := map[string]any{
		"call_id":    externalID,
		"direction":  "inbound",
		"caller":     map[string]any{"number": "+15551230001", "name": "Dana"},
		"called":     map[string]any{"number": "+15551239999", "name": "Support"},
		"start_time": time.Now().Add(-5 * time.Minute).Format(time.RFC3339),
		"end_time":   time.Now().Format(time.RFC3339),
		"duration":   300,
		"status":     "completed",
	}
	if recordingURL != "" {
		data["recording_url"] = recordingURL
	}
	body, _ := json.Marshal(map[string]any{
		"event_type": "call.ended",
		"timestamp":  time.Now().Format(time.RFC3339),
		"data":       data,
	})
	return body
}

func decodeWebhookResponse(t *testing.T, rec *httptest.ResponseRecorder) models.WebhookResponse {
	t.Helper()
	var resp models.WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCallEnded_Accepted(t *testing.T) {
	f := newWebhookFixture(t, false)

	rec := f.post("/webhooks/goto/call-ended", callEndedPayload("ext-1", "https://cdn.example.com/rec.mp3"), true)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeWebhookResponse(t, rec)
	assert.Equal(t, models.WebhookStatusAccepted, resp.Status)
	assert.NotEmpty(t, resp.CallID)

	require.Len(t, f.dispatcher.dispatched, 1)
	require.Len(t, f.emitter.received, 1)
	assert.Equal(t, resp.CallID, f.dispatcher.dispatched[0].String())
}

func TestCallEnded_DuplicateIsIdempotent(t *testing.T) {
	f := newWebhookFixture(t, false)
	body := callEndedPayload("ext-dup", "https://cdn.example.com/rec.mp3")

	first := f.post("/webhooks/goto/call-ended", body, true)
	second := f.post("/webhooks/goto/call-ended", body, true)

	require.Equal(t, http.StatusOK, second.Code)
	firstResp := decodeWebhookResponse(t, first)
	secondResp := decodeWebhookResponse(t, second)

	assert.Equal(t, models.WebhookStatusDuplicate, secondResp.Status)
	assert.Equal(t, firstResp.CallID, secondResp.CallID)
	assert.Len(t, f.dispatcher.dispatched, 1, "duplicate delivery must not enqueue a second job")
	assert.Len(t, f.emitter.received, 1)
}

func TestCallEnded_NoRecordingSkipsDispatch(t *testing.T) {
	f := newWebhookFixture(t, false)

	rec := f.post("/webhooks/goto/call-ended", callEndedPayload("ext-norec", ""), true)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeWebhookResponse(t, rec)
	assert.Equal(t, models.WebhookStatusAccepted, resp.Status)
	assert.Empty(t, f.dispatcher.dispatched)
}

func TestCallEnded_IgnoredEventType(t *testing.T) {
	f := newWebhookFixture(t, false)
	body, _ := json.Marshal(map[string]any{
		"event_type": "call.started",
		"data":       map[string]any{"call_id": "ext-2"},
	})

	rec := f.post("/webhooks/goto/call-ended", body, true)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeWebhookResponse(t, rec)
	assert.Equal(t, models.WebhookStatusIgnored, resp.Status)
	assert.Empty(t, resp.CallID)
	assert.Empty(t, f.calls.calls)
}

func TestCallEnded_InvalidSignature(t *testing.T) {
	f := newWebhookFixture(t, false)
	body := callEndedPayload("ext-3", "")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/goto/call-ended", bytes.NewReader(body))
	req.Header.Set(webhook.SignatureHeader, "deadbeef")
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.calls.calls)
}

func TestCallEnded_MissingSignature(t *testing.T) {
	f := newWebhookFixture(t, false)

	rec := f.post("/webhooks/goto/call-ended", callEndedPayload("ext-4", ""), false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallEnded_MalformedPayload(t *testing.T) {
	f := newWebhookFixture(t, false)
	body, _ := json.Marshal(map[string]any{
		"event_type": "call.ended",
		"data":       map[string]any{"direction": "sideways"},
	})

	rec := f.post("/webhooks/goto/call-ended", body, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.calls.calls)
}

func TestCallEnded_DispatchFailureStillAccepts(t *testing.T) {
	f := newWebhookFixture(t, false)
	f.dispatcher.err = errors.New("redis down")

	rec := f.post("/webhooks/goto/call-ended", callEndedPayload("ext-5", "https://cdn.example.com/rec.mp3"), true)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeWebhookResponse(t, rec)
	assert.Equal(t, models.WebhookStatusAccepted, resp.Status)
	assert.Len(t, f.calls.calls, 1, "call row must survive the dispatch failure")
}

func TestManualProcess(t *testing.T) {
	f := newWebhookFixture(t, false)

	created := f.post("/webhooks/goto/call-ended", callEndedPayload("ext-6", "https://cdn.example.com/rec.mp3"), true)
	callID := decodeWebhookResponse(t, created).CallID
	f.dispatcher.dispatched = nil

	rec := f.post("/webhooks/goto/manual-process/"+callID, nil, false)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeWebhookResponse(t, rec)
	assert.Equal(t, models.WebhookStatusAccepted, resp.Status)
	assert.Len(t, f.dispatcher.dispatched, 1)
}

func TestManualProcess_UnknownCall(t *testing.T) {
	f := newWebhookFixture(t, false)

	rec := f.post("/webhooks/goto/manual-process/"+uuid.NewString(), nil, false)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestManualProcess_InvalidID(t *testing.T) {
	f := newWebhookFixture(t, false)

	rec := f.post("/webhooks/goto/manual-process/not-a-uuid", nil, false)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestManualProcess_NoRecording(t *testing.T) {
	f := newWebhookFixture(t, false)

	created := f.post("/webhooks/goto/call-ended", callEndedPayload("ext-7", ""), true)
	callID := decodeWebhookResponse(t, created).CallID

	rec := f.post("/webhooks/goto/manual-process/"+callID, nil, false)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.dispatcher.dispatched)
}

func TestSimulate_OnlyMountedInSimulationMode(t *testing.T) {
	disabled := newWebhookFixture(t, false)
	rec := disabled.post("/webhooks/goto/simulate", callEndedPayload("ext-8", ""), false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	enabled := newWebhookFixture(t, true)
	rec = enabled.post("/webhooks/goto/simulate", callEndedPayload("ext-8", ""), false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.WebhookStatusAccepted, decodeWebhookResponse(t, rec).Status)
}

func TestWebhookHealth(t *testing.T) {
	f := newWebhookFixture(t, false)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/health", nil)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
