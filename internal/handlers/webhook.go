package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/webhook"
)

// CallIngestStore is the call persistence the webhook path needs.
type CallIngestStore interface {
	CreateIfAbsent(ctx context.Context, call *models.Call) (*models.Call, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Call, error)
}

// JobDispatcher enqueues call processing jobs.
type JobDispatcher interface {
	Dispatch(ctx context.Context, callID uuid.UUID) (string, error)
}

// ReceivedEmitter publishes the call.received event.
type ReceivedEmitter interface {
	EmitCallReceived(ctx context.Context, call *models.Call) error
}

// WebhookHandler ingests telephony platform webhooks and hands accepted
// calls to the processing queue.
type WebhookHandler struct {
	calls      CallIngestStore
	dispatcher JobDispatcher
	emitter    ReceivedEmitter
	secret     string
	simulation bool
	logger     ectologger.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(
	calls CallIngestStore,
	dispatcher JobDispatcher,
	emitter ReceivedEmitter,
	secret string,
	simulation bool,
	logger ectologger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		calls:      calls,
		dispatcher: dispatcher,
		emitter:    emitter,
		secret:     secret,
		simulation: simulation,
		logger:     logger,
	}
}

// CallEnded ingests a call.ended webhook
// POST /webhooks/goto/call-ended
func (h *WebhookHandler) CallEnded(c echo.Context) error {
	ctx := c.Request().Context()

	// the signature covers the raw body, so read it before any parsing
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return BadRequest("failed to read request body")
	}

	signature := c.Request().Header.Get(webhook.SignatureHeader)
	if !webhook.VerifySignature(body, signature, h.secret) {
		h.logger.WithContext(ctx).Warn("Rejected webhook with invalid signature")
		metrics.WebhooksReceivedTotal.WithLabelValues("rejected").Inc()
		return Unauthorized("invalid webhook signature")
	}

	return h.ingest(c, body)
}

// Simulate ingests a payload without signature verification. Only mounted
// when simulation mode is enabled; used for local development and demos.
// POST /webhooks/goto/simulate
func (h *WebhookHandler) Simulate(c echo.Context) error {
	if !h.simulation {
		return NotFound("not found")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return BadRequest("failed to read request body")
	}

	return h.ingest(c, body)
}

func (h *WebhookHandler) ingest(c echo.Context, body []byte) error {
	ctx := c.Request().Context()

	event, err := webhook.ParseCallEnded(body)
	if err != nil {
		if errors.Is(err, webhook.ErrIgnoredEvent) {
			h.logger.WithContext(ctx).WithFields(map[string]any{
				"event_type": eventTypeOf(body),
			}).Info("Ignoring webhook event type")
			metrics.WebhooksReceivedTotal.WithLabelValues(models.WebhookStatusIgnored).Inc()
			return SuccessResponse(c, models.WebhookResponse{
				Status:  models.WebhookStatusIgnored,
				Message: "event type does not trigger processing",
			})
		}
		metrics.WebhooksReceivedTotal.WithLabelValues("malformed").Inc()
		return BadRequest(err.Error())
	}

	call, created, err := h.calls.CreateIfAbsent(ctx, event.ToCall(time.Now()))
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to persist call")
		return err
	}

	if !created {
		metrics.WebhooksReceivedTotal.WithLabelValues(models.WebhookStatusDuplicate).Inc()
		return SuccessResponse(c, models.WebhookResponse{
			Status:  models.WebhookStatusDuplicate,
			Message: "call already ingested",
			CallID:  call.ID.String(),
		})
	}

	if err := h.emitter.EmitCallReceived(ctx, call); err != nil {
		h.logger.WithContext(ctx).WithError(err).Warn("Failed to emit call.received event")
	}

	if call.HasRecording() {
		if _, err := h.dispatcher.Dispatch(ctx, call.ID); err != nil {
			// the call row is durable; an operator can re-dispatch via the
			// manual endpoint, so the webhook still succeeds
			h.logger.WithContext(ctx).WithError(err).Error("Failed to enqueue call processing job")
		}
	} else {
		h.logger.WithContext(ctx).WithFields(map[string]any{
			"call_id": call.ID,
		}).Info("Call has no recording, skipping pipeline")
	}

	metrics.WebhooksReceivedTotal.WithLabelValues(models.WebhookStatusAccepted).Inc()
	return SuccessResponse(c, models.WebhookResponse{
		Status:  models.WebhookStatusAccepted,
		Message: "call queued for processing",
		CallID:  call.ID.String(),
	})
}

// ManualProcess re-runs the full pipeline for an existing call
// POST /webhooks/goto/manual-process/:call_id
func (h *WebhookHandler) ManualProcess(c echo.Context) error {
	ctx := c.Request().Context()

	callID, err := ParseUUID(c, "call_id")
	if err != nil {
		return err
	}

	call, err := h.calls.GetByID(ctx, callID)
	if err != nil {
		return err
	}
	if call == nil {
		return NotFound("call %s not found", callID)
	}
	if !call.HasRecording() {
		return BadRequest("call has no recording URL on file")
	}

	messageID, err := h.dispatcher.Dispatch(ctx, call.ID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to enqueue manual processing job")
		return err
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"call_id":    call.ID,
		"message_id": messageID,
	}).Info("Manually enqueued call for processing")

	return SuccessResponse(c, models.WebhookResponse{
		Status:  models.WebhookStatusAccepted,
		Message: "call queued for reprocessing",
		CallID:  call.ID.String(),
	})
}

// Health is the webhook liveness probe
// GET /webhooks/health
func (h *WebhookHandler) Health(c echo.Context) error {
	return SuccessResponse(c, map[string]string{"status": "ok"})
}

// RegisterRoutes registers the webhook routes. These sit outside the
// authenticated API group; the HMAC signature is their authentication.
func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/webhooks")
	g.GET("/health", h.Health)
	g.POST("/goto/call-ended", h.CallEnded)
	g.POST("/goto/manual-process/:call_id", h.ManualProcess)
	if h.simulation {
		g.POST("/goto/simulate", h.Simulate)
	}
}

// eventTypeOf best-effort extracts the event type for logging
func eventTypeOf(body []byte) string {
	var probe struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.EventType == "" {
		return "unknown"
	}
	return probe.EventType
}
