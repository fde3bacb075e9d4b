package handlers

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/models"
)

// CallReadStore is the call lookup surface for the dashboard API.
type CallReadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Call, error)
	List(ctx context.Context, filter models.ListCallsFilter) ([]models.Call, int, error)
}

// SummaryReadStore fetches a call's summary.
type SummaryReadStore interface {
	GetByCallID(ctx context.Context, callID uuid.UUID) (*models.CallSummary, error)
}

// ActionItemReadStore fetches a call's action items.
type ActionItemReadStore interface {
	ListByCall(ctx context.Context, callID uuid.UUID) ([]models.ActionItem, error)
}

// CallHandler serves call listings and detail views
type CallHandler struct {
	calls       CallReadStore
	summaries   SummaryReadStore
	actionItems ActionItemReadStore
	logger      ectologger.Logger
}

// NewCallHandler creates a new call handler
func NewCallHandler(
	calls CallReadStore,
	summaries SummaryReadStore,
	actionItems ActionItemReadStore,
	logger ectologger.Logger,
) *CallHandler {
	return &CallHandler{
		calls:       calls,
		summaries:   summaries,
		actionItems: actionItems,
		logger:      logger,
	}
}

// List returns calls matching the query filters
// GET /api/v1/calls
func (h *CallHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	page, pageSize := ParsePagination(c)
	filter := models.ListCallsFilter{Page: page, PageSize: pageSize}

	if v := c.QueryParam("direction"); v != "" {
		direction := models.CallDirection(v)
		if direction != models.DirectionInbound && direction != models.DirectionOutbound {
			return BadRequest("direction must be inbound or outbound")
		}
		filter.Direction = &direction
	}
	if v := c.QueryParam("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return BadRequest("from must be an RFC 3339 timestamp")
		}
		filter.From = &from
	}
	if v := c.QueryParam("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return BadRequest("to must be an RFC 3339 timestamp")
		}
		filter.To = &to
	}

	items, total, err := h.calls.List(ctx, filter)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list calls")
		return err
	}
	if items == nil {
		items = []models.Call{}
	}

	return SuccessResponse(c, models.CallListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get returns one call with its summary and action items
// GET /api/v1/calls/:id
func (h *CallHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	call, err := h.calls.GetByID(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to get call")
		return err
	}
	if call == nil {
		return NotFound("call %s not found", id)
	}

	summary, err := h.summaries.GetByCallID(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to get call summary")
		return err
	}

	items, err := h.actionItems.ListByCall(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list call action items")
		return err
	}
	if items == nil {
		items = []models.ActionItem{}
	}

	return SuccessResponse(c, models.CallDetailResponse{
		Call:        *call,
		Summary:     summary,
		ActionItems: items,
	})
}

// GetSummary returns just the summary for a call
// GET /api/v1/calls/:id/summary
func (h *CallHandler) GetSummary(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	call, err := h.calls.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if call == nil {
		return NotFound("call %s not found", id)
	}

	summary, err := h.summaries.GetByCallID(ctx, id)
	if err != nil {
		return err
	}
	if summary == nil {
		return NotFound("call %s has not been processed", id)
	}

	return SuccessResponse(c, summary)
}

// GetTranscript returns just the transcript for a call
// GET /api/v1/calls/:id/transcript
func (h *CallHandler) GetTranscript(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	call, err := h.calls.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if call == nil {
		return NotFound("call %s not found", id)
	}

	summary, err := h.summaries.GetByCallID(ctx, id)
	if err != nil {
		return err
	}
	if summary == nil || summary.Transcript == nil {
		return NotFound("call %s has no transcript", id)
	}

	return SuccessResponse(c, map[string]any{
		"call_id":    call.ID,
		"transcript": *summary.Transcript,
		"language":   summary.TranscriptLanguage,
	})
}

// RegisterRoutes registers the call routes
func (h *CallHandler) RegisterRoutes(g *echo.Group) {
	calls := g.Group("/calls")
	calls.GET("", h.List)
	calls.GET("/:id", h.Get)
	calls.GET("/:id/summary", h.GetSummary)
	calls.GET("/:id/transcript", h.GetTranscript)
}
