package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/redis"
)

// DeadLetterStore is the DLQ surface the admin endpoints need.
type DeadLetterStore interface {
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, count int64) ([]redis.DLQEntry, error)
	Get(ctx context.Context, messageID string) (*redis.DLQEntry, error)
	Delete(ctx context.Context, messageID string) error
	Retry(ctx context.Context, messageID string) error
}

// DLQHandler exposes the dead letter queue for operators: inspect failed
// jobs, re-enqueue them after the underlying problem is fixed, or discard
// them.
type DLQHandler struct {
	store  DeadLetterStore
	logger ectologger.Logger
}

// NewDLQHandler creates a new dead letter queue handler
func NewDLQHandler(store DeadLetterStore, logger ectologger.Logger) *DLQHandler {
	return &DLQHandler{
		store:  store,
		logger: logger,
	}
}

// DLQListResponse is the list endpoint payload.
type DLQListResponse struct {
	TotalCount int64            `json:"total_count"`
	Entries    []redis.DLQEntry `json:"entries"`
}

// List returns the most recent dead letter entries
// GET /api/v1/admin/dlq
func (h *DLQHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	limit := int64(100)
	if v := c.QueryParam("limit"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 1 {
			return BadRequest("limit must be a positive integer")
		}
		limit = parsed
	}

	total, err := h.store.Count(ctx)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to count dead letter entries")
		return err
	}

	entries, err := h.store.List(ctx, limit)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list dead letter entries")
		return err
	}
	if entries == nil {
		entries = []redis.DLQEntry{}
	}

	return SuccessResponse(c, DLQListResponse{
		TotalCount: total,
		Entries:    entries,
	})
}

// Get returns one dead letter entry
// GET /api/v1/admin/dlq/:id
func (h *DLQHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	entry, err := h.store.Get(ctx, c.Param("id"))
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to get dead letter entry")
		return err
	}
	if entry == nil {
		return NotFound("dead letter entry %s not found", c.Param("id"))
	}

	return SuccessResponse(c, entry)
}

// Retry re-enqueues a dead letter entry onto the job queue and removes it
// POST /api/v1/admin/dlq/:id/retry
func (h *DLQHandler) Retry(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	if err := h.store.Retry(ctx, id); err != nil {
		if errors.Is(err, redis.ErrEntryNotFound) {
			return NotFound("dead letter entry %s not found", id)
		}
		h.logger.WithContext(ctx).WithError(err).Error("Failed to retry dead letter entry")
		return err
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"message_id": id,
	}).Info("re-enqueued dead letter entry")

	return SuccessResponse(c, map[string]string{"message": "entry re-enqueued"})
}

// Delete discards a dead letter entry
// DELETE /api/v1/admin/dlq/:id
func (h *DLQHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	if err := h.store.Delete(ctx, id); err != nil {
		if errors.Is(err, redis.ErrEntryNotFound) {
			return NotFound("dead letter entry %s not found", id)
		}
		h.logger.WithContext(ctx).WithError(err).Error("Failed to delete dead letter entry")
		return err
	}

	return NoContentResponse(c)
}

// RegisterRoutes registers the DLQ admin routes
func (h *DLQHandler) RegisterRoutes(g *echo.Group) {
	dlq := g.Group("/admin/dlq")
	dlq.GET("", h.List)
	dlq.GET("/:id", h.Get)
	dlq.POST("/:id/retry", h.Retry)
	dlq.DELETE("/:id", h.Delete)
}
