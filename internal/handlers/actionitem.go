package handlers

import (
	"context"
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/models"
)

// ActionItemStore is the action item persistence for the dashboard API.
type ActionItemStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ActionItem, error)
	List(ctx context.Context, filter models.ListActionItemsFilter) ([]models.ActionItem, int, error)
	Update(ctx context.Context, id uuid.UUID, req models.UpdateActionItemRequest) (*models.ActionItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ActionItemStatus) (*models.ActionItem, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// ActionItemHandler serves action item listings and updates
type ActionItemHandler struct {
	items    ActionItemStore
	validate *validator.Validate
	logger   ectologger.Logger
}

// NewActionItemHandler creates a new action item handler
func NewActionItemHandler(items ActionItemStore, logger ectologger.Logger) *ActionItemHandler {
	return &ActionItemHandler{
		items:    items,
		validate: validator.New(),
		logger:   logger,
	}
}

// List returns action items matching the query filters
// GET /api/v1/action-items
func (h *ActionItemHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	page, pageSize := ParsePagination(c)
	filter := models.ListActionItemsFilter{Page: page, PageSize: pageSize}

	if v := c.QueryParam("status"); v != "" {
		status := models.ActionItemStatus(v)
		if !status.Valid() {
			return BadRequest("invalid status filter")
		}
		filter.Status = &status
	}
	if v := c.QueryParam("assignee"); v != "" {
		filter.Assignee = &v
	}
	if v := c.QueryParam("priority"); v != "" {
		priority, err := strconv.Atoi(v)
		if err != nil || priority < 1 || priority > 5 {
			return BadRequest("priority must be between 1 and 5")
		}
		filter.Priority = &priority
	}
	if v := c.QueryParam("call_id"); v != "" {
		callID, err := uuid.Parse(v)
		if err != nil {
			return BadRequest("call_id must be a valid UUID")
		}
		filter.CallID = &callID
	}

	items, total, err := h.items.List(ctx, filter)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list action items")
		return err
	}
	if items == nil {
		items = []models.ActionItem{}
	}

	return SuccessResponse(c, models.ActionItemListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get returns one action item
// GET /api/v1/action-items/:id
func (h *ActionItemHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	item, err := h.items.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return NotFound("action item %s not found", id)
	}

	return SuccessResponse(c, item)
}

// Update updates mutable fields on an action item
// PATCH /api/v1/action-items/:id
func (h *ActionItemHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	var req models.UpdateActionItemRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}

	item, err := h.items.Update(ctx, id, req)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to update action item")
		return err
	}
	if item == nil {
		return NotFound("action item %s not found", id)
	}

	return SuccessResponse(c, item)
}

// UpdateStatus transitions an action item's status
// PUT /api/v1/action-items/:id/status
func (h *ActionItemHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	var req models.UpdateActionItemStatusRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if !req.Status.Valid() {
		return BadRequest("status must be one of pending, in_progress, completed, cancelled")
	}

	item, err := h.items.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to update action item status")
		return err
	}
	if item == nil {
		return NotFound("action item %s not found", id)
	}

	return SuccessResponse(c, item)
}

// Delete removes an action item
// DELETE /api/v1/action-items/:id
func (h *ActionItemHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	deleted, err := h.items.Delete(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to delete action item")
		return err
	}
	if !deleted {
		return NotFound("action item %s not found", id)
	}

	return NoContentResponse(c)
}

// RegisterRoutes registers the action item routes
func (h *ActionItemHandler) RegisterRoutes(g *echo.Group) {
	items := g.Group("/action-items")
	items.GET("", h.List)
	items.GET("/:id", h.Get)
	items.PATCH("/:id", h.Update)
	items.PUT("/:id/status", h.UpdateStatus)
	items.DELETE("/:id", h.Delete)
}
