package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/models"
)

// KPIStore computes dashboard aggregates.
type KPIStore interface {
	Summary(ctx context.Context, days int) (*models.KPISummary, error)
	CallVolume(ctx context.Context, days int) ([]models.CallVolumePoint, error)
	SentimentBreakdown(ctx context.Context, days int) (*models.SentimentBreakdown, error)
	ActionItemStats(ctx context.Context, days int) (*models.ActionItemStats, error)
	TopTopics(ctx context.Context, days, limit int) ([]models.TopicCount, error)
}

// KPIHandler serves the dashboard aggregates
type KPIHandler struct {
	kpis   KPIStore
	logger ectologger.Logger
}

// NewKPIHandler creates a new KPI handler
func NewKPIHandler(kpis KPIStore, logger ectologger.Logger) *KPIHandler {
	return &KPIHandler{
		kpis:   kpis,
		logger: logger,
	}
}

// Summary returns the headline dashboard numbers
// GET /api/v1/kpis/summary
func (h *KPIHandler) Summary(c echo.Context) error {
	ctx := c.Request().Context()

	summary, err := h.kpis.Summary(ctx, ParseDays(c, 7))
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to compute KPI summary")
		return err
	}

	return SuccessResponse(c, summary)
}

// CallVolume returns per-day call counts
// GET /api/v1/kpis/call-volume
func (h *KPIHandler) CallVolume(c echo.Context) error {
	ctx := c.Request().Context()

	points, err := h.kpis.CallVolume(ctx, ParseDays(c, 30))
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to compute call volume")
		return err
	}
	if points == nil {
		points = []models.CallVolumePoint{}
	}

	return SuccessResponse(c, points)
}

// Sentiment returns the sentiment distribution
// GET /api/v1/kpis/sentiment
func (h *KPIHandler) Sentiment(c echo.Context) error {
	ctx := c.Request().Context()

	breakdown, err := h.kpis.SentimentBreakdown(ctx, ParseDays(c, 7))
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to compute sentiment breakdown")
		return err
	}

	return SuccessResponse(c, breakdown)
}

// ActionItems returns the action item completion breakdown
// GET /api/v1/kpis/action-items
func (h *KPIHandler) ActionItems(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := h.kpis.ActionItemStats(ctx, ParseDays(c, 7))
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to compute action item stats")
		return err
	}

	return SuccessResponse(c, stats)
}

// TopTopics returns the most frequent key topics
// GET /api/v1/kpis/top-topics
func (h *KPIHandler) TopTopics(c echo.Context) error {
	ctx := c.Request().Context()

	topics, err := h.kpis.TopTopics(ctx, ParseDays(c, 7), 10)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to compute top topics")
		return err
	}
	if topics == nil {
		topics = []models.TopicCount{}
	}

	return SuccessResponse(c, topics)
}

// RegisterRoutes registers the KPI routes
func (h *KPIHandler) RegisterRoutes(g *echo.Group) {
	kpis := g.Group("/kpis")
	kpis.GET("/summary", h.Summary)
	kpis.GET("/call-volume", h.CallVolume)
	kpis.GET("/sentiment", h.Sentiment)
	kpis.GET("/action-items", h.ActionItems)
	kpis.GET("/top-topics", h.TopTopics)
}
