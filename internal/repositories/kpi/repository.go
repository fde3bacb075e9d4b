// Package kpi computes dashboard aggregates over the call data.
package kpi

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// KPIRepository defines the interface for KPI aggregations
type KPIRepository interface {
	Summary(ctx context.Context, days int) (*models.KPISummary, error)
	CallVolume(ctx context.Context, days int) ([]models.CallVolumePoint, error)
	SentimentBreakdown(ctx context.Context, days int) (*models.SentimentBreakdown, error)
	ActionItemStats(ctx context.Context, days int) (*models.ActionItemStats, error)
	TopTopics(ctx context.Context, days, limit int) ([]models.TopicCount, error)
}

// Repository implements KPIRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new KPI repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func windowStart(days int) time.Time {
	if days < 1 {
		days = 7
	}
	return time.Now().AddDate(0, 0, -days)
}

// Summary returns the headline numbers over the window
func (r *Repository) Summary(ctx context.Context, days int) (*models.KPISummary, error) {
	ctx, span := tracing.StartSpan(ctx, "KPIRepository.Summary")
	defer span.End()

	if days < 1 {
		days = 7
	}
	since := windowStart(days)

	summary := &models.KPISummary{Days: days}

	var callStats struct {
		Total       int     `db:"total"`
		Inbound     int     `db:"inbound"`
		Outbound    int     `db:"outbound"`
		AvgDuration float64 `db:"avg_duration"`
	}
	callQuery := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE direction = 'inbound') AS inbound,
			COUNT(*) FILTER (WHERE direction = 'outbound') AS outbound,
			COALESCE(AVG(duration_seconds), 0) AS avg_duration
		FROM calls
		WHERE start_time >= $1`
	if err := r.db.GetContext(ctx, &callStats, callQuery, since); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to compute call stats")
		return nil, fmt.Errorf("failed to compute call stats: %w", err)
	}
	summary.TotalCalls = callStats.Total
	summary.InboundCalls = callStats.Inbound
	summary.OutboundCalls = callStats.Outbound
	summary.AvgDurationSeconds = callStats.AvgDuration

	var analysisStats struct {
		Analyzed   int     `db:"analyzed"`
		AvgUrgency float64 `db:"avg_urgency"`
	}
	analysisQuery := `
		SELECT
			COUNT(*) AS analyzed,
			COALESCE(AVG(cs.urgency_score), 0) AS avg_urgency
		FROM call_summaries cs
		JOIN calls c ON c.id = cs.call_id
		WHERE c.start_time >= $1 AND cs.analysis_completed_at IS NOT NULL`
	if err := r.db.GetContext(ctx, &analysisStats, analysisQuery, since); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to compute analysis stats")
		return nil, fmt.Errorf("failed to compute analysis stats: %w", err)
	}
	summary.AnalyzedCalls = analysisStats.Analyzed
	summary.AvgUrgencyScore = analysisStats.AvgUrgency

	var itemStats struct {
		Open      int `db:"open"`
		Completed int `db:"completed"`
	}
	itemQuery := `
		SELECT
			COUNT(*) FILTER (WHERE ai.status IN ('pending', 'in_progress')) AS open,
			COUNT(*) FILTER (WHERE ai.status = 'completed') AS completed
		FROM action_items ai
		JOIN calls c ON c.id = ai.call_id
		WHERE c.start_time >= $1`
	if err := r.db.GetContext(ctx, &itemStats, itemQuery, since); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to compute action item stats")
		return nil, fmt.Errorf("failed to compute action item stats: %w", err)
	}
	summary.OpenActionItems = itemStats.Open
	summary.CompletedActionItems = itemStats.Completed

	return summary, nil
}

// CallVolume returns per-day call counts over the window, oldest first
func (r *Repository) CallVolume(ctx context.Context, days int) ([]models.CallVolumePoint, error) {
	ctx, span := tracing.StartSpan(ctx, "KPIRepository.CallVolume")
	defer span.End()

	query := `
		SELECT
			TO_CHAR(DATE_TRUNC('day', start_time), 'YYYY-MM-DD') AS day,
			COUNT(*) FILTER (WHERE direction = 'inbound') AS inbound,
			COUNT(*) FILTER (WHERE direction = 'outbound') AS outbound,
			COUNT(*) AS total
		FROM calls
		WHERE start_time >= $1
		GROUP BY DATE_TRUNC('day', start_time)
		ORDER BY DATE_TRUNC('day', start_time)`

	var points []models.CallVolumePoint
	if err := r.db.SelectContext(ctx, &points, query, windowStart(days)); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to compute call volume")
		return nil, fmt.Errorf("failed to compute call volume: %w", err)
	}

	return points, nil
}

// SentimentBreakdown returns the sentiment distribution over the window
func (r *Repository) SentimentBreakdown(ctx context.Context, days int) (*models.SentimentBreakdown, error) {
	ctx, span := tracing.StartSpan(ctx, "KPIRepository.SentimentBreakdown")
	defer span.End()

	query := `
		SELECT
			COUNT(*) FILTER (WHERE cs.sentiment = 'positive') AS positive,
			COUNT(*) FILTER (WHERE cs.sentiment = 'neutral') AS neutral,
			COUNT(*) FILTER (WHERE cs.sentiment = 'negative') AS negative
		FROM call_summaries cs
		JOIN calls c ON c.id = cs.call_id
		WHERE c.start_time >= $1 AND cs.sentiment IS NOT NULL`

	var breakdown models.SentimentBreakdown
	if err := r.db.GetContext(ctx, &breakdown, query, windowStart(days)); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to compute sentiment breakdown")
		return nil, fmt.Errorf("failed to compute sentiment breakdown: %w", err)
	}

	return &breakdown, nil
}

// ActionItemStats returns the action item status breakdown over the window
func (r *Repository) ActionItemStats(ctx context.Context, days int) (*models.ActionItemStats, error) {
	ctx, span := tracing.StartSpan(ctx, "KPIRepository.ActionItemStats")
	defer span.End()

	query := `
		SELECT
			COUNT(*) FILTER (WHERE ai.status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE ai.status = 'in_progress') AS in_progress,
			COUNT(*) FILTER (WHERE ai.status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE ai.status = 'cancelled') AS cancelled
		FROM action_items ai
		JOIN calls c ON c.id = ai.call_id
		WHERE c.start_time >= $1`

	var stats models.ActionItemStats
	if err := r.db.GetContext(ctx, &stats, query, windowStart(days)); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to compute action item stats")
		return nil, fmt.Errorf("failed to compute action item stats: %w", err)
	}

	// completion rate excludes cancelled items
	actionable := stats.Pending + stats.InProgress + stats.Completed
	if actionable > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(actionable)
	}

	return &stats, nil
}

// TopTopics returns the most frequent key topics over the window
func (r *Repository) TopTopics(ctx context.Context, days, limit int) ([]models.TopicCount, error) {
	ctx, span := tracing.StartSpan(ctx, "KPIRepository.TopTopics")
	defer span.End()

	if limit < 1 {
		limit = 10
	}

	query := `
		SELECT topic, COUNT(*) AS count
		FROM call_summaries cs
		JOIN calls c ON c.id = cs.call_id,
		LATERAL jsonb_array_elements_text(cs.key_topics) AS topic
		WHERE c.start_time >= $1
		GROUP BY topic
		ORDER BY count DESC, topic ASC
		LIMIT $2`

	rows, err := r.db.QueryxContext(ctx, query, windowStart(days), limit)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to compute top topics")
		return nil, fmt.Errorf("failed to compute top topics: %w", err)
	}
	defer rows.Close()

	var topics []models.TopicCount
	for rows.Next() {
		var tc models.TopicCount
		if err := rows.Scan(&tc.Topic, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, tc)
	}

	return topics, rows.Err()
}
