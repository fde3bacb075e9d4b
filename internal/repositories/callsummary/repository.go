// Package callsummary persists pipeline output for calls.
package callsummary

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// CallSummaryRepository defines the interface for call summary persistence
type CallSummaryRepository interface {
	GetOrCreate(ctx context.Context, callID uuid.UUID) (*models.CallSummary, error)
	GetByCallID(ctx context.Context, callID uuid.UUID) (*models.CallSummary, error)
	SetTranscriptionStarted(ctx context.Context, id uuid.UUID, at time.Time) error
	SetTranscriptAndAnalysisStarted(ctx context.Context, id uuid.UUID, transcript string, language *string, at time.Time) error
	SetAnalysis(ctx context.Context, id uuid.UUID, analysis *models.CallAnalysis, at time.Time) error
}

// Repository implements CallSummaryRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new call summary repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "call_summaries"

var columns = []string{
	"id", "call_id", "transcript", "transcript_language", "summary",
	"sentiment", "urgency_score", "customer_satisfaction", "next_steps",
	"key_topics", "transcription_started_at", "transcription_completed_at",
	"analysis_started_at", "analysis_completed_at", "created_at", "updated_at",
}

// GetOrCreate returns the summary row for a call, creating an empty one if
// none exists. Concurrent callers race on the unique call_id constraint and
// both end up with the same row.
func (r *Repository) GetOrCreate(ctx context.Context, callID uuid.UUID) (*models.CallSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "CallSummaryRepository.GetOrCreate")
	defer span.End()

	now := time.Now()

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "call_id", "key_topics", "created_at", "updated_at")
	sb.Values(uuid.New(), callID, database.JSONB[[]string]{Data: []string{}}, now, now)
	sb.OnConflictColumnsDoNothing("call_id")

	query, args := sb.Build()

	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create call summary")
		return nil, fmt.Errorf("failed to create call summary: %w", err)
	}

	summary, err := r.GetByCallID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, fmt.Errorf("call summary for %s not found after insert", callID)
	}

	return summary, nil
}

// GetByCallID gets the summary row for a call
func (r *Repository) GetByCallID(ctx context.Context, callID uuid.UUID) (*models.CallSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "CallSummaryRepository.GetByCallID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("call_id", callID))

	query, args := sb.Build()

	var summary models.CallSummary
	err := database.Executor(ctx, r.db).GetContext(ctx, &summary, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get call summary")
		return nil, fmt.Errorf("failed to get call summary: %w", err)
	}

	return &summary, nil
}

// SetTranscriptionStarted marks the transcription stage as started
func (r *Repository) SetTranscriptionStarted(ctx context.Context, id uuid.UUID, at time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "CallSummaryRepository.SetTranscriptionStarted")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("transcription_started_at", at),
		sb.Assign("updated_at", time.Now()),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to mark transcription started")
		return fmt.Errorf("failed to mark transcription started: %w", err)
	}

	return nil
}

// SetTranscriptAndAnalysisStarted stores the transcript, marks transcription
// complete, and marks analysis started in one update so the three fields
// never disagree.
func (r *Repository) SetTranscriptAndAnalysisStarted(ctx context.Context, id uuid.UUID, transcript string, language *string, at time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "CallSummaryRepository.SetTranscriptAndAnalysisStarted")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("transcript", transcript),
		sb.Assign("transcript_language", language),
		sb.Assign("transcription_completed_at", at),
		sb.Assign("analysis_started_at", at),
		sb.Assign("updated_at", time.Now()),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to store transcript")
		return fmt.Errorf("failed to store transcript: %w", err)
	}

	return nil
}

// SetAnalysis stores the analysis output and marks the analysis stage
// complete
func (r *Repository) SetAnalysis(ctx context.Context, id uuid.UUID, analysis *models.CallAnalysis, at time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "CallSummaryRepository.SetAnalysis")
	defer span.End()

	keyTopics := analysis.KeyTopics
	if keyTopics == nil {
		keyTopics = []string{}
	}

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("summary", analysis.Summary),
		sb.Assign("sentiment", analysis.Sentiment),
		sb.Assign("urgency_score", analysis.UrgencyScore),
		sb.Assign("customer_satisfaction", analysis.CustomerSatisfaction),
		sb.Assign("next_steps", analysis.NextSteps),
		sb.Assign("key_topics", database.JSONB[[]string]{Data: keyTopics}),
		sb.Assign("analysis_completed_at", at),
		sb.Assign("updated_at", time.Now()),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	if _, err := database.Executor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to store analysis")
		return fmt.Errorf("failed to store analysis: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"summary_id": id,
		"sentiment":  analysis.Sentiment,
	}).Info("stored call analysis")

	return nil
}
