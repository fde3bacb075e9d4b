// Package pipeline orchestrates the call processing stages: download,
// normalize, transcribe, analyze, persist, notify.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/notify"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var (
	// ErrCallNotFound is returned when the job references a missing call
	ErrCallNotFound = errors.New("call not found")

	// ErrNoRecording is returned when a call has no recording to process
	ErrNoRecording = errors.New("call has no recording")
)

// Stage names used in metrics and failure events.
const (
	StageDownload   = "download"
	StageNormalize  = "normalize"
	StageTranscribe = "transcribe"
	StageAnalyze    = "analyze"
	StagePersist    = "persist"
	StageNotify     = "notify"
)

// CallStore is the call lookup the pipeline needs.
type CallStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Call, error)
}

// SummaryStore persists pipeline progress and output.
type SummaryStore interface {
	GetOrCreate(ctx context.Context, callID uuid.UUID) (*models.CallSummary, error)
	GetByCallID(ctx context.Context, callID uuid.UUID) (*models.CallSummary, error)
	SetTranscriptionStarted(ctx context.Context, id uuid.UUID, at time.Time) error
	SetTranscriptAndAnalysisStarted(ctx context.Context, id uuid.UUID, transcript string, language *string, at time.Time) error
	SetAnalysis(ctx context.Context, id uuid.UUID, analysis *models.CallAnalysis, at time.Time) error
}

// ActionItemStore persists extracted action items.
type ActionItemStore interface {
	DeleteByCall(ctx context.Context, callID uuid.UUID) error
	CreateBatch(ctx context.Context, callID uuid.UUID, items []models.ExtractedActionItem) ([]models.ActionItem, error)
}

// Fetcher downloads a recording to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, recordingURL string) (string, error)
}

// Normalizer converts a recording into a transcription-compatible format.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath string) (string, error)
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*models.TranscriptionResult, error)
}

// Analyzer extracts structured insights from a transcript.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string, metadata models.CallMetadata) (*models.CallAnalysis, error)
}

// Notifier fans out the processed-call notification.
type Notifier interface {
	Notify(ctx context.Context, notification *notify.CallNotification) error
}

// TxRunner wraps a unit of work in one database transaction.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventEmitter publishes call lifecycle events.
type EventEmitter interface {
	EmitCallProcessed(ctx context.Context, call *models.Call, summary *models.CallSummary, actionItemCount int) error
	EmitCallProcessingFailed(ctx context.Context, call *models.Call, stage string, cause error) error
}

// Config holds pipeline behavior settings.
type Config struct {
	// DashboardBaseURL is linked from notifications.
	DashboardBaseURL string
}

// Orchestrator runs the processing pipeline for one call at a time. A run
// is not retried internally; the queue layer re-delivers failed jobs and
// the manual endpoint re-runs at will. Stage timestamps on the summary row
// make a rerun resume-safe.
type Orchestrator struct {
	calls       CallStore
	summaries   SummaryStore
	actionItems ActionItemStore
	tx          TxRunner
	fetcher     Fetcher
	normalizer  Normalizer
	transcriber Transcriber
	analyzer    Analyzer
	notifier    Notifier
	emitter     EventEmitter
	config      Config
	logger      ectologger.Logger
}

// NewOrchestrator creates a pipeline orchestrator.
func NewOrchestrator(
	calls CallStore,
	summaries SummaryStore,
	actionItems ActionItemStore,
	tx TxRunner,
	fetcher Fetcher,
	normalizer Normalizer,
	transcriber Transcriber,
	analyzer Analyzer,
	notifier Notifier,
	emitter EventEmitter,
	config Config,
	logger ectologger.Logger,
) *Orchestrator {
	return &Orchestrator{
		calls:       calls,
		summaries:   summaries,
		actionItems: actionItems,
		tx:          tx,
		fetcher:     fetcher,
		normalizer:  normalizer,
		transcriber: transcriber,
		analyzer:    analyzer,
		notifier:    notifier,
		emitter:     emitter,
		config:      config,
		logger:      logger,
	}
}

// ProcessCall runs the full pipeline for a call. Returning an error leaves
// the job unacked so the queue redelivers it.
func (o *Orchestrator) ProcessCall(ctx context.Context, callID uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "Orchestrator.ProcessCall")
	defer span.End()

	ctx = appctx.SetCallID(ctx, callID.String())

	call, err := o.calls.GetByID(ctx, callID)
	if err != nil {
		return err
	}
	if call == nil {
		// Acked by returning nil would lose the error context; a missing
		// call can never succeed on retry, so fail it terminally.
		metrics.PipelineRunsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("%w: %s", ErrCallNotFound, callID)
	}

	if !call.HasRecording() {
		o.logger.WithContext(ctx).Warn("Call has no recording, nothing to process")
		metrics.PipelineRunsTotal.WithLabelValues("skipped").Inc()
		return fmt.Errorf("%w: %s", ErrNoRecording, callID)
	}

	summary, err := o.summaries.GetOrCreate(ctx, call.ID)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("failure").Inc()
		return err
	}

	if err := o.process(ctx, call, summary); err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("failure").Inc()
		return err
	}

	metrics.PipelineRunsTotal.WithLabelValues("success").Inc()
	return nil
}

func (o *Orchestrator) process(ctx context.Context, call *models.Call, summary *models.CallSummary) error {
	start := time.Now()

	if err := o.summaries.SetTranscriptionStarted(ctx, summary.ID, start); err != nil {
		return err
	}

	transcript, language, err := o.transcribe(ctx, call)
	if err != nil {
		o.failStage(ctx, call, stageOf(err), err)
		return err
	}

	if err := o.summaries.SetTranscriptAndAnalysisStarted(ctx, summary.ID, transcript, language, time.Now()); err != nil {
		o.failStage(ctx, call, StagePersist, err)
		return err
	}

	analysis, err := o.analyze(ctx, call, transcript)
	if err != nil {
		o.failStage(ctx, call, StageAnalyze, err)
		return err
	}

	items, err := o.persist(ctx, call, summary, analysis)
	if err != nil {
		o.failStage(ctx, call, StagePersist, err)
		return err
	}

	// Notification and event emission are best-effort: the analysis is
	// already durable, so their failures never fail the run.
	o.notify(ctx, call, items)

	stored, err := o.summaries.GetByCallID(ctx, call.ID)
	if err != nil {
		o.logger.WithContext(ctx).WithError(err).Warn("Failed to reload summary for event emission")
		stored = summary
	}
	if err := o.emitter.EmitCallProcessed(ctx, call, stored, len(items)); err != nil {
		o.logger.WithContext(ctx).WithError(err).Warn("Failed to emit processed event")
	}

	o.logger.WithContext(ctx).WithFields(map[string]any{
		"call_id":      call.ID,
		"action_items": len(items),
		"duration":     time.Since(start).String(),
	}).Info("processed call")

	return nil
}

// transcribe downloads, normalizes, and transcribes the recording. The
// local audio file is removed on every exit path.
func (o *Orchestrator) transcribe(ctx context.Context, call *models.Call) (string, *string, error) {
	downloadStart := time.Now()
	audioPath, err := o.fetcher.Fetch(ctx, *call.RecordingURL)
	if err != nil {
		metrics.RecordStageFailure(StageDownload)
		return "", nil, stageError(StageDownload, err)
	}
	metrics.ObserveStage(StageDownload, time.Since(downloadStart))

	defer func() {
		if audioPath != "" {
			_ = os.Remove(audioPath)
		}
	}()

	normalizeStart := time.Now()
	normalizedPath, err := o.normalizer.Normalize(ctx, audioPath)
	if err != nil {
		metrics.RecordStageFailure(StageNormalize)
		return "", nil, stageError(StageNormalize, err)
	}
	metrics.ObserveStage(StageNormalize, time.Since(normalizeStart))

	// normalization may have replaced the file
	audioPath = normalizedPath

	transcribeStart := time.Now()
	result, err := o.transcriber.Transcribe(ctx, normalizedPath)
	if err != nil {
		metrics.RecordStageFailure(StageTranscribe)
		return "", nil, stageError(StageTranscribe, err)
	}
	metrics.ObserveStage(StageTranscribe, time.Since(transcribeStart))

	var language *string
	if result.Language != "" {
		language = &result.Language
	}

	return result.Text, language, nil
}

func (o *Orchestrator) analyze(ctx context.Context, call *models.Call, transcript string) (*models.CallAnalysis, error) {
	analyzeStart := time.Now()

	analysis, err := o.analyzer.Analyze(ctx, transcript, models.CallMetadata{
		CallerName:      call.CallerName,
		AgentName:       call.CalledName,
		DurationSeconds: call.DurationSeconds,
		Direction:       call.Direction,
	})
	if err != nil {
		metrics.RecordStageFailure(StageAnalyze)
		return nil, err
	}

	metrics.ObserveStage(StageAnalyze, time.Since(analyzeStart))
	return analysis, nil
}

func (o *Orchestrator) persist(ctx context.Context, call *models.Call, summary *models.CallSummary, analysis *models.CallAnalysis) ([]models.ActionItem, error) {
	persistStart := time.Now()

	// The analysis row and the item replacement commit together: a rerun
	// replaces the previous extraction instead of stacking duplicates, and
	// a crash mid-persist never leaves a call with analysis but no items.
	var items []models.ActionItem
	err := o.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := o.summaries.SetAnalysis(ctx, summary.ID, analysis, time.Now()); err != nil {
			return err
		}
		if err := o.actionItems.DeleteByCall(ctx, call.ID); err != nil {
			return err
		}
		created, err := o.actionItems.CreateBatch(ctx, call.ID, analysis.ActionItems)
		if err != nil {
			return err
		}
		items = created
		return nil
	})
	if err != nil {
		metrics.RecordStageFailure(StagePersist)
		return nil, err
	}

	metrics.ObserveStage(StagePersist, time.Since(persistStart))
	return items, nil
}

func (o *Orchestrator) notify(ctx context.Context, call *models.Call, items []models.ActionItem) {
	notifyStart := time.Now()

	summary, err := o.summaries.GetByCallID(ctx, call.ID)
	if err != nil {
		o.logger.WithContext(ctx).WithError(err).Warn("Failed to load summary for notification")
		return
	}

	notification := &notify.CallNotification{
		Call:         call,
		Summary:      summary,
		ActionItems:  items,
		DashboardURL: o.config.DashboardBaseURL,
	}

	if err := o.notifier.Notify(ctx, notification); err != nil {
		metrics.RecordStageFailure(StageNotify)
		o.logger.WithContext(ctx).WithError(err).Warn("Notification dispatch had failures")
		return
	}

	metrics.ObserveStage(StageNotify, time.Since(notifyStart))
}

func (o *Orchestrator) failStage(ctx context.Context, call *models.Call, stage string, cause error) {
	o.logger.WithContext(ctx).WithError(cause).WithFields(map[string]any{
		"call_id": call.ID,
		"stage":   stage,
	}).Error("pipeline stage failed")

	if err := o.emitter.EmitCallProcessingFailed(ctx, call, stage, cause); err != nil {
		o.logger.WithContext(ctx).WithError(err).Warn("Failed to emit processing failed event")
	}
}

type stagedError struct {
	stage string
	err   error
}

func (e *stagedError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }
func (e *stagedError) Unwrap() error { return e.err }

func stageError(stage string, err error) error {
	return &stagedError{stage: stage, err: err}
}

func stageOf(err error) string {
	var se *stagedError
	if errors.As(err, &se) {
		return se.stage
	}
	return StageTranscribe
}
