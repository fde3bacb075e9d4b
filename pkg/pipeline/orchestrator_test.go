package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/notify"
)

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeCallStore struct {
	call *models.Call
}

func (f *fakeCallStore) GetByID(_ context.Context, id uuid.UUID) (*models.Call, error) {
	if f.call != nil && f.call.ID == id {
		return f.call, nil
	}
	return nil, nil
}

type fakeSummaryStore struct {
	summary              *models.CallSummary
	transcriptionStarted bool
	transcript           string
	analysisStored       *models.CallAnalysis
}

func (f *fakeSummaryStore) GetOrCreate(_ context.Context, callID uuid.UUID) (*models.CallSummary, error) {
	if f.summary == nil {
		f.summary = &models.CallSummary{ID: uuid.New(), CallID: callID}
	}
	return f.summary, nil
}

func (f *fakeSummaryStore) GetByCallID(_ context.Context, _ uuid.UUID) (*models.CallSummary, error) {
	return f.summary, nil
}

func (f *fakeSummaryStore) SetTranscriptionStarted(_ context.Context, _ uuid.UUID, at time.Time) error {
	f.transcriptionStarted = true
	f.summary.TranscriptionStartedAt = &at
	return nil
}

func (f *fakeSummaryStore) SetTranscriptAndAnalysisStarted(_ context.Context, _ uuid.UUID, transcript string, language *string, at time.Time) error {
	f.transcript = transcript
	f.summary.Transcript = &transcript
	f.summary.TranscriptLanguage = language
	f.summary.TranscriptionCompletedAt = &at
	f.summary.AnalysisStartedAt = &at
	return nil
}

func (f *fakeSummaryStore) SetAnalysis(_ context.Context, _ uuid.UUID, analysis *models.CallAnalysis, at time.Time) error {
	f.analysisStored = analysis
	f.summary.AnalysisCompletedAt = &at
	return nil
}

type fakeActionItemStore struct {
	deleted bool
	created []models.ExtractedActionItem
	tx      *fakeTxRunner
}

func (f *fakeActionItemStore) DeleteByCall(_ context.Context, _ uuid.UUID) error {
	f.deleted = true
	if f.tx != nil && f.tx.inTx {
		f.tx.touched = append(f.tx.touched, "delete")
	}
	return nil
}

func (f *fakeActionItemStore) CreateBatch(_ context.Context, callID uuid.UUID, items []models.ExtractedActionItem) ([]models.ActionItem, error) {
	f.created = items
	if f.tx != nil && f.tx.inTx {
		f.tx.touched = append(f.tx.touched, "create")
	}
	out := make([]models.ActionItem, len(items))
	for i, item := range items {
		out[i] = models.ActionItem{ID: uuid.New(), CallID: callID, Description: item.Description, Priority: item.Priority}
	}
	return out, nil
}

type fakeTxRunner struct {
	runs    int
	inTx    bool
	touched []string
}

func (f *fakeTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.runs++
	f.inTx = true
	defer func() { f.inTx = false }()
	return fn(ctx)
}

type fakeFetcher struct {
	dir string
	err error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.dir, "audio.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeNormalizer struct{ err error }

func (f *fakeNormalizer) Normalize(_ context.Context, inputPath string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return inputPath, nil
}

type fakeTranscriber struct {
	result *models.TranscriptionResult
	err    error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string) (*models.TranscriptionResult, error) {
	return f.result, f.err
}

type fakeAnalyzer struct {
	analysis *models.CallAnalysis
	err      error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string, _ models.CallMetadata) (*models.CallAnalysis, error) {
	return f.analysis, f.err
}

type fakeNotifier struct {
	notified *notify.CallNotification
	err      error
}

func (f *fakeNotifier) Notify(_ context.Context, n *notify.CallNotification) error {
	f.notified = n
	return f.err
}

type fakeEmitter struct {
	processed   bool
	failedStage string
}

func (f *fakeEmitter) EmitCallProcessed(_ context.Context, _ *models.Call, _ *models.CallSummary, _ int) error {
	f.processed = true
	return nil
}

func (f *fakeEmitter) EmitCallProcessingFailed(_ context.Context, _ *models.Call, stage string, _ error) error {
	f.failedStage = stage
	return nil
}

type fixture struct {
	orchestrator *Orchestrator
	call         *models.Call
	summaries    *fakeSummaryStore
	items        *fakeActionItemStore
	tx           *fakeTxRunner
	notifier     *fakeNotifier
	emitter      *fakeEmitter
	fetcher      *fakeFetcher
	transcriber  *fakeTranscriber
	analyzer     *fakeAnalyzer
	normalizer   *fakeNormalizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	recordingURL := "https://cdn.example.com/rec/abc.mp3"
	call := &models.Call{
		ID:              uuid.New(),
		ExternalID:      "ext-1",
		Direction:       models.DirectionInbound,
		StartTime:       time.Now().Add(-time.Hour),
		DurationSeconds: 240,
		RecordingURL:    &recordingURL,
	}

	f := &fixture{
		call:      call,
		summaries: &fakeSummaryStore{},
		items:     &fakeActionItemStore{},
		tx:        &fakeTxRunner{},
		notifier:  &fakeNotifier{},
		emitter:   &fakeEmitter{},
		fetcher:   &fakeFetcher{dir: t.TempDir()},
		transcriber: &fakeTranscriber{
			result: &models.TranscriptionResult{Text: "hello, I need help", Language: "en", Duration: 240},
		},
		analyzer: &fakeAnalyzer{
			analysis: &models.CallAnalysis{
				Summary:      "Customer needed help with their account.",
				KeyTopics:    []string{"account"},
				Sentiment:    models.SentimentNeutral,
				UrgencyScore: 2,
				ActionItems: []models.ExtractedActionItem{
					{Description: "Follow up with customer", Priority: 3},
				},
			},
		},
		normalizer: &fakeNormalizer{},
	}

	f.items.tx = f.tx

	f.orchestrator = NewOrchestrator(
		&fakeCallStore{call: call},
		f.summaries,
		f.items,
		f.tx,
		f.fetcher,
		f.normalizer,
		f.transcriber,
		f.analyzer,
		f.notifier,
		f.emitter,
		Config{DashboardBaseURL: "https://dash.example.com"},
		noopLogger(),
	)

	return f
}

func TestProcessCall_Success(t *testing.T) {
	f := newFixture(t)

	err := f.orchestrator.ProcessCall(context.Background(), f.call.ID)
	require.NoError(t, err)

	assert.True(t, f.summaries.transcriptionStarted)
	assert.Equal(t, "hello, I need help", f.summaries.transcript)
	require.NotNil(t, f.summaries.analysisStored)
	assert.Equal(t, "Customer needed help with their account.", f.summaries.analysisStored.Summary)

	// stage timestamps progressed in order
	require.NotNil(t, f.summaries.summary.TranscriptionCompletedAt)
	require.NotNil(t, f.summaries.summary.AnalysisCompletedAt)

	assert.True(t, f.items.deleted, "previous items replaced before insert")
	require.Len(t, f.items.created, 1)

	require.NotNil(t, f.notifier.notified)
	assert.Equal(t, f.call.ID, f.notifier.notified.Call.ID)
	assert.True(t, f.emitter.processed)

	// downloaded audio cleaned up
	entries, err := os.ReadDir(f.fetcher.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessCall_PersistRunsInOneTransaction(t *testing.T) {
	f := newFixture(t)

	err := f.orchestrator.ProcessCall(context.Background(), f.call.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, f.tx.runs)
	assert.Equal(t, []string{"delete", "create"}, f.tx.touched, "item replacement happens inside the transaction, delete before insert")
}

func TestProcessCall_UnknownCall(t *testing.T) {
	f := newFixture(t)

	err := f.orchestrator.ProcessCall(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCallNotFound)
}

func TestProcessCall_NoRecording(t *testing.T) {
	f := newFixture(t)
	f.call.RecordingURL = nil

	err := f.orchestrator.ProcessCall(context.Background(), f.call.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRecording)
}

func TestProcessCall_DownloadFailure(t *testing.T) {
	f := newFixture(t)
	f.fetcher.err = errors.New("connection refused")

	err := f.orchestrator.ProcessCall(context.Background(), f.call.ID)
	require.Error(t, err)

	assert.Equal(t, StageDownload, f.emitter.failedStage)
	assert.Nil(t, f.notifier.notified)
	assert.False(t, f.emitter.processed)
}

func TestProcessCall_TranscriptionFailureCleansUpAudio(t *testing.T) {
	f := newFixture(t)
	f.transcriber.result = nil
	f.transcriber.err = errors.New("backend unavailable")

	err := f.orchestrator.ProcessCall(context.Background(), f.call.ID)
	require.Error(t, err)
	assert.Equal(t, StageTranscribe, f.emitter.failedStage)

	entries, err := os.ReadDir(f.fetcher.dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "audio file removed after failed transcription")
}

func TestProcessCall_AnalysisFailure(t *testing.T) {
	f := newFixture(t)
	f.analyzer.analysis = nil
	f.analyzer.err = errors.New("model refused")

	err := f.orchestrator.ProcessCall(context.Background(), f.call.ID)
	require.Error(t, err)

	assert.Equal(t, StageAnalyze, f.emitter.failedStage)
	// transcript was persisted before the failure, so a rerun can resume
	assert.Equal(t, "hello, I need help", f.summaries.transcript)
	assert.Nil(t, f.summaries.analysisStored)
}

func TestProcessCall_NotificationFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("slack down")

	err := f.orchestrator.ProcessCall(context.Background(), f.call.ID)
	require.NoError(t, err)
	assert.True(t, f.emitter.processed)
}
