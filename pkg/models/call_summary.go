package models

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/google/uuid"
)

// Sentiment classification produced by the analysis stage.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Valid reports whether s is one of the enumerated sentiment values.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// CallSummary holds the pipeline output for a call. The four stage
// timestamps double as the pipeline's persisted state: their
// presence/absence encodes how far a run progressed, which is what the
// manual reprocessing path inspects. transcription_completed_at is set iff
// transcript is non-null; analysis_completed_at is set iff
// summary/sentiment/urgency are all set.
type CallSummary struct {
	ID                       uuid.UUID                `db:"id" json:"id"`
	CallID                   uuid.UUID                `db:"call_id" json:"call_id"`
	Transcript               *string                  `db:"transcript" json:"transcript,omitempty"`
	TranscriptLanguage       *string                  `db:"transcript_language" json:"transcript_language,omitempty"`
	Summary                  *string                  `db:"summary" json:"summary,omitempty"`
	Sentiment                *Sentiment               `db:"sentiment" json:"sentiment,omitempty"`
	UrgencyScore             *int                     `db:"urgency_score" json:"urgency_score,omitempty"`
	CustomerSatisfaction     *int                     `db:"customer_satisfaction" json:"customer_satisfaction,omitempty"`
	NextSteps                *string                  `db:"next_steps" json:"next_steps,omitempty"`
	KeyTopics                database.JSONB[[]string] `db:"key_topics" json:"key_topics"`
	TranscriptionStartedAt   *time.Time               `db:"transcription_started_at" json:"transcription_started_at,omitempty"`
	TranscriptionCompletedAt *time.Time               `db:"transcription_completed_at" json:"transcription_completed_at,omitempty"`
	AnalysisStartedAt        *time.Time               `db:"analysis_started_at" json:"analysis_started_at,omitempty"`
	AnalysisCompletedAt      *time.Time               `db:"analysis_completed_at" json:"analysis_completed_at,omitempty"`
	CreatedAt                time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time                `db:"updated_at" json:"updated_at"`
}
