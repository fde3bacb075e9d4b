package models

// CallMetadata is the optional context handed to the analysis backend
// alongside the transcript.
type CallMetadata struct {
	CallerName      *string
	AgentName       *string
	DurationSeconds int
	Direction       CallDirection
}

// ExtractedActionItem is one action item produced by structured extraction.
type ExtractedActionItem struct {
	Description string  `json:"description"`
	Priority    int     `json:"priority"`
	Assignee    *string `json:"assignee,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

// CallAnalysis is the structured extraction result for a transcript.
type CallAnalysis struct {
	Summary              string                `json:"summary"`
	KeyTopics            []string              `json:"key_topics"`
	ActionItems          []ExtractedActionItem `json:"action_items"`
	Sentiment            Sentiment             `json:"sentiment"`
	UrgencyScore         int                   `json:"urgency_score"`
	CustomerSatisfaction *int                  `json:"customer_satisfaction,omitempty"`
	NextSteps            *string               `json:"next_steps,omitempty"`
}

// TranscriptionResult is the speech-to-text output.
type TranscriptionResult struct {
	Text     string
	Language string
	Duration float64
}
