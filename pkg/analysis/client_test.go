package analysis

import (
	"fmt"
	"testing"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAnalysis_Valid(t *testing.T) {
	arguments := `{
		"summary": "Customer called about a billing discrepancy on their last invoice.",
		"key_topics": ["billing", "invoice dispute", "refund"],
		"action_items": [
			{"description": "Issue refund for duplicate charge", "priority": 4, "assignee": "billing team"},
			{"description": "Email corrected invoice", "priority": 2, "due_date": "2026-09-05"}
		],
		"sentiment": "negative",
		"urgency_score": 4,
		"customer_satisfaction": 3,
		"next_steps": "Follow up once the refund posts."
	}`

	analysis, err := decodeAnalysis(arguments)
	require.NoError(t, err)

	assert.Equal(t, "Customer called about a billing discrepancy on their last invoice.", analysis.Summary)
	assert.Equal(t, []string{"billing", "invoice dispute", "refund"}, analysis.KeyTopics)
	require.Len(t, analysis.ActionItems, 2)
	assert.Equal(t, 4, analysis.ActionItems[0].Priority)
	require.NotNil(t, analysis.ActionItems[1].DueDate)
	assert.Equal(t, "2026-09-05", *analysis.ActionItems[1].DueDate)
	assert.Equal(t, 4, analysis.UrgencyScore)
	require.NotNil(t, analysis.CustomerSatisfaction)
	assert.Equal(t, 3, *analysis.CustomerSatisfaction)
}

func TestDecodeAnalysis_Invalid(t *testing.T) {
	cases := []struct {
		name      string
		arguments string
	}{
		{
			name:      "not json",
			arguments: "the call went fine",
		},
		{
			name:      "missing summary",
			arguments: `{"key_topics": [], "action_items": [], "sentiment": "neutral", "urgency_score": 2}`,
		},
		{
			name:      "whitespace summary",
			arguments: `{"summary": "   ", "sentiment": "neutral", "urgency_score": 2}`,
		},
		{
			name:      "unknown sentiment",
			arguments: `{"summary": "ok", "sentiment": "ecstatic", "urgency_score": 2}`,
		},
		{
			name:      "urgency too low",
			arguments: `{"summary": "ok", "sentiment": "neutral", "urgency_score": 0}`,
		},
		{
			name:      "urgency too high",
			arguments: `{"summary": "ok", "sentiment": "neutral", "urgency_score": 9}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeAnalysis(tc.arguments)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAnalysisFailed)
		})
	}
}

func TestDecodeAnalysis_RepairsActionItems(t *testing.T) {
	arguments := `{
		"summary": "Routine account check-in.",
		"key_topics": ["account review"],
		"action_items": [
			{"description": "  ", "priority": 2},
			{"description": "Send usage report", "priority": 0},
			{"description": "Schedule renewal call", "priority": 7}
		],
		"sentiment": "positive",
		"urgency_score": 1
	}`

	analysis, err := decodeAnalysis(arguments)
	require.NoError(t, err)

	// empty item dropped, out-of-range priorities reset to the default
	require.Len(t, analysis.ActionItems, 2)
	assert.Equal(t, "Send usage report", analysis.ActionItems[0].Description)
	assert.Equal(t, 3, analysis.ActionItems[0].Priority)
	assert.Equal(t, "Schedule renewal call", analysis.ActionItems[1].Description)
	assert.Equal(t, 3, analysis.ActionItems[1].Priority)
}

func TestDecodeAnalysis_DropsBogusSatisfaction(t *testing.T) {
	arguments := `{
		"summary": "Short wrong-number call.",
		"key_topics": [],
		"action_items": [],
		"sentiment": "neutral",
		"urgency_score": 1,
		"customer_satisfaction": 42
	}`

	analysis, err := decodeAnalysis(arguments)
	require.NoError(t, err)
	assert.Nil(t, analysis.CustomerSatisfaction)
}

func TestDecodeAnalysis_SatisfactionRange(t *testing.T) {
	decode := func(satisfaction int) *models.CallAnalysis {
		arguments := fmt.Sprintf(`{
			"summary": "Customer confirmed their address change.",
			"key_topics": ["account"],
			"action_items": [],
			"sentiment": "positive",
			"urgency_score": 1,
			"customer_satisfaction": %d
		}`, satisfaction)

		analysis, err := decodeAnalysis(arguments)
		require.NoError(t, err)
		return analysis
	}

	// the score is on a 1-5 scale; anything above is discarded, not clamped
	require.NotNil(t, decode(5).CustomerSatisfaction)
	assert.Equal(t, 5, *decode(5).CustomerSatisfaction)
	assert.Nil(t, decode(7).CustomerSatisfaction)
	assert.Nil(t, decode(0).CustomerSatisfaction)
}

func TestBuildUserPrompt(t *testing.T) {
	caller := "Dana Fox"
	agent := "Sam Lee"
	prompt := buildUserPrompt("Hello, I need help with my account.", models.CallMetadata{
		CallerName:      &caller,
		AgentName:       &agent,
		DurationSeconds: 245,
		Direction:       models.DirectionInbound,
	})

	assert.Contains(t, prompt, "Caller: Dana Fox")
	assert.Contains(t, prompt, "Agent: Sam Lee")
	assert.Contains(t, prompt, "Direction: inbound")
	assert.Contains(t, prompt, "Duration: 245 seconds")
	assert.Contains(t, prompt, "Hello, I need help with my account.")
}
