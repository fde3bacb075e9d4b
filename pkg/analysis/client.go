// Package analysis extracts structured insights from call transcripts.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"
)

// ErrAnalysisFailed is returned when the model gives no usable result
var ErrAnalysisFailed = errors.New("call analysis failed")

const analyzeFunctionName = "analyze_call"

const systemPrompt = "You are an assistant that analyzes customer service call transcripts. " +
	"Extract a concise summary, the key topics discussed, concrete action items, " +
	"overall customer sentiment, and how urgent a follow-up is. " +
	"Base everything strictly on the transcript; do not invent details."

// Config holds analysis backend configuration.
type Config struct {
	// Model is the chat completion model, e.g. gpt-4o.
	Model string
}

// Client runs transcript analysis against the LLM backend.
type Client struct {
	client openai.Client
	config Config
	logger ectologger.Logger
}

// NewClient creates a new analysis client.
func NewClient(client openai.Client, config Config, logger ectologger.Logger) *Client {
	return &Client{
		client: client,
		config: config,
		logger: logger,
	}
}

// Analyze sends the transcript with call metadata to the model and returns
// the structured analysis. The model is forced through a function call so
// the response always decodes into the same shape.
func (c *Client) Analyze(ctx context.Context, transcript string, metadata models.CallMetadata) (*models.CallAnalysis, error) {
	ctx, span := tracing.StartSpan(ctx, "analysis.Client.Analyze")
	defer span.End()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildUserPrompt(transcript, metadata)),
		},
		Temperature: openai.Float(0.3),
		Tools: []openai.ChatCompletionToolUnionParam{
			openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
				Name:        analyzeFunctionName,
				Description: openai.String("Record the structured analysis of a call transcript"),
				Parameters:  analyzeFunctionParameters(),
			}),
		},
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfFunctionToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
					Name: analyzeFunctionName,
				},
			},
		},
	})
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Error("analysis backend call failed")
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("%w: model returned no function call", ErrAnalysisFailed)
	}

	analysis, err := decodeAnalysis(resp.Choices[0].Message.ToolCalls[0].Function.Arguments)
	if err != nil {
		return nil, err
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"sentiment":     analysis.Sentiment,
		"urgency_score": analysis.UrgencyScore,
		"action_items":  len(analysis.ActionItems),
		"key_topics":    len(analysis.KeyTopics),
	}).Info("analyzed call transcript")

	return analysis, nil
}

// SummarizeOnly produces a short plain-text summary without the full
// structured extraction. Used by callers that only need display text.
func (c *Client) SummarizeOnly(ctx context.Context, transcript string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "analysis.Client.SummarizeOnly")
	defer span.End()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("Summarize the call transcript in two or three sentences."),
			openai.UserMessage(transcript),
		},
		Temperature:         openai.Float(0.3),
		MaxCompletionTokens: openai.Int(200),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: model returned empty summary", ErrAnalysisFailed)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildUserPrompt(transcript string, metadata models.CallMetadata) string {
	var sb strings.Builder
	sb.WriteString("Call metadata:\n")
	if metadata.CallerName != nil && *metadata.CallerName != "" {
		fmt.Fprintf(&sb, "- Caller: %s\n", *metadata.CallerName)
	}
	if metadata.AgentName != nil && *metadata.AgentName != "" {
		fmt.Fprintf(&sb, "- Agent: %s\n", *metadata.AgentName)
	}
	if metadata.Direction != "" {
		fmt.Fprintf(&sb, "- Direction: %s\n", metadata.Direction)
	}
	if metadata.DurationSeconds > 0 {
		fmt.Fprintf(&sb, "- Duration: %d seconds\n", metadata.DurationSeconds)
	}
	sb.WriteString("\nTranscript:\n")
	sb.WriteString(transcript)
	return sb.String()
}

func analyzeFunctionParameters() openai.FunctionParameters {
	return openai.FunctionParameters{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "Two to three sentence summary of the call",
			},
			"key_topics": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "3-5 main topics discussed",
			},
			"action_items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"description": map[string]any{"type": "string"},
						"priority": map[string]any{
							"type":        "integer",
							"description": "1 (lowest) to 5 (highest)",
						},
						"assignee": map[string]any{"type": "string"},
						"due_date": map[string]any{
							"type":        "string",
							"description": "YYYY-MM-DD if a deadline was mentioned",
						},
					},
					"required": []string{"description", "priority"},
				},
			},
			"sentiment": map[string]any{
				"type": "string",
				"enum": []string{"positive", "neutral", "negative"},
			},
			"urgency_score": map[string]any{
				"type":        "integer",
				"description": "1 (no urgency) to 5 (immediate follow-up required)",
			},
			"customer_satisfaction": map[string]any{
				"type":        "integer",
				"description": "1 (very dissatisfied) to 5 (very satisfied), when it can be judged",
			},
			"next_steps": map[string]any{
				"type":        "string",
				"description": "Recommended next steps for the team",
			},
		},
		"required": []string{"summary", "key_topics", "action_items", "sentiment", "urgency_score"},
	}
}

// decodeAnalysis parses and validates the function call arguments. Invalid
// top-level fields fail the analysis; individual action items are repaired
// where possible and dropped when empty.
func decodeAnalysis(arguments string) (*models.CallAnalysis, error) {
	var analysis models.CallAnalysis
	if err := json.Unmarshal([]byte(arguments), &analysis); err != nil {
		return nil, fmt.Errorf("%w: decoding function arguments: %v", ErrAnalysisFailed, err)
	}

	analysis.Summary = strings.TrimSpace(analysis.Summary)
	if analysis.Summary == "" {
		return nil, fmt.Errorf("%w: missing summary", ErrAnalysisFailed)
	}
	if !analysis.Sentiment.Valid() {
		return nil, fmt.Errorf("%w: invalid sentiment %q", ErrAnalysisFailed, analysis.Sentiment)
	}
	if analysis.UrgencyScore < 1 || analysis.UrgencyScore > 5 {
		return nil, fmt.Errorf("%w: urgency score %d out of range", ErrAnalysisFailed, analysis.UrgencyScore)
	}
	if analysis.CustomerSatisfaction != nil && (*analysis.CustomerSatisfaction < 1 || *analysis.CustomerSatisfaction > 5) {
		analysis.CustomerSatisfaction = nil
	}

	items := analysis.ActionItems[:0]
	for _, item := range analysis.ActionItems {
		item.Description = strings.TrimSpace(item.Description)
		if item.Description == "" {
			continue
		}
		if item.Priority < 1 || item.Priority > 5 {
			item.Priority = 3
		}
		items = append(items, item)
	}
	analysis.ActionItems = items

	return &analysis, nil
}
