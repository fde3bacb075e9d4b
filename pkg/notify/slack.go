package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/httpclient"
)

// maxSlackActionItems caps how many action items a message lists before
// collapsing the rest into a count.
const maxSlackActionItems = 5

// SlackConfig holds Slack channel configuration.
type SlackConfig struct {
	// WebhookURL is an incoming webhook URL.
	WebhookURL string
}

// SlackChannel posts call summaries to a Slack incoming webhook using
// Block Kit formatting.
type SlackChannel struct {
	client *httpclient.Client
	config SlackConfig
	logger ectologger.Logger
}

// NewSlackChannel creates a Slack notification channel.
func NewSlackChannel(client *httpclient.Client, config SlackConfig, logger ectologger.Logger) *SlackChannel {
	return &SlackChannel{
		client: client,
		config: config,
		logger: logger,
	}
}

// Name implements Channel.
func (s *SlackChannel) Name() string {
	return "slack"
}

// Send implements Channel.
func (s *SlackChannel) Send(ctx context.Context, notification *CallNotification) error {
	if s.config.WebhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}

	payload := map[string]any{
		"blocks": s.buildBlocks(notification),
	}

	resp, err := s.client.PostJSON(ctx, s.config.WebhookURL, payload, nil)
	if err != nil {
		return fmt.Errorf("failed to post slack message: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d: %s", resp.StatusCode, string(resp.Body))
	}

	return nil
}

func (s *SlackChannel) buildBlocks(notification *CallNotification) []map[string]any {
	call := notification.Call

	caller := "Unknown caller"
	if call.CallerName != nil && *call.CallerName != "" {
		caller = *call.CallerName
	} else if call.CallerNumber != nil && *call.CallerNumber != "" {
		caller = *call.CallerNumber
	}

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{
				"type": "plain_text",
				"text": fmt.Sprintf("Call processed: %s", caller),
			},
		},
		{
			"type": "section",
			"fields": []map[string]any{
				{"type": "mrkdwn", "text": fmt.Sprintf("*Direction:*\n%s", call.Direction)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Duration:*\n%s", formatDuration(call.DurationSeconds))},
			},
		},
	}

	if summary := notification.Summary; summary != nil {
		if summary.Summary != nil && *summary.Summary != "" {
			blocks = append(blocks, map[string]any{
				"type": "section",
				"text": map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Summary*\n%s", *summary.Summary)},
			})
		}

		var fields []map[string]any
		if summary.Sentiment != nil {
			fields = append(fields, map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Sentiment:*\n%s %s", sentimentEmoji(string(*summary.Sentiment)), *summary.Sentiment),
			})
		}
		if summary.UrgencyScore != nil {
			fields = append(fields, map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Urgency:*\n%d/5", *summary.UrgencyScore),
			})
		}
		if len(fields) > 0 {
			blocks = append(blocks, map[string]any{"type": "section", "fields": fields})
		}
	}

	if len(notification.ActionItems) > 0 {
		var sb strings.Builder
		sb.WriteString("*Action items*\n")
		for i, item := range notification.ActionItems {
			if i >= maxSlackActionItems {
				fmt.Fprintf(&sb, "_...and %d more_\n", len(notification.ActionItems)-maxSlackActionItems)
				break
			}
			fmt.Fprintf(&sb, "%d. %s (P%d)\n", i+1, item.Description, item.Priority)
		}
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": sb.String()},
		})
	}

	if notification.DashboardURL != "" {
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("<%s/calls/%s|View call details>", notification.DashboardURL, call.ID),
			},
		})
	}

	return blocks
}

func sentimentEmoji(sentiment string) string {
	switch sentiment {
	case "positive":
		return ":smile:"
	case "negative":
		return ":disappointed:"
	default:
		return ":neutral_face:"
	}
}

func formatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}
