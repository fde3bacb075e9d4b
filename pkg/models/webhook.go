package models

import "time"

// CallEndedEvent is the decoded call.ended webhook payload.
type CallEndedEvent struct {
	EventType string        `json:"event_type"`
	Timestamp time.Time     `json:"timestamp"`
	Data      CallEndedData `json:"data"`
}

// CallEndedData is the event payload body.
type CallEndedData struct {
	CallID       string         `json:"call_id"`
	Direction    CallDirection  `json:"direction"`
	Caller       *CallEndpoint  `json:"caller,omitempty"`
	Called       *CallEndpoint  `json:"called,omitempty"`
	StartTime    time.Time      `json:"start_time"`
	EndTime      *time.Time     `json:"end_time,omitempty"`
	Duration     int            `json:"duration"`
	RecordingURL *string        `json:"recording_url,omitempty"`
	Status       string         `json:"status"`
}

// CallEndpoint identifies one side of a call.
type CallEndpoint struct {
	Number *string `json:"number,omitempty"`
	Name   *string `json:"name,omitempty"`
}

// ToCall maps the event onto a Call record.
func (e *CallEndedEvent) ToCall(receivedAt time.Time) *Call {
	call := &Call{
		ExternalID:      e.Data.CallID,
		Direction:       e.Data.Direction,
		StartTime:       e.Data.StartTime,
		EndTime:         e.Data.EndTime,
		DurationSeconds: e.Data.Duration,
		RecordingURL:    e.Data.RecordingURL,
		ReceivedAt:      receivedAt,
	}
	if e.Data.Caller != nil {
		call.CallerNumber = e.Data.Caller.Number
		call.CallerName = e.Data.Caller.Name
	}
	if e.Data.Called != nil {
		call.CalledNumber = e.Data.Called.Number
		call.CalledName = e.Data.Called.Name
	}
	return call
}

// WebhookResponse is returned to the webhook sender on every handled case.
type WebhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	CallID  string `json:"call_id,omitempty"`
}

const (
	WebhookStatusAccepted  = "accepted"
	WebhookStatusDuplicate = "duplicate"
	WebhookStatusIgnored   = "ignored"
)
