package models

import (
	"time"

	"github.com/google/uuid"
)

// CallDirection is the direction of a call relative to the business.
type CallDirection string

const (
	DirectionInbound  CallDirection = "inbound"
	DirectionOutbound CallDirection = "outbound"
)

// Call is one durable call event ingested from the telephony platform.
// ExternalID is the platform's call identifier and is the natural key for
// idempotent ingestion; identity fields are never updated after creation.
type Call struct {
	ID              uuid.UUID     `db:"id" json:"id"`
	ExternalID      string        `db:"external_id" json:"external_id"`
	Direction       CallDirection `db:"direction" json:"direction"`
	CallerNumber    *string       `db:"caller_number" json:"caller_number,omitempty"`
	CallerName      *string       `db:"caller_name" json:"caller_name,omitempty"`
	CalledNumber    *string       `db:"called_number" json:"called_number,omitempty"`
	CalledName      *string       `db:"called_name" json:"called_name,omitempty"`
	StartTime       time.Time     `db:"start_time" json:"start_time"`
	EndTime         *time.Time    `db:"end_time" json:"end_time,omitempty"`
	DurationSeconds int           `db:"duration_seconds" json:"duration_seconds"`
	RecordingURL    *string       `db:"recording_url" json:"recording_url,omitempty"`
	ReceivedAt      time.Time     `db:"received_at" json:"received_at"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// HasRecording reports whether a recording URL was delivered with the call.
func (c *Call) HasRecording() bool {
	return c.RecordingURL != nil && *c.RecordingURL != ""
}

// ListCallsFilter narrows call listings.
type ListCallsFilter struct {
	Direction *CallDirection
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// CallListResponse is the paginated calls listing.
type CallListResponse struct {
	Items      []Call `json:"items"`
	TotalCount int    `json:"total_count"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
}

// CallDetailResponse is a call with its summary and action items.
type CallDetailResponse struct {
	Call        Call         `json:"call"`
	Summary     *CallSummary `json:"summary,omitempty"`
	ActionItems []ActionItem `json:"action_items"`
}
