package webhook

import (
	"testing"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayload() []byte {
	return []byte(`{
		"event_type": "call.ended",
		"timestamp": "2026-01-15T10:30:00Z",
		"data": {
			"call_id": "call-abc-123",
			"direction": "inbound",
			"caller": {"number": "+15551234567", "name": "Jane Customer"},
			"called": {"number": "+15557654321", "name": "Support Line"},
			"start_time": "2026-01-15T10:15:00+00:00",
			"end_time": "2026-01-15T10:29:30Z",
			"duration": 870,
			"recording_url": "https://cdn.example.com/recordings/call-abc-123.mp3",
			"status": "completed"
		}
	}`)
}

func TestParseCallEnded_Valid(t *testing.T) {
	event, err := ParseCallEnded(validPayload())
	require.NoError(t, err)

	assert.Equal(t, "call.ended", event.EventType)
	assert.Equal(t, "call-abc-123", event.Data.CallID)
	assert.Equal(t, models.DirectionInbound, event.Data.Direction)
	assert.Equal(t, 870, event.Data.Duration)
	require.NotNil(t, event.Data.Caller)
	assert.Equal(t, "Jane Customer", *event.Data.Caller.Name)
	require.NotNil(t, event.Data.RecordingURL)

	// offset form and Z form both parse
	assert.Equal(t, time.Date(2026, 1, 15, 10, 15, 0, 0, time.UTC), event.Data.StartTime.UTC())
}

func TestParseCallEnded_IgnoredEventType(t *testing.T) {
	payload := []byte(`{"event_type": "call.started", "timestamp": "2026-01-15T10:30:00Z", "data": {"call_id": "x"}}`)

	_, err := ParseCallEnded(payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIgnoredEvent)
	assert.NotErrorIs(t, err, ErrMalformedPayload)
}

func TestParseCallEnded_Malformed(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", `{"event_type":`},
		{"missing event_type", `{"timestamp": "2026-01-15T10:30:00Z", "data": {"call_id": "x"}}`},
		{"missing call_id", `{"event_type": "call.ended", "data": {"direction": "inbound", "start_time": "2026-01-15T10:15:00Z"}}`},
		{"bad direction", `{"event_type": "call.ended", "data": {"call_id": "x", "direction": "sideways", "start_time": "2026-01-15T10:15:00Z"}}`},
		{"missing start_time", `{"event_type": "call.ended", "data": {"call_id": "x", "direction": "inbound"}}`},
		{"unparseable start_time", `{"event_type": "call.ended", "data": {"call_id": "x", "direction": "inbound", "start_time": "yesterday"}}`},
		{"wrong type duration", `{"event_type": "call.ended", "data": {"call_id": "x", "direction": "inbound", "start_time": "2026-01-15T10:15:00Z", "duration": "long"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCallEnded([]byte(tc.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestParseCallEnded_OptionalFieldsAbsent(t *testing.T) {
	payload := []byte(`{
		"event_type": "call.ended",
		"timestamp": "2026-01-15T10:30:00Z",
		"data": {
			"call_id": "call-no-extras",
			"direction": "outbound",
			"start_time": "2026-01-15T10:15:00Z",
			"duration": 30,
			"status": "completed"
		}
	}`)

	event, err := ParseCallEnded(payload)
	require.NoError(t, err)
	assert.Nil(t, event.Data.Caller)
	assert.Nil(t, event.Data.EndTime)
	assert.Nil(t, event.Data.RecordingURL)

	call := event.ToCall(time.Now())
	assert.False(t, call.HasRecording())
	assert.Nil(t, call.CallerNumber)
}
