package webhook

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Ramsey-B/fern/pkg/models"
)

var (
	// ErrMalformedPayload is returned when the payload is not a valid call.ended event
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrIgnoredEvent is returned for event types that do not trigger processing
	ErrIgnoredEvent = errors.New("ignored event type")
)

// EventTypeCallEnded is the only event type that triggers the pipeline.
const EventTypeCallEnded = "call.ended"

// ParseCallEnded decodes raw webhook bytes into a CallEndedEvent. Event
// types other than call.ended yield ErrIgnoredEvent so the handler can
// answer "ignored" without treating it as a failure.
func ParseCallEnded(body []byte) (*models.CallEndedEvent, error) {
	var event models.CallEndedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if event.EventType == "" {
		return nil, fmt.Errorf("%w: missing event_type", ErrMalformedPayload)
	}

	if event.EventType != EventTypeCallEnded {
		return nil, fmt.Errorf("%w: %s", ErrIgnoredEvent, event.EventType)
	}

	if event.Data.CallID == "" {
		return nil, fmt.Errorf("%w: missing data.call_id", ErrMalformedPayload)
	}

	switch event.Data.Direction {
	case models.DirectionInbound, models.DirectionOutbound:
	default:
		return nil, fmt.Errorf("%w: invalid direction %q", ErrMalformedPayload, event.Data.Direction)
	}

	if event.Data.StartTime.IsZero() {
		return nil, fmt.Errorf("%w: missing data.start_time", ErrMalformedPayload)
	}

	if event.Data.Duration < 0 {
		return nil, fmt.Errorf("%w: negative duration", ErrMalformedPayload)
	}

	return &event, nil
}
