package agui

import (
	"encoding/json"
	"fmt"
)

// ContentTypeSSE is the media type for AG-UI event streams.
const ContentTypeSSE = "text/event-stream"

// EventEncoder serializes AG-UI events into server-sent event frames.
// Frames follow the standard SDK format: a single data line holding the
// event JSON, terminated by a blank line.
type EventEncoder struct{}

// NewEventEncoder creates an event encoder.
func NewEventEncoder() *EventEncoder {
	return &EventEncoder{}
}

// ContentType returns the media type responses carrying encoded events
// should declare.
func (e *EventEncoder) ContentType() string {
	return ContentTypeSSE
}

// Encode validates the event and returns its SSE frame.
func (e *EventEncoder) Encode(event Event) ([]byte, error) {
	if event == nil {
		return nil, fmt.Errorf("cannot encode nil event")
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", event.Type(), err)
	}

	return []byte(fmt.Sprintf("data: %s\n\n", data)), nil
}
