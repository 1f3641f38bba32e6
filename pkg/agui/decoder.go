package agui

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ParseEvent decodes a single JSON-encoded AG-UI event into its typed
// representation. The type field selects the concrete struct; unknown
// types are an error.
func ParseEvent(data []byte) (Event, error) {
	var probe struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse event type: %w", err)
	}

	var event Event
	switch probe.Type {
	case EventTypeRunStarted:
		event = &RunStartedEvent{}
	case EventTypeRunFinished:
		event = &RunFinishedEvent{}
	case EventTypeRunError:
		event = &RunErrorEvent{}
	case EventTypeStepStarted:
		event = &StepStartedEvent{}
	case EventTypeStepFinished:
		event = &StepFinishedEvent{}
	case EventTypeTextMessageStart:
		event = &TextMessageStartEvent{}
	case EventTypeTextMessageContent:
		event = &TextMessageContentEvent{}
	case EventTypeTextMessageEnd:
		event = &TextMessageEndEvent{}
	case EventTypeToolCallStart:
		event = &ToolCallStartEvent{}
	case EventTypeToolCallArgs:
		event = &ToolCallArgsEvent{}
	case EventTypeToolCallEnd:
		event = &ToolCallEndEvent{}
	case EventTypeToolCallResult:
		event = &ToolCallResultEvent{}
	case EventTypeStateSnapshot:
		event = &StateSnapshotEvent{}
	case EventTypeStateDelta:
		event = &StateDeltaEvent{}
	case EventTypeMessagesSnapshot:
		event = &MessagesSnapshotEvent{}
	case EventTypeRaw:
		event = &RawEvent{}
	case EventTypeCustom:
		event = &CustomEvent{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", probe.Type)
	}

	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s event: %w", probe.Type, err)
	}
	return event, nil
}

// DecodeSSE parses one SSE data line into an event. The "data:" prefix is
// optional so callers can pass either raw frames or pre-stripped JSON.
func DecodeSSE(line string) (Event, error) {
	payload := strings.TrimSpace(line)
	if after, found := strings.CutPrefix(payload, "data:"); found {
		payload = strings.TrimSpace(after)
	}
	if payload == "" {
		return nil, fmt.Errorf("empty SSE data line")
	}
	return ParseEvent([]byte(payload))
}

// StreamDecoder reads AG-UI events off a server-sent event stream. It
// scans for data lines, ignoring comments and other SSE fields, and
// surfaces one event per frame.
type StreamDecoder struct {
	scanner *bufio.Scanner
}

// NewStreamDecoder creates a decoder over r.
func NewStreamDecoder(r io.Reader) *StreamDecoder {
	scanner := bufio.NewScanner(r)
	// Frames carrying full message snapshots can exceed the default token
	// size, so allow up to 1 MiB per line.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &StreamDecoder{scanner: scanner}
}

// Next returns the next event on the stream, or io.EOF when the stream
// ends cleanly.
func (d *StreamDecoder) Next() (Event, error) {
	for d.scanner.Scan() {
		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 || line[0] == ':' {
			continue
		}
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		payload := bytes.TrimSpace(line[len("data:"):])
		if len(payload) == 0 {
			continue
		}
		return ParseEvent(payload)
	}
	if err := d.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// DecodeAll drains the stream and returns every event in order.
func (d *StreamDecoder) DecodeAll() ([]Event, error) {
	var events []Event
	for {
		event, err := d.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
}
