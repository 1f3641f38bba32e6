package agui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventEncoder_Encode(t *testing.T) {
	encoder := NewEventEncoder()

	frame, err := encoder.Encode(NewRunStartedEvent("thread-1", "run-1"))
	require.NoError(t, err)
	assert.Equal(t, "data: {\"type\":\"RUN_STARTED\",\"threadId\":\"thread-1\",\"runId\":\"run-1\"}\n\n", string(frame))
}

func TestEventEncoder_ContentType(t *testing.T) {
	encoder := NewEventEncoder()
	assert.Equal(t, "text/event-stream", encoder.ContentType())
}

func TestEventEncoder_InvalidEvent(t *testing.T) {
	encoder := NewEventEncoder()

	_, err := encoder.Encode(NewTextMessageContentEvent("msg-1", ""))
	assert.Error(t, err)

	_, err = encoder.Encode(nil)
	assert.Error(t, err)
}

func TestEventEncoder_FramesDecodable(t *testing.T) {
	encoder := NewEventEncoder()

	events := []Event{
		NewRunStartedEvent("t", "r"),
		NewTextMessageStartEvent("m", WithRole("assistant")),
		NewTextMessageContentEvent("m", "hi"),
		NewTextMessageEndEvent("m"),
		NewRunFinishedEvent("t", "r"),
	}

	var stream bytes.Buffer
	for _, event := range events {
		frame, err := encoder.Encode(event)
		require.NoError(t, err)
		stream.Write(frame)
	}

	// Every frame must be decodable off the stream in order
	decoded, err := NewStreamDecoder(&stream).DecodeAll()
	require.NoError(t, err)
	require.Len(t, decoded, len(events))
	for i, event := range decoded {
		assert.Equal(t, events[i].Type(), event.Type())
	}
}
