package invoker

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/droverhq/drover/pkg/agui"
)

// Render writes the response to w in the mode the invocation asked for:
// AG-UI events, the plain chunk envelope, or the synchronous JSON body.
func (r *Result) Render(w io.Writer) error {
	defer r.Close()

	if strings.Contains(r.ContentType, "text/event-stream") {
		if r.agui {
			return RenderAGUI(w, r.Body)
		}
		return RenderPlain(w, r.Body)
	}
	return RenderSync(w, r.Body)
}

// RenderAGUI prints an AG-UI event stream: run markers, text deltas
// inline, and tool calls with truncated results.
func RenderAGUI(w io.Writer, body io.Reader) error {
	fmt.Fprintln(w, "AG-UI Streaming response:")

	dec := agui.NewStreamDecoder(body)
	for {
		event, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode event stream: %w", err)
		}

		switch ev := event.(type) {
		case *agui.RunStartedEvent:
			fmt.Fprintf(w, "[Run: %s]\n", ev.RunID)
		case *agui.TextMessageContentEvent:
			fmt.Fprint(w, ev.Delta)
		case *agui.ToolCallStartEvent:
			fmt.Fprintf(w, "\n[Tool: %s]", ev.ToolCallName)
		case *agui.ToolCallResultEvent:
			fmt.Fprintf(w, " -> %s...\n", truncate(ev.Content, 50))
		case *agui.RunFinishedEvent:
			fmt.Fprintln(w, "\n[Run finished]")
		}
	}
}

// PlainEvent is one frame of the plain streaming envelope.
type PlainEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// DecodePlainStream reads the start/chunk/end envelope off an SSE body,
// calling fn per frame.
func DecodePlainStream(body io.Reader, fn func(PlainEvent) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		data := bytes.TrimSpace(line[len("data:"):])
		if len(data) == 0 {
			continue
		}

		var event PlainEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("decode stream frame: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// RenderPlain prints the plain chunk stream: session marker, chunk
// content inline, done marker.
func RenderPlain(w io.Writer, body io.Reader) error {
	fmt.Fprintln(w, "Streaming response:")

	return DecodePlainStream(body, func(event PlainEvent) error {
		switch event.Type {
		case "start":
			fmt.Fprintf(w, "[Session: %s]\n", event.SessionID)
		case "chunk":
			fmt.Fprint(w, event.Content)
		case "end":
			fmt.Fprintln(w, "\n[Done]")
		}
		return nil
	})
}

// RenderSync prints a synchronous JSON response.
func RenderSync(w io.Writer, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	fmt.Fprintf(w, "Agent Response: %s\n", bytes.TrimSpace(data))
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
