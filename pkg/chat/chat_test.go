package chat

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	structured map[string]any
	text       string
	invokeErr  error

	chunks    []string
	streamErr error

	invoked  []string
	streamed []string
}

func (f *fakeBackend) Invoke(ctx context.Context, input string) (map[string]any, string, error) {
	f.invoked = append(f.invoked, input)
	if f.invokeErr != nil {
		return nil, "", f.invokeErr
	}
	return f.structured, f.text, nil
}

func (f *fakeBackend) Stream(ctx context.Context, input string) (<-chan string, error) {
	f.streamed = append(f.streamed, input)
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	ch := make(chan string, len(f.chunks))
	for _, chunk := range f.chunks {
		ch <- chunk
	}
	close(ch)
	return ch, nil
}

func runREPL(t *testing.T, backend Backend, input string) string {
	t.Helper()

	var out bytes.Buffer
	repl := New(backend, strings.NewReader(input), &out)
	require.NoError(t, repl.Run(context.Background()))
	return out.String()
}

func TestQuitCommands(t *testing.T) {
	for _, cmd := range []string{"quit", "exit", "q", "QUIT", "Exit"} {
		t.Run(cmd, func(t *testing.T) {
			out := runREPL(t, &fakeBackend{}, cmd+"\n")
			assert.Contains(t, out, "\n👋 Goodbye!\n")
		})
	}
}

func TestBanner(t *testing.T) {
	out := runREPL(t, &fakeBackend{}, "quit\n")

	assert.Contains(t, out, strings.Repeat("=", 60))
	assert.Contains(t, out, "🚀 Drover Agent CLI")
	assert.Contains(t, out, "Commands:")
	assert.Contains(t, out, "  - 'stream <message>' for streaming response")
	assert.Contains(t, out, "  - 'quit' or 'exit' to leave")
	assert.Contains(t, out, "  - 'clear' to clear screen")
}

func TestEmptyInputLoops(t *testing.T) {
	backend := &fakeBackend{}
	out := runREPL(t, backend, "\n   \nquit\n")

	assert.Equal(t, 3, strings.Count(out, "👤 You: "))
	assert.Empty(t, backend.invoked)
	assert.Empty(t, backend.streamed)
}

func TestClearCommand(t *testing.T) {
	out := runREPL(t, &fakeBackend{}, "clear\nquit\n")
	assert.Contains(t, out, "\033[2J\033[H")
}

func TestSyncExchange(t *testing.T) {
	backend := &fakeBackend{text: "Hi there"}
	out := runREPL(t, backend, "hello\nquit\n")

	assert.Contains(t, out, "\n🤖 Assistant: \nHi there\n\n")
	assert.NotContains(t, out, "📊 Structured Response:")
	assert.Equal(t, []string{"hello"}, backend.invoked)
}

func TestSyncExchangeStructured(t *testing.T) {
	backend := &fakeBackend{
		text:       "Report ready",
		structured: map[string]any{"temperature": 20},
	}
	out := runREPL(t, backend, "weather\nquit\n")

	assert.Contains(t, out, "Report ready\n")
	assert.Contains(t, out, "\n📊 Structured Response: {\"temperature\":20}\n")
}

func TestStreamCommand(t *testing.T) {
	backend := &fakeBackend{chunks: []string{"Once", " upon", " a time"}}
	out := runREPL(t, backend, "stream tell me a story\nquit\n")

	assert.Contains(t, out, "\n🤖 Assistant: Once upon a time\n\n")
	assert.Equal(t, []string{"tell me a story"}, backend.streamed)
	assert.Empty(t, backend.invoked)
}

func TestStreamCommandPreservesCase(t *testing.T) {
	backend := &fakeBackend{chunks: []string{"ok"}}
	runREPL(t, backend, "Stream Tell Me\nquit\n")

	assert.Equal(t, []string{"Tell Me"}, backend.streamed)
}

func TestInvokeErrorKeepsLoop(t *testing.T) {
	backend := &fakeBackend{invokeErr: fmt.Errorf("model unavailable")}
	out := runREPL(t, backend, "hello\nquit\n")

	assert.Contains(t, out, "\n❌ Error: model unavailable\n\n")
	assert.Contains(t, out, "\n👋 Goodbye!\n")
}

func TestStreamErrorKeepsLoop(t *testing.T) {
	backend := &fakeBackend{streamErr: fmt.Errorf("connection refused")}
	out := runREPL(t, backend, "stream hi\nquit\n")

	assert.Contains(t, out, "\n❌ Error: connection refused\n\n")
	assert.Contains(t, out, "\n👋 Goodbye!\n")
}

func TestEOFSaysGoodbye(t *testing.T) {
	out := runREPL(t, &fakeBackend{}, "")
	assert.Contains(t, out, "\n👋 Goodbye!\n")
}

func TestCanceledContextExits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	repl := New(&fakeBackend{}, strings.NewReader("hello\n"), &out)
	require.NoError(t, repl.Run(ctx))
	assert.Contains(t, out.String(), "👋 Goodbye!")
}
