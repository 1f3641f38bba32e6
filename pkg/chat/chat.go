// Copyright 2025 The Drover Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chat is the interactive terminal client. The same REPL drives
// an in-process agent or a deployed runtime.
package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Backend is the conversation surface the REPL drives.
type Backend interface {
	// Invoke runs one exchange to completion, returning any structured
	// output alongside the answer text.
	Invoke(ctx context.Context, input string) (structured map[string]any, text string, err error)

	// Stream runs one exchange, delivering plain text chunks as they
	// arrive. Stream errors surface as a final chunk.
	Stream(ctx context.Context, input string) (<-chan string, error)
}

// REPL is the interactive loop.
type REPL struct {
	backend Backend
	in      io.Reader
	out     io.Writer
}

// New creates a REPL reading commands from in and writing to out.
func New(backend Backend, in io.Reader, out io.Writer) *REPL {
	return &REPL{backend: backend, in: in, out: out}
}

// Run prints the banner and serves commands until quit, EOF, or context
// cancellation. Exchange errors are printed and the loop continues.
func (r *REPL) Run(ctx context.Context) error {
	r.banner()

	scanner := bufio.NewScanner(r.in)
	for {
		if ctx.Err() != nil {
			fmt.Fprintln(r.out, "\n👋 Goodbye!")
			return nil
		}

		fmt.Fprint(r.out, "👤 You: ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out, "\n👋 Goodbye!")
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		lower := strings.ToLower(input)
		switch {
		case lower == "quit" || lower == "exit" || lower == "q":
			fmt.Fprintln(r.out, "\n👋 Goodbye!")
			return nil

		case lower == "clear":
			fmt.Fprint(r.out, "\033[2J\033[H")

		case strings.HasPrefix(lower, "stream "):
			r.streamResponse(ctx, input[len("stream "):])

		default:
			r.syncResponse(ctx, input)
		}
	}
}

func (r *REPL) banner() {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(r.out, line)
	fmt.Fprintln(r.out, "🚀 Drover Agent CLI")
	fmt.Fprintln(r.out, line)
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Commands:")
	fmt.Fprintln(r.out, "  - Type your message to chat")
	fmt.Fprintln(r.out, "  - 'stream <message>' for streaming response")
	fmt.Fprintln(r.out, "  - 'quit' or 'exit' to leave")
	fmt.Fprintln(r.out, "  - 'clear' to clear screen")
	fmt.Fprintln(r.out)
}

func (r *REPL) streamResponse(ctx context.Context, query string) {
	fmt.Fprint(r.out, "\n🤖 Assistant: ")

	chunks, err := r.backend.Stream(ctx, query)
	if err != nil {
		r.printError(err)
		return
	}
	for chunk := range chunks {
		fmt.Fprint(r.out, chunk)
	}
	fmt.Fprint(r.out, "\n\n")
}

func (r *REPL) syncResponse(ctx context.Context, query string) {
	fmt.Fprintln(r.out, "\n🤖 Assistant: ")

	structured, text, err := r.backend.Invoke(ctx, query)
	if err != nil {
		r.printError(err)
		return
	}

	fmt.Fprintln(r.out, text)
	if len(structured) > 0 {
		data, err := json.Marshal(structured)
		if err != nil {
			data = []byte(fmt.Sprintf("%v", structured))
		}
		fmt.Fprintf(r.out, "\n📊 Structured Response: %s\n", data)
	}
	fmt.Fprintln(r.out)
}

func (r *REPL) printError(err error) {
	fmt.Fprintf(r.out, "\n❌ Error: %v\n\n", err)
}
