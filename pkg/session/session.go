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

// Package session stores per-session conversation history.
//
// WindowHistory keeps a sliding window of recent messages in memory,
// optionally bounded by a token budget. SQLStore persists history to
// PostgreSQL, MySQL, or SQLite for agents that survive restarts.
package session

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/droverhq/drover/pkg/config"
	"github.com/droverhq/drover/pkg/model"
)

// DefaultSessionID is used when a caller passes an empty session id.
const DefaultSessionID = "default"

// Options configures a WindowHistory.
type Options struct {
	// WindowSize is the number of recent messages retained per session.
	// Default: 20.
	WindowSize int

	// TokenBudget trims history to approximately this many tokens on top
	// of the window. 0 disables token trimming.
	TokenBudget int

	// TokenEncoding is the tiktoken encoding used for budget counting.
	// Default: "cl100k_base".
	TokenEncoding string
}

// OptionsFromConfig maps the configuration file's session block.
func OptionsFromConfig(cfg *config.SessionConfig) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		WindowSize:    cfg.WindowSize,
		TokenBudget:   cfg.TokenBudget,
		TokenEncoding: cfg.TokenEncoding,
	}
}

// tokenCounter counts tokens for budget trimming.
type tokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

func (c tiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// WindowHistory is an in-memory sliding window of conversation history,
// keyed by session id. Safe for concurrent use.
type WindowHistory struct {
	window  int
	budget  int
	counter tokenCounter

	mu       sync.RWMutex
	sessions map[string][]model.Message
}

// NewWindowHistory creates a WindowHistory. The tokenizer is loaded only
// when a token budget is set.
func NewWindowHistory(opts Options) (*WindowHistory, error) {
	if opts.WindowSize <= 0 {
		opts.WindowSize = config.DefaultSessionWindow
	}

	h := &WindowHistory{
		window:   opts.WindowSize,
		budget:   opts.TokenBudget,
		sessions: make(map[string][]model.Message),
	}

	if opts.TokenBudget > 0 {
		encodingName := opts.TokenEncoding
		if encodingName == "" {
			encodingName = config.DefaultTokenEncoding
		}
		encoding, err := tiktoken.GetEncoding(encodingName)
		if err != nil {
			return nil, fmt.Errorf("failed to load token encoding %q: %w", encodingName, err)
		}
		h.counter = tiktokenCounter{encoding: encoding}
	}

	return h, nil
}

// Messages returns the retained history for a session, oldest first.
func (h *WindowHistory) Messages(sessionID string) []model.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stored := h.sessions[sessionKey(sessionID)]
	messages := make([]model.Message, len(stored))
	copy(messages, stored)
	return messages
}

// Append adds messages to a session and trims to the window.
func (h *WindowHistory) Append(sessionID string, msgs ...model.Message) {
	if len(msgs) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	key := sessionKey(sessionID)
	h.sessions[key] = h.trim(append(h.sessions[key], msgs...))
}

// Clear drops a session's history.
func (h *WindowHistory) Clear(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionKey(sessionID))
}

// SessionCount returns the number of sessions with retained history.
func (h *WindowHistory) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// trim applies the message window, then the token budget. The newest
// message always survives so the active turn is never dropped.
func (h *WindowHistory) trim(msgs []model.Message) []model.Message {
	if len(msgs) > h.window {
		msgs = msgs[len(msgs)-h.window:]
	}

	if h.budget <= 0 || h.counter == nil || len(msgs) <= 1 {
		return msgs
	}

	// Walk from the newest backwards, keeping messages that fit.
	total := 0
	keep := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		total += messageTokens(h.counter, msgs[i])
		if total > h.budget && i < len(msgs)-1 {
			break
		}
		keep = i
	}
	return msgs[keep:]
}

// messageTokens counts a message's text plus a small per-message framing
// overhead, following the OpenAI chat accounting scheme.
func messageTokens(counter tokenCounter, msg model.Message) int {
	tokens := 3 + counter.Count(string(msg.Role))
	for _, block := range msg.Content {
		if block.Text != "" {
			tokens += counter.Count(block.Text)
		}
		if block.ToolResult != nil {
			tokens += counter.Count(block.ToolResult.Content)
		}
	}
	return tokens
}

func sessionKey(sessionID string) string {
	if sessionID == "" {
		return DefaultSessionID
	}
	return sessionID
}
