package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/droverhq/drover/pkg/agent"
	"github.com/droverhq/drover/pkg/agui"
)

// invocationRequest is the AgentCore invocation payload.
type invocationRequest struct {
	Input      string `json:"input"`
	UserID     string `json:"user_id"`
	SessionID  string `json:"session_id"`
	Stream     bool   `json:"stream"`
	StreamAGUI bool   `json:"stream_agui"`
}

// invocationResponse is the synchronous invocation result.
type invocationResponse struct {
	Content          string         `json:"content"`
	StructuredOutput map[string]any `json:"structured_output"`
	SessionID        string         `json:"session_id"`
	UserID           string         `json:"user_id"`
}

// handleInvocations dispatches an invocation to one of the three response
// modes: AG-UI SSE, plain SSE, or synchronous JSON.
func (a *App) handleInvocations(w http.ResponseWriter, r *http.Request) {
	var req invocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = uuid.NewString()
	}

	// The session id AgentCore assigns wins over the payload's.
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		sessionID = req.SessionID
	}
	if sessionID == "" {
		sessionID = "DEFAULT"
	}

	run := agent.RunConfig{SessionID: sessionID, ThreadID: sessionID, UserID: userID}

	switch {
	case req.StreamAGUI:
		a.streamAGUI(w, r, req.Input, run)
	case req.Stream:
		a.streamPlain(w, r, req.Input, run, sessionID)
	default:
		a.invokeSync(w, r, req.Input, run, sessionID, userID)
	}
}

// invokeSync runs the agent to completion and answers with the final
// content plus any structured output.
func (a *App) invokeSync(w http.ResponseWriter, r *http.Request, input string, run agent.RunConfig, sessionID, userID string) {
	structured, result, err := a.Agent().Invoke(r.Context(), input, run)
	if err != nil {
		status := http.StatusInternalServerError
		var execErr *agent.ExecutionError
		if errors.As(err, &execErr) && execErr.StatusCode != 0 {
			status = execErr.StatusCode
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, invocationResponse{
		Content:          result.Text,
		StructuredOutput: structured,
		SessionID:        sessionID,
		UserID:           userID,
	})
}

// streamAGUI relays the agent's AG-UI frames to the client.
func (a *App) streamAGUI(w http.ResponseWriter, r *http.Request, input string, run agent.RunConfig) {
	flusher := startSSE(w)
	if flusher == nil {
		return
	}

	for frame := range a.Agent().StreamAGUI(r.Context(), input, run) {
		if _, err := w.Write(frame); err != nil {
			return
		}
		flusher.Flush()
	}
}

// streamPlain emits the start/chunk/end event envelope around the plain
// text stream.
func (a *App) streamPlain(w http.ResponseWriter, r *http.Request, input string, run agent.RunConfig, sessionID string) {
	flusher := startSSE(w)
	if flusher == nil {
		return
	}

	write := func(payload map[string]any) bool {
		data, err := json.Marshal(payload)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !write(map[string]any{"type": "start", "session_id": sessionID}) {
		return
	}
	for chunk := range a.Agent().StreamPlainText(r.Context(), input, run) {
		if !write(map[string]any{"type": "chunk", "content": chunk}) {
			return
		}
	}
	write(map[string]any{"type": "end"})
}

// startSSE sets the event-stream headers and returns the flusher, or nil
// when the connection cannot stream.
func startSSE(w http.ResponseWriter) http.Flusher {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return nil
	}

	w.Header().Set("Content-Type", agui.ContentTypeSSE)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return flusher
}
