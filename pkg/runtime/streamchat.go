package runtime

import (
	"encoding/json"
	"net/http"

	"github.com/droverhq/drover/pkg/agent"
)

// chatMessage is one turn in a stream-chat conversation.
type chatMessage struct {
	Role     string         `json:"role"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// streamChatRequest is the conversational frontend's request body. The
// conversation history travels with every request; only the last message
// is run, the id threads the conversation.
type streamChatRequest struct {
	ID            string        `json:"id"`
	Conversation  []chatMessage `json:"conversation"`
	ShowToolCalls bool          `json:"show_tool_calls"`
}

// handleStreamChat answers an AG-UI SSE stream for the newest message of
// the conversation. The user id comes from the X-User-Id header, or the
// legacy userId header.
func (a *App) handleStreamChat(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		userID = r.Header.Get("userId")
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User ID header is required (X-User-Id or userId)")
		return
	}

	var req streamChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	last := ""
	if n := len(req.Conversation); n > 0 {
		last = req.Conversation[n-1].Message
	}

	run := agent.RunConfig{SessionID: req.ID, ThreadID: req.ID, UserID: userID}
	a.streamAGUI(w, r, last, run)
}
