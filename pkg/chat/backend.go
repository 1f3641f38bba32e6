package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/droverhq/drover/pkg/agent"
	"github.com/droverhq/drover/pkg/invoker"
)

// localBackend drives an in-process agent.
type localBackend struct {
	agent *agent.Agent
	run   agent.RunConfig
}

// Local wraps an in-process agent. The run config pins the conversation's
// session.
func Local(ag *agent.Agent, run agent.RunConfig) Backend {
	return &localBackend{agent: ag, run: run}
}

func (b *localBackend) Invoke(ctx context.Context, input string) (map[string]any, string, error) {
	structured, result, err := b.agent.Invoke(ctx, input, b.run)
	if err != nil {
		return nil, "", err
	}
	return structured, result.Text, nil
}

func (b *localBackend) Stream(ctx context.Context, input string) (<-chan string, error) {
	return b.agent.StreamPlainText(ctx, input, b.run), nil
}

// remoteBackend drives a deployed runtime through the invoker.
type remoteBackend struct {
	client    *invoker.Client
	sessionID string
	userID    string
}

// Remote wraps a deployed runtime. Empty ids get the invoker defaults,
// with the session pinned for the conversation's lifetime.
func Remote(client *invoker.Client, sessionID, userID string) Backend {
	if sessionID == "" {
		sessionID = invoker.DefaultSessionID()
	}
	if userID == "" {
		userID = invoker.DefaultUserID
	}
	return &remoteBackend{client: client, sessionID: sessionID, userID: userID}
}

func (b *remoteBackend) Invoke(ctx context.Context, input string) (map[string]any, string, error) {
	result, err := b.client.Invoke(ctx, invoker.Request{
		Input:     input,
		SessionID: b.sessionID,
		UserID:    b.userID,
	})
	if err != nil {
		return nil, "", err
	}
	defer result.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read response: %w", err)
	}

	var resp struct {
		Content          string         `json:"content"`
		StructuredOutput map[string]any `json:"structured_output"`
		Error            string         `json:"error"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != "" {
		return nil, "", errors.New(resp.Error)
	}
	return resp.StructuredOutput, resp.Content, nil
}

func (b *remoteBackend) Stream(ctx context.Context, input string) (<-chan string, error) {
	result, err := b.client.Invoke(ctx, invoker.Request{
		Input:     input,
		SessionID: b.sessionID,
		UserID:    b.userID,
		Stream:    true,
	})
	if err != nil {
		return nil, err
	}

	chunks := make(chan string, 16)
	go func() {
		defer close(chunks)
		defer result.Close()

		err := invoker.DecodePlainStream(result.Body, func(event invoker.PlainEvent) error {
			if event.Type != "chunk" || event.Content == "" {
				return nil
			}
			select {
			case chunks <- event.Content:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && ctx.Err() == nil {
			chunks <- fmt.Sprintf("Error: %v", err)
		}
	}()
	return chunks, nil
}
