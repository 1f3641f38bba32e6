package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droverhq/drover/pkg/agent"
	"github.com/droverhq/drover/pkg/config"
	"github.com/droverhq/drover/pkg/config/provider"
	"github.com/droverhq/drover/pkg/model"
)

func scriptedAgent(t *testing.T, answer string) *agent.Agent {
	t.Helper()

	ag, err := agent.New(agent.Options{Provider: &scriptedProvider{responses: []*model.Response{{
		Message:    model.AssistantMessage(answer),
		StopReason: model.StopEndTurn,
	}}}})
	require.NoError(t, err)
	return ag
}

func syncContent(t *testing.T, handler http.Handler) string {
	t.Helper()

	rec := postJSON(t, handler, "/invocations",
		`{"input":"hi","user_id":"u1","session_id":"s1"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Content
}

func TestSetAgentSwapsServedAgent(t *testing.T) {
	app := New(nil, scriptedAgent(t, "before"))
	handler := app.Handler()

	assert.Equal(t, "before", syncContent(t, handler))

	app.SetAgent(scriptedAgent(t, "after"))

	assert.Equal(t, "after", syncContent(t, handler))
}

// A config file edit under watch must reach the running app: the loader's
// change callback swaps the served agent, and subsequent requests answer
// from the new one.
func TestConfigReloadReachesServedAgent(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "drover.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("agent:\n  name: before\n"), 0644))

	p, err := provider.NewFileProvider(configFile)
	require.NoError(t, err)

	loader := config.NewLoader(p)
	defer loader.Close()

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "before", cfg.Agent.Name)

	app := New(cfg, scriptedAgent(t, "before"))
	handler := app.Handler()

	// The serve command installs this after building the app, once the
	// resources the rebuild needs exist.
	applied := make(chan string, 1)
	loader.SetOnChange(func(newCfg *config.Config) {
		app.SetAgent(scriptedAgent(t, newCfg.Agent.Name))
		select {
		case applied <- newCfg.Agent.Name:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loader.Watch(ctx)

	// Give the watcher time to start
	time.Sleep(200 * time.Millisecond)

	require.Equal(t, "before", syncContent(t, handler))

	require.NoError(t, os.WriteFile(configFile, []byte("agent:\n  name: after\n"), 0644))

	select {
	case name := <-applied:
		assert.Equal(t, "after", name)
	case <-time.After(3 * time.Second):
		t.Fatal("config reload was not applied")
	}

	assert.Equal(t, "after", syncContent(t, handler))
}
