package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/config"
)

const greetSchema = `
custom_entities:
  e1:
    index: 1
    entity_type: "@custom.color"
    dictionary:
      red: [crimson]
intents:
  - id: greet
    response_template: "Hi result-slot-name!"
    utterances:
      - parts:
          - text: "Hello "
          - text: world
            entity_type: "@sys.person"
            alias: name
    parameters:
      - id: slot-name
        mandatory: true
        entity_type: "@sys.person"
        friendly_name: name
`

func writeSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "greeter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(greetSchema), 0o600))
	return path
}

func testApp(cfg config.Config, out io.Writer) *App {
	return &App{
		ctx:    context.Background(),
		cfg:    cfg,
		logger: assistant.NewLogger(io.Discard, "error", "text"),
		out:    out,
	}
}

func TestCompileCommandPrintsWorkspace(t *testing.T) {
	var out bytes.Buffer
	app := testApp(config.Defaults(), &out)

	cmd := &CompileCmd{
		Schema:         writeSchema(t),
		Name:           "Greeter",
		Language:       "en",
		FulfillmentURL: "https://hooks.example.com/api/webhooks/greeter/watson",
	}
	require.NoError(t, cmd.Run(app))

	var ws map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &ws))
	assert.Equal(t, "Greeter", ws["name"])
	assert.Equal(t, "en", ws["language"])

	webhooks := ws["webhooks"].([]any)
	require.Len(t, webhooks, 1)
	assert.Equal(t, "https://hooks.example.com/api/webhooks/greeter/watson", webhooks[0].(map[string]any)["url"])

	intents := ws["intents"].([]any)
	require.Len(t, intents, 1)
	assert.Equal(t, "greet", intents[0].(map[string]any)["intent"])
}

func TestCompileCommandWritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "workspace.json")
	app := testApp(config.Defaults(), io.Discard)

	cmd := &CompileCmd{Schema: writeSchema(t), Name: "Greeter", Out: out}
	require.NoError(t, cmd.Run(app))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
}

func TestProjectFromSchemaDefaults(t *testing.T) {
	cfg := config.Defaults()
	cfg.Watson.URL = "https://api.example.com"
	cfg.Watson.APIKey = "key"
	app := testApp(cfg, io.Discard)

	project, err := app.projectFromSchema("", "", writeSchema(t))
	require.NoError(t, err)
	assert.Equal(t, "greeter", project.ID)
	assert.Equal(t, "greeter", project.Name)
	assert.Equal(t, "https://api.example.com", project.ServiceProvider.Credentials.URL)
	assert.Len(t, project.CustomEntities, 1)
	assert.Len(t, project.Intents, 1)
}

func TestPublishCommandCreatesWorkspace(t *testing.T) {
	var created map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/identity/token":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok",
				"token_type":   "Bearer",
				"expires_in":   3600,
				"expiration":   time.Now().Add(time.Hour).Unix(),
			})
		case "/v1/workspaces":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			_, _ = io.WriteString(w, `{"workspace_id":"ws-1","name":"Greeter"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := config.Defaults()
	cfg.Watson.URL = srv.URL
	cfg.Watson.APIKey = "key"
	cfg.Watson.IAMURL = srv.URL

	var out bytes.Buffer
	cmd := &PublishCmd{Schema: writeSchema(t), Name: "Greeter", Language: "en"}
	require.NoError(t, cmd.Run(testApp(cfg, &out)))

	var result map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "ws-1", result["workspaceId"])
	assert.Equal(t, "succeeded", result["status"])
	assert.Equal(t, "create", result["operation"])
	assert.Equal(t, "Greeter", created["name"])
}

func TestPublishCommandReportsRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := config.Defaults()
	cfg.Watson.URL = srv.URL
	cfg.Watson.APIKey = "key"
	cfg.Watson.IAMURL = srv.URL + "/identity/token"

	var out bytes.Buffer
	cmd := &PublishCmd{Schema: writeSchema(t), Name: "Greeter"}
	err := cmd.Run(testApp(cfg, &out))
	require.Error(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "failed", result["status"])
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	app := testApp(config.Defaults(), io.Discard)
	_, err := app.openPostgres()
	require.Error(t, err)
	assert.True(t, assistant.HasCode(err, assistant.CodeValidationFailed))

	_, _, err = app.projectStore(nil)
	assert.NoError(t, err, "memory store without dsn")
}
