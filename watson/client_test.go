package watson

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/IBM/go-sdk-core/v5/core"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/model"
)

func iamServer(t *testing.T, tokenRequests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		assert.Equal(t, "/identity/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ibm:params:oauth:grant-type:apikey", r.PostForm.Get("grant_type"))
		if r.PostForm.Get("apikey") != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"errorMessage":"bad key"}`)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "tok-1",
			"refresh_token": "refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"expiration":    time.Now().Add(time.Hour).Unix(),
		})
	}))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func staticAuth() Option {
	return WithAuthenticator(&core.BearerTokenAuthenticator{BearerToken: "static"})
}

func TestClientCreateWorkspace(t *testing.T) {
	var tokens atomic.Int32
	iam := iamServer(t, &tokens)
	defer iam.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/workspaces", r.URL.Path)
		assert.Equal(t, DefaultVersion, r.URL.Query().Get("version"))
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var ws Workspace
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&ws))
		assert.Equal(t, "demo", ws.Name)

		ws.WorkspaceID = "ws-123"
		writeJSON(w, http.StatusCreated, ws)
	}))
	defer api.Close()

	client, err := NewClient(model.Credentials{APIKey: "secret", URL: api.URL + "/"}, WithIAMURL(iam.URL))
	require.NoError(t, err)

	ctx := context.Background()
	out, err := client.CreateWorkspace(ctx, &Workspace{Name: "demo", Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, "ws-123", out.WorkspaceID)

	_, err = client.CreateWorkspace(ctx, &Workspace{Name: "demo"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), tokens.Load(), "token should be reused")
}

func TestClientUpdateWorkspace(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/workspaces/ws-1", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("append"))

		var raw map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Contains(t, raw, "dialog_nodes")
		assert.Contains(t, raw, "webhooks")
		assert.NotContains(t, raw, "name")
		assert.Equal(t, []any{}, raw["intents"], "empty sections are sent so they replace")

		writeJSON(w, http.StatusOK, map[string]any{"workspace_id": "ws-1", "name": "demo"})
	}))
	defer api.Close()

	client, err := NewClient(model.Credentials{URL: api.URL}, staticAuth())
	require.NoError(t, err)

	out, err := client.UpdateWorkspace(context.Background(), "ws-1", &WorkspaceUpdate{
		Webhooks: []Webhook{{Name: "main", URL: "https://example.com"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ws-1", out.WorkspaceID)

	_, err = client.UpdateWorkspace(context.Background(), "", &WorkspaceUpdate{})
	assert.Error(t, err)
}

func TestClientListWorkspacesFollowsCursor(t *testing.T) {
	var calls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "true", r.URL.Query().Get("include_audit"))
		assert.Equal(t, "Bearer static", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cursor") == "" {
			_, _ = io.WriteString(w, `{"workspaces":[{"workspace_id":"a","name":"A","language":"en"}],"pagination":{"refresh_url":"/v1/workspaces","next_cursor":"c2"}}`)
			return
		}
		assert.Equal(t, "c2", r.URL.Query().Get("cursor"))
		_, _ = io.WriteString(w, `{"workspaces":[{"workspace_id":"b","name":"B","language":"en"}],"pagination":{"refresh_url":"/v1/workspaces"}}`)
	}))
	defer api.Close()

	client, err := NewClient(model.Credentials{URL: api.URL}, staticAuth())
	require.NoError(t, err)

	list, err := client.ListWorkspaces(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].WorkspaceID)
	assert.Equal(t, "b", list[1].WorkspaceID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientGetWorkspaceExport(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("export"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"workspace_id":"a","name":"A","intents":[{"intent":"greet","examples":[]}],"entities":[],"dialog_nodes":[]}`)
	}))
	defer api.Close()

	client, err := NewClient(model.Credentials{URL: api.URL}, staticAuth())
	require.NoError(t, err)

	ws, err := client.GetWorkspace(context.Background(), "a", true)
	require.NoError(t, err)
	require.Len(t, ws.Intents, 1)
	assert.Equal(t, "greet", ws.Intents[0].Intent)
}

func TestClientRemoteErrors(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Resource not found", "code": 404})
	}))
	defer api.Close()

	client, err := NewClient(model.Credentials{URL: api.URL}, staticAuth())
	require.NoError(t, err)

	_, err = client.GetWorkspace(context.Background(), "missing", false)
	require.Error(t, err)
	assert.True(t, assistant.HasCode(err, CodeRemote))
	assert.Contains(t, err.Error(), "404")
}

func TestClientIAMFailureIsRemoteError(t *testing.T) {
	var tokens atomic.Int32
	iam := iamServer(t, &tokens)
	defer iam.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("api must not be called without a token")
	}))
	defer api.Close()

	client, err := NewClient(model.Credentials{APIKey: "wrong", URL: api.URL}, WithIAMURL(iam.URL+"/identity/token"), WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = client.ListWorkspaces(context.Background(), false)
	require.Error(t, err)
	assert.True(t, assistant.HasCode(err, CodeRemote))
	assert.Equal(t, int32(1), tokens.Load())
}

func TestClientStalledIAMIsBounded(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	iam := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer iam.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("api must not be called without a token")
	}))
	defer api.Close()

	client, err := NewClient(model.Credentials{APIKey: "secret", URL: api.URL},
		WithIAMURL(iam.URL), WithTimeout(100*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = client.GetWorkspace(context.Background(), "a", false)
	require.Error(t, err)
	assert.True(t, assistant.HasCode(err, CodeRemote))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(model.Credentials{APIKey: "k"})
	assert.Error(t, err)

	_, err = NewClient(model.Credentials{URL: "https://example.com"})
	assert.Error(t, err)
}
