package watson

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/IBM/go-sdk-core/v5/core"
	"github.com/goliatone/go-errors"
	"github.com/watson-developer-cloud/go-sdk/v3/assistantv1"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/model"
)

const (
	DefaultVersion = "2020-04-01"
	DefaultIAMURL  = "https://iam.cloud.ibm.com"

	CodeRemote = "WATSON_REQUEST_FAILED"

	iamTokenPath = "/identity/token"
)

var ErrRemote = errors.New("watson request failed", errors.CategoryExternal).
	WithTextCode(CodeRemote)

// Client calls the Watson Assistant v1 workspace API through the IBM SDK.
// Documents cross the SDK boundary as JSON so the workspace types in this
// package stay the single source of truth.
type Client struct {
	service *assistantv1.AssistantV1
	logger  assistant.Logger
}

type clientConfig struct {
	version string
	iamURL  string
	timeout time.Duration
	auth    core.Authenticator
	logger  assistant.Logger
}

type Option func(*clientConfig)

// WithVersion sets the API version date sent with every call.
func WithVersion(version string) Option {
	return func(c *clientConfig) {
		if strings.TrimSpace(version) != "" {
			c.version = version
		}
	}
}

// WithIAMURL overrides the IAM endpoint. The token path is optional.
func WithIAMURL(u string) Option {
	return func(c *clientConfig) {
		c.iamURL = u
	}
}

// WithTimeout bounds every HTTP exchange, token requests included.
func WithTimeout(t time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = t
	}
}

// WithAuthenticator replaces IAM api key authentication.
func WithAuthenticator(a core.Authenticator) Option {
	return func(c *clientConfig) {
		c.auth = a
	}
}

func WithLogger(l assistant.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// NewClient builds a client for the service instance at creds.URL,
// authenticating with creds.APIKey through IAM.
func NewClient(creds model.Credentials, opts ...Option) (*Client, error) {
	cfg := clientConfig{
		version: DefaultVersion,
		iamURL:  DefaultIAMURL,
		timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	serviceURL := strings.TrimRight(strings.TrimSpace(creds.URL), "/")
	if serviceURL == "" {
		return nil, errors.New("watson service url required", errors.CategoryBadInput).
			WithTextCode("WATSON_URL_REQUIRED")
	}

	httpClient := &http.Client{Timeout: cfg.timeout}

	auth := cfg.auth
	if auth == nil {
		if strings.TrimSpace(creds.APIKey) == "" {
			return nil, errors.New("watson api key required", errors.CategoryBadInput).
				WithTextCode("WATSON_APIKEY_REQUIRED")
		}
		iamURL := strings.TrimSuffix(strings.TrimRight(cfg.iamURL, "/"), iamTokenPath)
		if iamURL == "" {
			iamURL = DefaultIAMURL
		}
		auth = &core.IamAuthenticator{
			ApiKey: creds.APIKey,
			URL:    iamURL,
			Client: httpClient,
		}
	}
	if err := auth.Validate(); err != nil {
		return nil, assistant.CloneError(assistant.ErrValidation, "watson authenticator", err, nil)
	}

	service, err := assistantv1.NewAssistantV1(&assistantv1.AssistantV1Options{
		URL:           serviceURL,
		Version:       core.StringPtr(cfg.version),
		Authenticator: auth,
	})
	if err != nil {
		return nil, fmt.Errorf("watson: %w", err)
	}
	service.Service.SetHTTPClient(httpClient)

	return &Client{
		service: service,
		logger:  assistant.NormalizeLogger(cfg.logger),
	}, nil
}

// CreateWorkspace creates a workspace from the full document.
func (c *Client) CreateWorkspace(ctx context.Context, ws *Workspace) (*Workspace, error) {
	body, err := newSections(ws)
	if err != nil {
		return nil, err
	}
	opts := &assistantv1.CreateWorkspaceOptions{
		Name:           core.StringPtr(ws.Name),
		Description:    core.StringPtr(ws.Description),
		Language:       core.StringPtr(ws.Language),
		Metadata:       ws.Metadata,
		Intents:        body.intents,
		Entities:       body.entities,
		DialogNodes:    body.nodes,
		Webhooks:       body.webhooks,
		SystemSettings: body.settings,
	}

	c.logger.Debug("watson create workspace %q", ws.Name)
	out, res, err := c.service.CreateWorkspaceWithContext(ctx, opts)
	if err != nil {
		return nil, remoteError("create workspace", res, err)
	}
	return fromSDK(out)
}

// UpdateWorkspace replaces the mutable sections of workspace id.
func (c *Client) UpdateWorkspace(ctx context.Context, id string, update *WorkspaceUpdate) (*Workspace, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("workspace id required", errors.CategoryBadInput).
			WithTextCode("WORKSPACE_ID_REQUIRED")
	}
	body, err := newSections(update)
	if err != nil {
		return nil, err
	}
	opts := &assistantv1.UpdateWorkspaceOptions{
		WorkspaceID:    core.StringPtr(id),
		Intents:        body.intents,
		Entities:       body.entities,
		DialogNodes:    body.nodes,
		Webhooks:       body.webhooks,
		SystemSettings: body.settings,
		Append:         core.BoolPtr(false),
	}

	c.logger.Debug("watson update workspace %s", id)
	out, res, err := c.service.UpdateWorkspaceWithContext(ctx, opts)
	if err != nil {
		return nil, remoteError("update workspace "+id, res, err)
	}
	return fromSDK(out)
}

// ListWorkspaces returns every workspace of the instance, following cursors.
func (c *Client) ListWorkspaces(ctx context.Context, includeAudit bool) ([]Workspace, error) {
	var all []Workspace
	cursor := ""
	for {
		opts := &assistantv1.ListWorkspacesOptions{IncludeAudit: core.BoolPtr(includeAudit)}
		if cursor != "" {
			opts.Cursor = core.StringPtr(cursor)
		}

		c.logger.Debug("watson list workspaces cursor=%q", cursor)
		page, res, err := c.service.ListWorkspacesWithContext(ctx, opts)
		if err != nil {
			return nil, remoteError("list workspaces", res, err)
		}
		for i := range page.Workspaces {
			ws, err := fromSDK(&page.Workspaces[i])
			if err != nil {
				return nil, err
			}
			all = append(all, *ws)
		}

		next := ""
		if page.Pagination != nil && page.Pagination.NextCursor != nil {
			next = *page.Pagination.NextCursor
		}
		if next == "" || next == cursor {
			return all, nil
		}
		cursor = next
	}
}

// GetWorkspace fetches workspace id; export includes intents, entities and dialog nodes.
func (c *Client) GetWorkspace(ctx context.Context, id string, export bool) (*Workspace, error) {
	c.logger.Debug("watson get workspace %s export=%t", id, export)
	out, res, err := c.service.GetWorkspaceWithContext(ctx, &assistantv1.GetWorkspaceOptions{
		WorkspaceID: core.StringPtr(id),
		Export:      core.BoolPtr(export),
	})
	if err != nil {
		return nil, remoteError("get workspace "+id, res, err)
	}
	return fromSDK(out)
}

// sections holds the workspace parts in their SDK form.
type sections struct {
	intents  []assistantv1.CreateIntent
	entities []assistantv1.CreateEntity
	nodes    []assistantv1.DialogNode
	webhooks []assistantv1.Webhook
	settings *assistantv1.WorkspaceSystemSettings
}

// newSections converts doc through its JSON form. Sections always come back
// non-nil so an update replaces them even when empty.
func newSections(doc any) (*sections, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("watson: encode workspace: %w", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("watson: encode workspace: %w", err)
	}

	s := &sections{}
	steps := []struct {
		name string
		fn   func() error
	}{
		{"intents", func() error { return core.UnmarshalModel(m, "intents", &s.intents, assistantv1.UnmarshalCreateIntent) }},
		{"entities", func() error { return core.UnmarshalModel(m, "entities", &s.entities, assistantv1.UnmarshalCreateEntity) }},
		{"dialog_nodes", func() error { return core.UnmarshalModel(m, "dialog_nodes", &s.nodes, assistantv1.UnmarshalDialogNode) }},
		{"webhooks", func() error { return core.UnmarshalModel(m, "webhooks", &s.webhooks, assistantv1.UnmarshalWebhook) }},
		{"system_settings", func() error {
			return core.UnmarshalModel(m, "system_settings", &s.settings, assistantv1.UnmarshalWorkspaceSystemSettings)
		}},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return nil, fmt.Errorf("watson: convert %s: %w", step.name, err)
		}
	}

	if s.intents == nil {
		s.intents = []assistantv1.CreateIntent{}
	}
	if s.entities == nil {
		s.entities = []assistantv1.CreateEntity{}
	}
	if s.nodes == nil {
		s.nodes = []assistantv1.DialogNode{}
	}
	if s.webhooks == nil {
		s.webhooks = []assistantv1.Webhook{}
	}
	return s, nil
}

func fromSDK(in *assistantv1.Workspace) (*Workspace, error) {
	if in == nil {
		return &Workspace{}, nil
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("watson: decode workspace: %w", err)
	}
	var out Workspace
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("watson: decode workspace: %w", err)
	}
	return &out, nil
}

func remoteError(op string, res *core.DetailedResponse, err error) error {
	meta := map[string]any{"operation": op}
	msg := fmt.Sprintf("watson %s failed", op)
	if res != nil && res.StatusCode != 0 {
		meta["status"] = res.StatusCode
		msg = fmt.Sprintf("watson %s returned %d", op, res.StatusCode)
	}
	return assistant.CloneError(ErrRemote, msg, err, meta)
}
