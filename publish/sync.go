package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/model"
	"github.com/goliatone/go-assistant/runner"
	"github.com/goliatone/go-assistant/watson"
)

// Snapshot is the exported state of every workspace of a provider account.
type Snapshot struct {
	Workspaces  []watson.Workspace `json:"workspaces"`
	LastUpdated time.Time          `json:"lastUpdated"`
}

// SyncRequest asks for a snapshot of provider's workspaces.
type SyncRequest struct {
	Provider model.ServiceProvider
}

func (SyncRequest) Type() string { return "publish::sync" }

func (r SyncRequest) Validate() error {
	if r.Provider.Credentials.URL == "" {
		return errors.NewValidation("invalid sync request", errors.FieldError{
			Field:   "provider.credentials.url",
			Message: "service url is required",
		}).WithTextCode(assistant.CodeValidationFailed)
	}
	return nil
}

// Syncer lists published workspaces and exports each of them. It never
// writes back into the project model.
type Syncer struct {
	assistant.MessageHandler[SyncRequest]

	clients ClientFactory
	logger  assistant.Logger
	timeout time.Duration
	now     func() time.Time
}

type SyncOption func(*Syncer)

func WithSyncClientFactory(f ClientFactory) SyncOption {
	return func(s *Syncer) {
		s.clients = f
	}
}

func WithSyncLogger(l assistant.Logger) SyncOption {
	return func(s *Syncer) {
		s.logger = l
	}
}

func WithSyncTimeout(t time.Duration) SyncOption {
	return func(s *Syncer) {
		s.timeout = t
	}
}

func NewSyncer(opts ...SyncOption) *Syncer {
	s := &Syncer{
		clients: WatsonClients(),
		timeout: DefaultTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = assistant.NormalizeLogger(s.logger)
	return s
}

// Sync lists the workspaces of provider with audit data, then fetches each
// one with export enabled, in listing order.
func (s *Syncer) Sync(ctx context.Context, provider model.ServiceProvider) (Snapshot, error) {
	return runner.RunQuery[SyncRequest, Snapshot](ctx, s.handler(provider), s, SyncRequest{Provider: provider})
}

// Query implements assistant.Querier.
func (s *Syncer) Query(ctx context.Context, req SyncRequest) (Snapshot, error) {
	if err := s.ValidateMessage(req); err != nil {
		return Snapshot{}, err
	}
	client, err := s.clients(req.Provider)
	if err != nil {
		return Snapshot{}, err
	}

	listed, err := client.ListWorkspaces(ctx, true)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list workspaces: %w", err)
	}

	snapshot := Snapshot{Workspaces: make([]watson.Workspace, 0, len(listed))}
	for _, ws := range listed {
		s.logger.Debug("fetching workspace %s", ws.WorkspaceID)
		full, err := client.GetWorkspace(ctx, ws.WorkspaceID, true)
		if err != nil {
			return Snapshot{}, fmt.Errorf("get workspace %s: %w", ws.WorkspaceID, err)
		}
		snapshot.Workspaces = append(snapshot.Workspaces, *full)
	}
	snapshot.LastUpdated = s.now()
	return snapshot, nil
}

func (s *Syncer) handler(provider model.ServiceProvider) *runner.Handler {
	opts := []runner.Option{
		runner.WithName("sync " + provider.ID),
		runner.WithLogger(s.logger),
	}
	if s.timeout > 0 {
		opts = append(opts, runner.WithTimeout(s.timeout))
	}
	return runner.NewHandler(opts...)
}
