package publish

import (
	"context"

	"github.com/goliatone/go-assistant/model"
	"github.com/goliatone/go-assistant/watson"
)

// WorkspaceClient is the workspace-management surface the publisher and
// syncer need. *watson.Client implements it.
type WorkspaceClient interface {
	CreateWorkspace(ctx context.Context, ws *watson.Workspace) (*watson.Workspace, error)
	UpdateWorkspace(ctx context.Context, id string, update *watson.WorkspaceUpdate) (*watson.Workspace, error)
	ListWorkspaces(ctx context.Context, includeAudit bool) ([]watson.Workspace, error)
	GetWorkspace(ctx context.Context, id string, export bool) (*watson.Workspace, error)
}

// ClientFactory builds a client for a service provider account.
type ClientFactory func(provider model.ServiceProvider) (WorkspaceClient, error)

// WatsonClients returns a factory creating watson clients with opts.
func WatsonClients(opts ...watson.Option) ClientFactory {
	return func(provider model.ServiceProvider) (WorkspaceClient, error) {
		client, err := watson.NewClient(provider.Credentials, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
