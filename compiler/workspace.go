package compiler

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-assistant/model"
	"github.com/goliatone/go-assistant/watson"
)

const DefaultLanguage = "en"

// Target describes the workspace a project compiles into.
type Target struct {
	Name        string
	Description string
	Language    string
}

// Workspace assembles the full workspace document for project: custom and
// system entities, intents, dialog nodes and the fulfillment webhook.
func (c *Compiler) Workspace(project *model.Project, target Target) (*watson.Workspace, error) {
	if project == nil {
		return nil, errors.New("project required", errors.CategoryBadInput).
			WithTextCode("PROJECT_REQUIRED")
	}

	language := strings.TrimSpace(target.Language)
	if language == "" {
		language = DefaultLanguage
	}

	intents, err := c.Intents(project.Intents)
	if err != nil {
		return nil, fmt.Errorf("compile intents for project %q: %w", project.ID, err)
	}
	nodes, err := c.DialogNodes(project.Intents)
	if err != nil {
		return nil, fmt.Errorf("compile dialog for project %q: %w", project.ID, err)
	}

	entities := append(c.Entities(project.CustomEntities), SystemEntities()...)

	c.logger.Debug("compiled project %s: %d entities, %d intents, %d dialog nodes",
		project.ID, len(entities), len(intents), len(nodes))

	return &watson.Workspace{
		Name:           target.Name,
		Description:    target.Description,
		Language:       language,
		SystemSettings: systemSettings(),
		Intents:        intents,
		Entities:       entities,
		DialogNodes:    nodes,
		Webhooks: []watson.Webhook{{
			Name: WebhookName,
			URL:  project.FulfillmentURL,
		}},
	}, nil
}

// Update extracts the sections replaced when republishing into an existing
// workspace.
func Update(ws *watson.Workspace) *watson.WorkspaceUpdate {
	if ws == nil {
		return nil
	}
	return &watson.WorkspaceUpdate{
		SystemSettings: systemSettings(),
		Intents:        ws.Intents,
		Entities:       ws.Entities,
		DialogNodes:    ws.DialogNodes,
		Webhooks:       ws.Webhooks,
	}
}

func systemSettings() *watson.SystemSettings {
	return &watson.SystemSettings{
		SystemEntities: &watson.SystemEntitiesSettings{Enabled: true},
	}
}
