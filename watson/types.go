// Package watson models the Watson Assistant v1 workspace document and
// talks to its workspace-management API.
package watson

import "time"

type NodeType string

const (
	NodeTypeStandard          NodeType = "standard"
	NodeTypeFrame             NodeType = "frame"
	NodeTypeSlot              NodeType = "slot"
	NodeTypeEventHandler      NodeType = "event_handler"
	NodeTypeResponseCondition NodeType = "response_condition"
)

type EventName string

const (
	EventInput   EventName = "input"
	EventFocus   EventName = "focus"
	EventFilled  EventName = "filled"
	EventNoMatch EventName = "nomatch"
)

type SelectionPolicy string

const (
	SelectionSequential SelectionPolicy = "sequential"
	SelectionRandom     SelectionPolicy = "random"
)

const (
	ValueTypeSynonyms = "synonyms"
	ValueTypePatterns = "patterns"
)

// Workspace is the full document sent on creation and returned by reads.
type Workspace struct {
	WorkspaceID    string          `json:"workspace_id,omitempty"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Language       string          `json:"language"`
	SystemSettings *SystemSettings `json:"system_settings,omitempty"`
	Intents        []Intent        `json:"intents"`
	Entities       []Entity        `json:"entities"`
	DialogNodes    []DialogNode    `json:"dialog_nodes"`
	Webhooks       []Webhook       `json:"webhooks,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	Status         string          `json:"status,omitempty"`
	Created        *time.Time      `json:"created,omitempty"`
	Updated        *time.Time      `json:"updated,omitempty"`
}

// WorkspaceUpdate carries the mutable sections of an existing workspace.
type WorkspaceUpdate struct {
	SystemSettings *SystemSettings `json:"system_settings,omitempty"`
	Intents        []Intent        `json:"intents"`
	Entities       []Entity        `json:"entities"`
	DialogNodes    []DialogNode    `json:"dialog_nodes"`
	Webhooks       []Webhook       `json:"webhooks"`
}

type SystemSettings struct {
	SystemEntities *SystemEntitiesSettings `json:"system_entities,omitempty"`
}

type SystemEntitiesSettings struct {
	Enabled bool `json:"enabled"`
}

type Webhook struct {
	Name    string          `json:"name"`
	URL     string          `json:"url"`
	Headers []WebhookHeader `json:"headers,omitempty"`
}

type WebhookHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Entity struct {
	Entity      string         `json:"entity"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	FuzzyMatch  bool           `json:"fuzzy_match"`
	Values      []EntityValue  `json:"values,omitempty"`
}

type EntityValue struct {
	Value    string   `json:"value"`
	Type     string   `json:"type"`
	Synonyms []string `json:"synonyms,omitempty"`
	Patterns []string `json:"patterns,omitempty"`
}

type Intent struct {
	Intent      string    `json:"intent"`
	Description string    `json:"description,omitempty"`
	Examples    []Example `json:"examples"`
}

type Example struct {
	Text     string    `json:"text"`
	Mentions []Mention `json:"mentions,omitempty"`
}

// Mention annotates the half-open character range Location[0]..Location[1].
type Mention struct {
	Entity   string `json:"entity"`
	Location []int  `json:"location"`
}

// DialogNode is one node of the flat dialog list. The runtime rebuilds the
// tree from Parent and PreviousSibling.
type DialogNode struct {
	DialogNode      string             `json:"dialog_node"`
	Type            NodeType           `json:"type,omitempty"`
	Title           string             `json:"title,omitempty"`
	Conditions      string             `json:"conditions,omitempty"`
	Parent          string             `json:"parent,omitempty"`
	PreviousSibling string             `json:"previous_sibling,omitempty"`
	EventName       EventName          `json:"event_name,omitempty"`
	Variable        string             `json:"variable,omitempty"`
	Context         map[string]any     `json:"context,omitempty"`
	Output          *DialogNodeOutput  `json:"output,omitempty"`
	Actions         []DialogNodeAction `json:"actions,omitempty"`
	Metadata        map[string]any     `json:"metadata,omitempty"`
}

type DialogNodeOutput struct {
	Text    *TextValues     `json:"text,omitempty"`
	Generic []GenericOutput `json:"generic,omitempty"`
}

type TextValues struct {
	Values          []string        `json:"values"`
	SelectionPolicy SelectionPolicy `json:"selection_policy"`
}

type GenericOutput struct {
	ResponseType    string          `json:"response_type"`
	Values          []GenericValue  `json:"values"`
	SelectionPolicy SelectionPolicy `json:"selection_policy,omitempty"`
}

type GenericValue struct {
	Text string `json:"text"`
}

type DialogNodeAction struct {
	Name           string         `json:"name"`
	Type           string         `json:"type"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	ResultVariable string         `json:"result_variable"`
}

type Pagination struct {
	RefreshURL string `json:"refresh_url,omitempty"`
	NextURL    string `json:"next_url,omitempty"`
	Total      int    `json:"total,omitempty"`
	Matched    int    `json:"matched,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type WorkspaceCollection struct {
	Workspaces []Workspace `json:"workspaces"`
	Pagination Pagination  `json:"pagination"`
}
