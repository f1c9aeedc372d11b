package compiler

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/model"
	"github.com/goliatone/go-assistant/watson"
)

const (
	WebhookName    = "main"
	ResultVariable = "webhook_result"

	resultSlotPlaceholder = "result-slot-"
	resultSlotReference   = ResultVariable + ".result_slot_"

	failureText = "sorry unable to process your query."

	CodeDuplicateDialogNode = "DUPLICATE_DIALOG_NODE"
)

var ErrDuplicateDialogNode = errors.New("dialog node id emitted twice", errors.CategoryConflict).
	WithTextCode(CodeDuplicateDialogNode)

// graph accumulates emitted nodes and remembers the last node id per parent
// scope. The root scope is "".
type graph struct {
	nodes []watson.DialogNode
	last  map[string]string
	ids   map[string]struct{}
	dup   string
}

func newGraph() *graph {
	return &graph{
		last: make(map[string]string),
		ids:  make(map[string]struct{}),
	}
}

// emit links n after the last node sharing its parent and appends it. The
// first repeated node id is kept in dup.
func (g *graph) emit(n watson.DialogNode) watson.DialogNode {
	if _, ok := g.ids[n.DialogNode]; ok && g.dup == "" {
		g.dup = n.DialogNode
	}
	g.ids[n.DialogNode] = struct{}{}
	n.PreviousSibling = g.last[n.Parent]
	g.nodes = append(g.nodes, n)
	g.last[n.Parent] = n.DialogNode
	return n
}

// DialogNodes emits the flat dialog node list for intents. Each intent
// becomes a frame with one slot per parameter, event handlers per slot and
// success/failure response conditions. Frames follow their descendants.
func (c *Compiler) DialogNodes(intents []model.Intent) ([]watson.DialogNode, error) {
	g := newGraph()
	for _, intent := range intents {
		if err := c.intentDialog(g, intent); err != nil {
			return nil, fmt.Errorf("intent %q dialog: %w", intent.ID, err)
		}
		if g.dup != "" {
			return nil, assistant.CloneError(ErrDuplicateDialogNode,
				fmt.Sprintf("dialog node %q emitted twice, last by intent %q", g.dup, intent.ID),
				nil, map[string]any{"dialog_node": g.dup, "intent": intent.ID})
		}
	}
	if g.nodes == nil {
		return []watson.DialogNode{}, nil
	}
	return g.nodes, nil
}

func (c *Compiler) intentDialog(g *graph, intent model.Intent) error {
	frameID := intent.ID + "_frame"
	template := intent.ResponseTemplate()

	params := make(map[string]any, len(intent.Parameters)+2)
	for _, param := range intent.Parameters {
		variable := param.Variable()
		params[variable] = "$" + variable
	}
	params["intent"] = intent.ID
	params["fulfillmentText"] = template

	for _, param := range intent.Parameters {
		if err := c.slotDialog(g, frameID, intent.ID, param); err != nil {
			return fmt.Errorf("parameter %q: %w", param.ID, err)
		}
	}

	g.emit(watson.DialogNode{
		DialogNode: "response_success_" + intent.ID,
		Type:       watson.NodeTypeResponseCondition,
		Parent:     frameID,
		Conditions: "$" + ResultVariable,
		Output: genericText(
			strings.ReplaceAll(template, resultSlotPlaceholder, resultSlotReference),
		),
	})
	g.emit(watson.DialogNode{
		DialogNode: "response_failure_" + intent.ID,
		Type:       watson.NodeTypeResponseCondition,
		Parent:     frameID,
		Conditions: "anything_else",
		Output:     genericText(failureText),
	})

	g.emit(watson.DialogNode{
		DialogNode: frameID,
		Type:       watson.NodeTypeFrame,
		Title:      intent.ID + "_dialog",
		Conditions: "#" + intent.ID,
		Actions: []watson.DialogNodeAction{{
			Name:           WebhookName,
			Type:           "webhook",
			Parameters:     params,
			ResultVariable: ResultVariable,
		}},
		Metadata: map[string]any{
			"_customization": map[string]any{"mcr": true},
		},
	})
	return nil
}

// slotDialog emits the slot for param and its handlers. Optional parameters
// only get the input handler.
func (c *Compiler) slotDialog(g *graph, frameID, intentID string, param model.IntentParameter) error {
	mapped, err := c.mapper.Resolve(param.EntityType)
	if err != nil {
		return err
	}

	variable := param.Variable()
	suffix := param.SlotNode(intentID)

	slot := g.emit(watson.DialogNode{
		DialogNode: suffix,
		Type:       watson.NodeTypeSlot,
		Parent:     frameID,
		Variable:   variable,
	})

	g.emit(watson.DialogNode{
		DialogNode: "input_handler_" + suffix,
		Type:       watson.NodeTypeEventHandler,
		Parent:     slot.DialogNode,
		EventName:  watson.EventInput,
		Conditions: mapped,
		Context:    map[string]any{variable: mapped},
		Output:     &watson.DialogNodeOutput{},
	})

	if !param.Mandatory {
		return nil
	}

	// Focus prompts for the missing value. Its two phrasings rotate at random,
	// the other handlers answer with a fixed sequence.
	g.emit(watson.DialogNode{
		DialogNode: "focus_handler_" + suffix,
		Type:       watson.NodeTypeEventHandler,
		Parent:     slot.DialogNode,
		EventName:  watson.EventFocus,
		Output: text(watson.SelectionRandom,
			fmt.Sprintf("What is the %s?", param.FriendlyName),
			fmt.Sprintf("please provide the %s", param.FriendlyName),
		),
	})
	g.emit(watson.DialogNode{
		DialogNode: "filled_handler_" + suffix,
		Type:       watson.NodeTypeEventHandler,
		Parent:     slot.DialogNode,
		EventName:  watson.EventFilled,
		Conditions: mapped,
		Output:     text(watson.SelectionSequential, "thank you"),
	})
	g.emit(watson.DialogNode{
		DialogNode: "no_match_handler_" + suffix,
		Type:       watson.NodeTypeEventHandler,
		Parent:     slot.DialogNode,
		EventName:  watson.EventNoMatch,
		Output: text(watson.SelectionSequential,
			fmt.Sprintf("sorry, I cannot proceed without the %s", param.FriendlyName),
		),
	})
	return nil
}

func text(policy watson.SelectionPolicy, values ...string) *watson.DialogNodeOutput {
	return &watson.DialogNodeOutput{
		Text: &watson.TextValues{
			Values:          values,
			SelectionPolicy: policy,
		},
	}
}

func genericText(value string) *watson.DialogNodeOutput {
	return &watson.DialogNodeOutput{
		Generic: []watson.GenericOutput{{
			ResponseType:    "text",
			Values:          []watson.GenericValue{{Text: value}},
			SelectionPolicy: watson.SelectionSequential,
		}},
	}
}
