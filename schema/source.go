package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is the validated, typed form of a project's original schema.
// Sections keep the order they have in the document.
type Source struct {
	CustomEntities []RawEntity
	RawIntents     []RawIntent

	hasEntities bool
	hasIntents  bool
}

// HasCustomEntities reports whether the document declared a custom_entities section.
func (s *Source) HasCustomEntities() bool {
	return s != nil && s.hasEntities
}

// HasIntents reports whether the document declared an intents section.
func (s *Source) HasIntents() bool {
	return s != nil && s.hasIntents
}

type RawEntity struct {
	ID                 string       `yaml:"-"`
	Index              int          `yaml:"index"`
	EntityType         string       `yaml:"entity_type"`
	Description        string       `yaml:"description"`
	Table              string       `yaml:"table"`
	Column             string       `yaml:"column"`
	Dictionary         OrderedTerms `yaml:"dictionary"`
	Patterns           OrderedTerms `yaml:"patterns"`
	Regexp             *bool        `yaml:"regexp"`
	FuzzyMatching      *bool        `yaml:"fuzzyMatching"`
	FuzzyMatchingSnake *bool        `yaml:"fuzzy_matching"`
}

type RawIntent struct {
	ID                 string         `yaml:"id"`
	Description        string         `yaml:"description"`
	Utterances         []RawUtterance `yaml:"utterances"`
	FollowupUtterances []RawUtterance `yaml:"followup_utterances"`
	ResponseTemplate   Templates      `yaml:"response_template"`
	Parameters         []RawParameter `yaml:"parameters"`
}

type RawUtterance struct {
	Parts []RawPart `yaml:"parts"`
}

type RawPart struct {
	Text       string  `yaml:"text"`
	Alias      *string `yaml:"alias"`
	EntityType *string `yaml:"entity_type"`
}

type RawParameter struct {
	ID           string `yaml:"id"`
	Mandatory    bool   `yaml:"mandatory"`
	EntityType   string `yaml:"entity_type"`
	FriendlyName string `yaml:"friendly_name"`
}

// OrderedTerms decodes a mapping of value -> list of strings keeping key order.
// A scalar value is read as a one-element list.
type OrderedTerms struct {
	Keys   []string
	Values map[string][]string
	set    bool
}

// IsSet reports whether the mapping was present in the document.
func (o OrderedTerms) IsSet() bool {
	return o.set
}

func (o *OrderedTerms) UnmarshalYAML(node *yaml.Node) error {
	if isNull(node) {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected mapping, got %s", node.Line, kindName(node.Kind))
	}
	o.set = true
	o.Values = make(map[string][]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		values, err := decodeStrings(node.Content[i+1])
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := o.Values[key]; !exists {
			o.Keys = append(o.Keys, key)
		}
		o.Values[key] = values
	}
	return nil
}

// Templates accepts either a single template or a list of templates.
type Templates []string

func (t *Templates) UnmarshalYAML(node *yaml.Node) error {
	if isNull(node) {
		*t = nil
		return nil
	}
	values, err := decodeStrings(node)
	if err != nil {
		return err
	}
	*t = values
	return nil
}

func (s *Source) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: schema must be a mapping, got %s", node.Line, kindName(node.Kind))
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		switch key {
		case "custom_entities":
			if isNull(value) {
				continue
			}
			entities, err := decodeEntities(value)
			if err != nil {
				return fmt.Errorf("custom_entities: %w", err)
			}
			s.CustomEntities = entities
			s.hasEntities = true
		case "intents":
			if isNull(value) {
				continue
			}
			var intents []RawIntent
			if err := value.Decode(&intents); err != nil {
				return fmt.Errorf("intents: %w", err)
			}
			s.RawIntents = intents
			s.hasIntents = true
		}
	}
	return nil
}

func decodeEntities(node *yaml.Node) ([]RawEntity, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected mapping of id to entity, got %s", node.Line, kindName(node.Kind))
	}
	out := make([]RawEntity, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		id := node.Content[i].Value
		var raw RawEntity
		if err := node.Content[i+1].Decode(&raw); err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		raw.ID = id
		out = append(out, raw)
	}
	return out, nil
}

func decodeStrings(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if isNull(node) {
			return nil, nil
		}
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		var values []string
		if err := node.Decode(&values); err != nil {
			return nil, err
		}
		return values, nil
	default:
		return nil, fmt.Errorf("line %d: expected string or list, got %s", node.Line, kindName(node.Kind))
	}
}

func isNull(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.Tag == "!!null")
}

func kindName(kind yaml.Kind) string {
	switch kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}

func trimmedEmpty(data []byte) bool {
	return strings.TrimSpace(string(data)) == ""
}
