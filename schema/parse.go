// Package schema normalizes a project's loosely typed source schema into the
// intermediate model consumed by the compilers.
package schema

import (
	"strings"

	"github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/model"
)

const (
	CodeSchemaMissing = "SCHEMA_MISSING"
	CodeSchemaInvalid = "SCHEMA_INVALID"
)

var (
	ErrSchemaMissing = errors.New("project schema is undefined", errors.CategoryBadInput).
				WithTextCode(CodeSchemaMissing)
	ErrSchemaInvalid = errors.New("project schema is invalid", errors.CategoryValidation).
				WithTextCode(CodeSchemaInvalid)
)

// Decode parses a JSON or YAML schema document.
func Decode(data []byte) (*Source, error) {
	if trimmedEmpty(data) {
		return nil, assistant.CloneError(ErrSchemaMissing, "", nil, nil)
	}

	root, err := documentRoot(data)
	if err != nil {
		return nil, assistant.CloneError(ErrSchemaInvalid, "", err, nil)
	}
	if isNull(root) {
		return nil, assistant.CloneError(ErrSchemaMissing, "", nil, nil)
	}

	var src Source
	if err := root.Decode(&src); err != nil {
		return nil, assistant.CloneError(ErrSchemaInvalid, "", err, nil)
	}
	return &src, nil
}

// documentRoot returns the top-level node of data. JSON documents go through
// encoding/json so its escapes and whitespace rules apply.
func documentRoot(data []byte) (*yaml.Node, error) {
	if isJSON(data) {
		return jsonNode(data)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	return doc.Content[0], nil
}

// ParseEntities decodes data and returns its custom entities. A schema
// without a custom_entities section yields nil and no error.
func ParseEntities(data []byte) ([]model.CustomEntity, error) {
	src, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return src.Entities()
}

// ParseIntents decodes data and returns its intents. A schema without an
// intents section yields nil and no error.
func ParseIntents(data []byte) ([]model.Intent, error) {
	src, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return src.Intents()
}

// Hydrate fills the project's entities and intents from its original schema
// and validates the result.
func Hydrate(p *model.Project) error {
	if p == nil {
		return assistant.CloneError(ErrSchemaMissing, "project required", nil, nil)
	}
	src, err := Decode(p.OriginalSchema)
	if err != nil {
		var ge *errors.Error
		if errors.As(err, &ge) {
			return ge.WithMetadata(map[string]any{"project_id": p.ID})
		}
		return err
	}

	entities, err := src.Entities()
	if err != nil {
		return err
	}
	intents, err := src.Intents()
	if err != nil {
		return err
	}
	p.CustomEntities = entities
	p.Intents = intents
	return p.Validate()
}

// Entities maps the raw entities into the model in document order. Index is
// carried as data and never reorders entities.
func (s *Source) Entities() ([]model.CustomEntity, error) {
	if s == nil {
		return nil, assistant.CloneError(ErrSchemaMissing, "", nil, nil)
	}
	if !s.hasEntities {
		return nil, nil
	}

	out := make([]model.CustomEntity, 0, len(s.CustomEntities))
	for _, raw := range s.CustomEntities {
		out = append(out, model.CustomEntity{
			ID:            raw.ID,
			Index:         raw.Index,
			EntityType:    strings.TrimSpace(raw.EntityType),
			Description:   raw.Description,
			Table:         raw.Table,
			Column:        raw.Column,
			Dictionary:    termList(raw.Dictionary),
			Patterns:      termList(raw.Patterns),
			Regexp:        boolOr(raw.Regexp, false),
			FuzzyMatching: boolOr(raw.FuzzyMatching, boolOr(raw.FuzzyMatchingSnake, false)),
		})
	}
	return out, nil
}

// Intents maps the raw intents into the model, keeping source order.
func (s *Source) Intents() ([]model.Intent, error) {
	if s == nil {
		return nil, assistant.CloneError(ErrSchemaMissing, "", nil, nil)
	}
	if !s.hasIntents {
		return nil, nil
	}

	out := make([]model.Intent, 0, len(s.RawIntents))
	for _, raw := range s.RawIntents {
		intent := model.Intent{
			ID:                 strings.TrimSpace(raw.ID),
			Description:        raw.Description,
			Utterances:         utterances(raw.Utterances),
			FollowupUtterances: utterances(raw.FollowupUtterances),
			ResponseTemplates:  copySlice(raw.ResponseTemplate),
			Parameters:         make([]model.IntentParameter, 0, len(raw.Parameters)),
		}
		for _, param := range raw.Parameters {
			intent.Parameters = append(intent.Parameters, model.IntentParameter{
				ID:           strings.TrimSpace(param.ID),
				Mandatory:    param.Mandatory,
				EntityType:   strings.TrimSpace(param.EntityType),
				FriendlyName: param.FriendlyName,
			})
		}
		out = append(out, intent)
	}
	return out, nil
}

func utterances(raw []RawUtterance) []model.Utterance {
	if raw == nil {
		return nil
	}
	out := make([]model.Utterance, 0, len(raw))
	for _, u := range raw {
		parts := make([]model.UtterancePart, 0, len(u.Parts))
		for _, part := range u.Parts {
			parts = append(parts, model.UtterancePart{
				Text:       part.Text,
				Alias:      optional(part.Alias),
				EntityType: optional(part.EntityType),
			})
		}
		out = append(out, model.Utterance{Parts: parts})
	}
	return out
}

func termList(o OrderedTerms) model.TermList {
	if !o.IsSet() {
		return nil
	}
	out := make(model.TermList, 0, len(o.Keys))
	for _, key := range o.Keys {
		out = append(out, model.Term{Value: key, Variants: copySlice(o.Values[key])})
	}
	return out
}

// optional treats empty strings like absent values.
func optional(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

func copySlice(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
