package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/model"
)

const projectJSON = `{
	"custom_entities": {
		"e2": {
			"index": 2,
			"entity_type": "@custom.size",
			"table": "products",
			"column": "size",
			"patterns": {"xl": ["^x+l$"]},
			"regexp": true
		},
		"e1": {
			"index": 1,
			"entity_type": "@custom.color",
			"table": "products",
			"column": "color",
			"dictionary": {"red": ["crimson", "scarlet"], "blue": ["navy"]},
			"fuzzyMatching": true
		}
	},
	"intents": [
		{
			"id": "greet",
			"utterances": [
				{"parts": [{"text": "Hello "}, {"text": "world", "entity_type": "@sys.person", "alias": "name"}]}
			],
			"followup_utterances": [{"parts": [{"text": "again"}]}],
			"response_template": "Hi result-slot-name!",
			"parameters": [
				{"id": "slot-name", "mandatory": true, "entity_type": "@sys.person", "friendly_name": "name"}
			]
		}
	]
}`

func TestParseEntitiesMapsFieldsAndOrder(t *testing.T) {
	entities, err := ParseEntities([]byte(projectJSON))
	require.NoError(t, err)
	require.Len(t, entities, 2)

	color := entities[1]
	assert.Equal(t, "e1", color.ID)
	assert.Equal(t, 1, color.Index)
	assert.Equal(t, "@custom.color", color.EntityType)
	assert.Equal(t, "products", color.Table)
	assert.Equal(t, "color", color.Column)
	assert.True(t, color.FuzzyMatching)
	assert.False(t, color.Regexp)
	assert.Equal(t, []string{"red", "blue"}, color.Dictionary.Keys())
	synonyms, _ := color.Dictionary.Lookup("red")
	assert.Equal(t, []string{"crimson", "scarlet"}, synonyms)
	assert.Nil(t, color.Patterns)

	size := entities[0]
	assert.Equal(t, "e2", size.ID)
	assert.Equal(t, 2, size.Index, "index does not reorder entities")
	assert.True(t, size.Regexp)
	assert.False(t, size.FuzzyMatching)
	assert.Nil(t, size.Dictionary)
	patterns, ok := size.Patterns.Lookup("xl")
	assert.True(t, ok)
	assert.Equal(t, []string{"^x+l$"}, patterns)
}

func TestParseIntentsMapsFields(t *testing.T) {
	intents, err := ParseIntents([]byte(projectJSON))
	require.NoError(t, err)
	require.Len(t, intents, 1)

	greet := intents[0]
	assert.Equal(t, "greet", greet.ID)
	assert.Equal(t, []string{"Hi result-slot-name!"}, greet.ResponseTemplates)
	require.Len(t, greet.Utterances, 1)

	parts := greet.Utterances[0].Parts
	require.Len(t, parts, 2)
	assert.Nil(t, parts[0].Alias)
	assert.Nil(t, parts[0].EntityType)
	require.NotNil(t, parts[1].EntityType)
	assert.Equal(t, "@sys.person", *parts[1].EntityType)
	assert.Equal(t, "name", *parts[1].Alias)
	assert.Equal(t, "Hello world", greet.Utterances[0].Text())

	require.Len(t, greet.FollowupUtterances, 1)
	assert.Equal(t, "again", greet.FollowupUtterances[0].Text())

	require.Len(t, greet.Parameters, 1)
	assert.Equal(t, model.IntentParameter{
		ID:           "slot-name",
		Mandatory:    true,
		EntityType:   "@sys.person",
		FriendlyName: "name",
	}, greet.Parameters[0])
}

func TestParseYAMLSchema(t *testing.T) {
	doc := `
custom_entities:
  e1:
    entity_type: "@custom.color"
    dictionary:
      red: crimson
intents:
  - id: order
    response_template:
      - first
      - second
    utterances:
      - parts:
          - text: "I want "
          - text: red
            entity_type: "@custom.color"
            alias: ""
`
	entities, err := ParseEntities([]byte(doc))
	require.NoError(t, err)
	require.Len(t, entities, 1)
	synonyms, _ := entities[0].Dictionary.Lookup("red")
	assert.Equal(t, []string{"crimson"}, synonyms)

	intents, err := ParseIntents([]byte(doc))
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, "first", intents[0].ResponseTemplate())
	assert.Nil(t, intents[0].Utterances[0].Parts[1].Alias, "empty alias defaults to nil")
	assert.Empty(t, intents[0].Parameters)
}

func TestMissingSchemaIsAnError(t *testing.T) {
	for _, doc := range []string{"", "   ", "null", "~"} {
		_, err := ParseEntities([]byte(doc))
		require.Error(t, err, "doc %q", doc)
		assert.True(t, assistant.HasCode(err, CodeSchemaMissing), "doc %q", doc)

		_, err = ParseIntents([]byte(doc))
		assert.True(t, assistant.HasCode(err, CodeSchemaMissing), "doc %q", doc)
	}
}

func TestMissingEntitiesSectionIsNotAnError(t *testing.T) {
	doc := `{"intents": [{"id": "greet", "utterances": [], "parameters": []}]}`

	entities, err := ParseEntities([]byte(doc))
	require.NoError(t, err)
	assert.Nil(t, entities)

	src, err := Decode([]byte(doc))
	require.NoError(t, err)
	assert.False(t, src.HasCustomEntities())
	assert.True(t, src.HasIntents())

	intents, err := ParseIntents([]byte(doc))
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, "greet", intents[0].ID)
}

func TestMissingIntentsSection(t *testing.T) {
	intents, err := ParseIntents([]byte(`{"custom_entities": {}}`))
	require.NoError(t, err)
	assert.Nil(t, intents)

	entities, err := ParseEntities([]byte(`{"custom_entities": {}}`))
	require.NoError(t, err)
	assert.NotNil(t, entities)
	assert.Empty(t, entities)
}

func TestInvalidSchema(t *testing.T) {
	cases := []string{
		`[1, 2]`,
		`{"custom_entities": ["not", "a", "map"]}`,
		`{"custom_entities": {"e1": {"dictionary": ["bad"]}}}`,
		`{"intents": {"id": "x"}}`,
		`{unterminated`,
	}
	for _, doc := range cases {
		_, err := Decode([]byte(doc))
		require.Error(t, err, doc)
		assert.True(t, assistant.HasCode(err, CodeSchemaInvalid), doc)
	}
}

func TestDecodeKeepsRawSections(t *testing.T) {
	src, err := Decode([]byte(projectJSON))
	require.NoError(t, err)
	require.Len(t, src.RawIntents, 1)
	assert.Equal(t, "greet", src.RawIntents[0].ID)
	assert.True(t, src.HasIntents())

	intents, err := src.Intents()
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, src.RawIntents[0].ID, intents[0].ID)
}

func TestJSONSchemaEscapes(t *testing.T) {
	doc := []byte("{\n\t\"custom_entities\": {\n\t\t\"e1\": {\n\t\t\t\"index\": 1,\n" +
		"\t\t\t\"entity_type\": \"@custom.path\",\n" +
		"\t\t\t\"dictionary\": {\"a\\/b\": [\"\\ud83d\\ude00\", \"tab\\there\"]}\n" +
		"\t\t}\n\t}\n}")

	entities, err := ParseEntities(doc)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, []string{"a/b"}, entities[0].Dictionary.Keys())
	synonyms, ok := entities[0].Dictionary.Lookup("a/b")
	require.True(t, ok)
	assert.Equal(t, []string{"\U0001F600", "tab\there"}, synonyms)
}

func TestJSONSchemaKeepsKeyOrder(t *testing.T) {
	entities, err := ParseEntities([]byte(`{"custom_entities": {
		"z": {"index": 1, "entity_type": "@custom.z", "dictionary": {"b": [], "a": [], "c": "one"}},
		"a": {"index": 0, "entity_type": "@custom.a"}
	}}`))
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "z", entities[0].ID)
	assert.Equal(t, "a", entities[1].ID)
	assert.Equal(t, []string{"b", "a", "c"}, entities[0].Dictionary.Keys())
	one, _ := entities[0].Dictionary.Lookup("c")
	assert.Equal(t, []string{"one"}, one)
}

func TestJSONSchemaTrailingData(t *testing.T) {
	_, err := Decode([]byte(`{"intents": []} {"intents": []}`))
	require.Error(t, err)
	assert.True(t, assistant.HasCode(err, CodeSchemaInvalid))
}

func TestHydrate(t *testing.T) {
	p := &model.Project{ID: "p1", OriginalSchema: []byte(projectJSON)}
	require.NoError(t, Hydrate(p))
	assert.Len(t, p.CustomEntities, 2)
	assert.Len(t, p.Intents, 1)

	dup := &model.Project{ID: "p2", OriginalSchema: []byte(`{
		"custom_entities": {
			"a": {"entity_type": "@custom.x"},
			"b": {"entity_type": "@custom.x"}
		}
	}`)}
	err := Hydrate(dup)
	require.Error(t, err)
	assert.True(t, assistant.HasCode(err, assistant.CodeValidationFailed))

	empty := &model.Project{ID: "p3"}
	err = Hydrate(empty)
	assert.True(t, assistant.HasCode(err, CodeSchemaMissing))
}
