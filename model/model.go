// Package model holds the intermediate representation of a conversational
// project: custom entities, intents, utterances and parameters.
package model

import "strings"

// Term is one canonical value together with its ordered variants
// (synonyms for dictionaries, regular expressions for pattern maps).
type Term struct {
	Value    string   `json:"value" yaml:"value"`
	Variants []string `json:"variants" yaml:"variants"`
}

// TermList is an ordered mapping of canonical value to variants.
type TermList []Term

// Keys returns the canonical values in order.
func (l TermList) Keys() []string {
	if len(l) == 0 {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, t := range l {
		out = append(out, t.Value)
	}
	return out
}

// Lookup returns the variants registered for value.
func (l TermList) Lookup(value string) ([]string, bool) {
	for _, t := range l {
		if t.Value == value {
			return t.Variants, true
		}
	}
	return nil, false
}

type CustomEntity struct {
	ID            string   `json:"id"`
	Index         int      `json:"index"`
	EntityType    string   `json:"entityType"`
	Description   string   `json:"description,omitempty"`
	Table         string   `json:"table,omitempty"`
	Column        string   `json:"column,omitempty"`
	Dictionary    TermList `json:"dictionary,omitempty"`
	Patterns      TermList `json:"patterns,omitempty"`
	Regexp        bool     `json:"regexp"`
	FuzzyMatching bool     `json:"fuzzyMatching"`
}

// UtterancePart is a contiguous fragment of an example sentence. Only parts
// with a non-nil EntityType annotate the sentence.
type UtterancePart struct {
	Text       string  `json:"text"`
	Alias      *string `json:"alias"`
	EntityType *string `json:"entityType"`
}

// HasEntity reports whether the part carries an entity annotation.
func (p UtterancePart) HasEntity() bool {
	return p.EntityType != nil
}

type Utterance struct {
	Parts []UtterancePart `json:"parts"`
}

// Text concatenates the parts in order.
func (u Utterance) Text() string {
	var sb strings.Builder
	for _, p := range u.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

type IntentParameter struct {
	ID           string `json:"id"`
	Mandatory    bool   `json:"mandatory"`
	EntityType   string `json:"entityType"`
	FriendlyName string `json:"friendlyName"`
}

// Variable is the parameter id as a dialog variable name.
func (p IntentParameter) Variable() string {
	return strings.ReplaceAll(p.ID, "-", "_")
}

// SlotNode is the dialog node id of the parameter's slot inside intentID.
// Handler node ids are derived from it.
func (p IntentParameter) SlotNode(intentID string) string {
	return p.Variable() + "_" + intentID
}

type Intent struct {
	ID                 string            `json:"id"`
	Description        string            `json:"description,omitempty"`
	Utterances         []Utterance       `json:"utterances"`
	FollowupUtterances []Utterance       `json:"followupUtterances,omitempty"`
	ResponseTemplates  []string          `json:"responseTemplates"`
	Parameters         []IntentParameter `json:"parameters"`
}

// ResponseTemplate returns the first response template. Any further
// templates are ignored.
func (i Intent) ResponseTemplate() string {
	if len(i.ResponseTemplates) == 0 {
		return ""
	}
	return i.ResponseTemplates[0]
}

type Credentials struct {
	APIKey string `json:"apiKey"`
	URL    string `json:"url"`
}

// ServiceProvider is the external conversational platform account a
// project publishes to.
type ServiceProvider struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Credentials Credentials `json:"credentials"`
}

type Project struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	OriginalSchema  []byte          `json:"-"`
	CustomEntities  []CustomEntity  `json:"customEntities"`
	Intents         []Intent        `json:"intents"`
	ServiceProvider ServiceProvider `json:"serviceProvider"`
	FulfillmentURL  string          `json:"fulfillmentUrl"`
}

// StringPtr is a helper for optional utterance fields.
func StringPtr(s string) *string {
	return &s
}
