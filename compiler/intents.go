package compiler

import (
	"fmt"
	"unicode/utf8"

	"github.com/goliatone/go-assistant/model"
	"github.com/goliatone/go-assistant/watson"
)

// Intents emits one intent per model intent with one example per utterance.
func (c *Compiler) Intents(intents []model.Intent) ([]watson.Intent, error) {
	out := make([]watson.Intent, 0, len(intents))
	for _, intent := range intents {
		examples := make([]watson.Example, 0, len(intent.Utterances))
		for i, utterance := range intent.Utterances {
			example, err := c.example(utterance)
			if err != nil {
				return nil, fmt.Errorf("intent %q utterance %d: %w", intent.ID, i, err)
			}
			examples = append(examples, example)
		}
		out = append(out, watson.Intent{
			Intent:      intent.ID,
			Description: intent.Description,
			Examples:    examples,
		})
	}
	return out, nil
}

// example computes the sentence and its mentions. Offsets count runes and
// advance over every part.
func (c *Compiler) example(u model.Utterance) (watson.Example, error) {
	example := watson.Example{Text: u.Text()}
	offset := 0
	for _, part := range u.Parts {
		length := utf8.RuneCountInString(part.Text)
		if part.HasEntity() {
			name, err := c.mapper.MentionName(*part.EntityType)
			if err != nil {
				return watson.Example{}, err
			}
			example.Mentions = append(example.Mentions, watson.Mention{
				Entity:   name,
				Location: []int{offset, offset + length},
			})
		}
		offset += length
	}
	return example, nil
}
