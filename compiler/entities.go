package compiler

import (
	"github.com/goliatone/go-assistant/entitytype"
	"github.com/goliatone/go-assistant/model"
	"github.com/goliatone/go-assistant/watson"
)

// Entities emits one entity definition per custom entity. Dictionary values
// come before pattern values and both keep source key order.
func (c *Compiler) Entities(entities []model.CustomEntity) []watson.Entity {
	out := make([]watson.Entity, 0, len(entities))
	for _, entity := range entities {
		values := make([]watson.EntityValue, 0, len(entity.Dictionary)+len(entity.Patterns))
		for _, term := range entity.Dictionary {
			values = append(values, watson.EntityValue{
				Value:    term.Value,
				Type:     watson.ValueTypeSynonyms,
				Synonyms: copyStrings(term.Variants),
			})
		}
		for _, term := range entity.Patterns {
			values = append(values, watson.EntityValue{
				Value:    term.Value,
				Type:     watson.ValueTypePatterns,
				Patterns: copyStrings(term.Variants),
			})
		}

		out = append(out, watson.Entity{
			Entity:      entitytype.EntityName(entity.EntityType),
			Description: entity.Description,
			Metadata:    map[string]any{"id": entity.ID},
			FuzzyMatch:  entity.FuzzyMatching,
			Values:      values,
		})
	}
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
