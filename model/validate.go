package model

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
)

// Validate checks the invariants the compilers rely on. Identifiers must be
// present, entity types unique, and every parameter must map to its own
// dialog slot across the project.
func (p *Project) Validate() error {
	if p == nil {
		return errors.New("project required", errors.CategoryBadInput).
			WithTextCode("PROJECT_REQUIRED")
	}

	var fields errors.ValidationErrors

	seen := make(map[string]string, len(p.CustomEntities))
	for idx, entity := range p.CustomEntities {
		field := fmt.Sprintf("custom_entities[%d]", idx)
		if strings.TrimSpace(entity.ID) == "" {
			fields = append(fields, errors.FieldError{Field: field + ".id", Message: "id is required"})
		}
		entityType := strings.TrimSpace(entity.EntityType)
		if entityType == "" {
			fields = append(fields, errors.FieldError{Field: field + ".entity_type", Message: "entity type is required"})
			continue
		}
		if prev, ok := seen[entityType]; ok {
			fields = append(fields, errors.FieldError{
				Field:   field + ".entity_type",
				Message: fmt.Sprintf("entity type already declared by %s", prev),
				Value:   entityType,
			})
			continue
		}
		seen[entityType] = entity.ID

		for _, value := range entity.Dictionary.Keys() {
			if _, ok := entity.Patterns.Lookup(value); ok {
				fields = append(fields, errors.FieldError{
					Field:   field + ".patterns",
					Message: "value already declared in dictionary",
					Value:   value,
				})
			}
		}
	}

	slots := make(map[string]string)
	intentIDs := make(map[string]struct{}, len(p.Intents))
	for idx, intent := range p.Intents {
		field := fmt.Sprintf("intents[%d]", idx)
		if strings.TrimSpace(intent.ID) == "" {
			fields = append(fields, errors.FieldError{Field: field + ".id", Message: "id is required"})
		} else if _, ok := intentIDs[intent.ID]; ok {
			fields = append(fields, errors.FieldError{Field: field + ".id", Message: "duplicate intent id", Value: intent.ID})
		} else {
			intentIDs[intent.ID] = struct{}{}
		}
		for pidx, param := range intent.Parameters {
			pfield := fmt.Sprintf("%s.parameters[%d]", field, pidx)
			if strings.TrimSpace(param.ID) == "" {
				fields = append(fields, errors.FieldError{Field: pfield + ".id", Message: "id is required"})
			} else if intent.ID != "" {
				slot := param.SlotNode(intent.ID)
				if prev, ok := slots[slot]; ok {
					fields = append(fields, errors.FieldError{
						Field:   pfield + ".id",
						Message: fmt.Sprintf("dialog slot %s already used by %s", slot, prev),
						Value:   param.ID,
					})
				} else {
					slots[slot] = pfield
				}
			}
			if strings.TrimSpace(param.EntityType) == "" {
				fields = append(fields, errors.FieldError{Field: pfield + ".entity_type", Message: "entity type is required"})
			}
		}
	}

	if len(fields) > 0 {
		return errors.NewValidation("invalid project", fields...).
			WithTextCode("VALIDATION_FAILED").
			WithMetadata(map[string]any{"project_id": p.ID})
	}
	return nil
}
