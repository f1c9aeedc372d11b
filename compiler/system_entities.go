package compiler

import "github.com/goliatone/go-assistant/watson"

const systemEntityDescription = "filling for inline system entities"

const (
	numberPattern = `^[0-9]*$`
	datePattern   = `^\d{1,2}/\d{1,2}/\d{4}$`
)

var usStates = []string{
	"Alabama", "Alaska", "Arizona", "Arkansas", "California",
	"Colorado", "Connecticut", "Delaware", "District of Columbia", "Florida",
	"Georgia", "Hawaii", "Idaho", "Illinois", "Indiana",
	"Iowa", "Kansas", "Kentucky", "Louisiana", "Maine",
	"Maryland", "Massachusetts", "Michigan", "Minnesota", "Mississippi",
	"Missouri", "Montana", "Nebraska", "Nevada", "New Hampshire",
	"New Jersey", "New Mexico", "New York", "North Carolina", "North Dakota",
	"Ohio", "Oklahoma", "Oregon", "Pennsylvania", "Rhode Island",
	"South Carolina", "South Dakota", "Tennessee", "Texas", "Utah",
	"Vermont", "Virginia", "Washington", "West Virginia", "Wisconsin",
	"Wyoming",
}

// SystemEntities returns the fixed entity definitions backing the mapped
// system types: location, state, number and date. A fresh slice is built on
// every call.
func SystemEntities() []watson.Entity {
	states := make([]watson.EntityValue, 0, len(usStates))
	for _, state := range usStates {
		states = append(states, watson.EntityValue{
			Value:    state,
			Type:     watson.ValueTypeSynonyms,
			Synonyms: []string{state},
		})
	}

	return []watson.Entity{
		{
			Entity:      "location",
			Description: systemEntityDescription,
			FuzzyMatch:  false,
		},
		{
			Entity:      "state",
			Description: systemEntityDescription,
			FuzzyMatch:  true,
			Values:      states,
		},
		{
			Entity:      "number",
			Description: systemEntityDescription,
			FuzzyMatch:  false,
			Values: []watson.EntityValue{{
				Value:    "number",
				Type:     watson.ValueTypePatterns,
				Patterns: []string{numberPattern},
			}},
		},
		{
			Entity:      "date",
			Description: systemEntityDescription,
			FuzzyMatch:  false,
			Values: []watson.EntityValue{{
				Value:    "date",
				Type:     watson.ValueTypePatterns,
				Patterns: []string{datePattern},
			}},
		},
	}
}
