// Package entitytype translates project entity types into the identifiers
// understood by the target assistant runtime.
package entitytype

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"

	assistant "github.com/goliatone/go-assistant"
)

const (
	// SystemPrefix marks built-in entity types, e.g. "@sys.number".
	SystemPrefix = "@sys"
	// Marker prefixes every entity reference.
	Marker = "@"

	systemInfix = "sys-"

	CodeUnresolvedEntityType = "ENTITY_TYPE_UNRESOLVED"
)

var ErrUnresolvedEntityType = errors.New("unresolved system entity type", errors.CategoryBadInput).
	WithTextCode(CodeUnresolvedEntityType)

// Table maps system entity types to target identifiers.
type Table map[string]string

// DefaultTable returns a fresh copy of the built-in system entity mapping.
func DefaultTable() Table {
	return Table{
		"@sys.geo-city":  "@sys-location",
		"@sys.number":    "@sys-number",
		"@sys.person":    "@sys-person",
		"@sys.geo-state": "@state",
		"@sys.date-time": "@sys-date",
	}
}

// Mapper resolves entity types against a Table. The zero value has an empty
// table and rejects every system type.
type Mapper struct {
	table Table
}

// New builds a Mapper over a copy of table.
func New(table Table) Mapper {
	cp := make(Table, len(table))
	for k, v := range table {
		cp[k] = v
	}
	return Mapper{table: cp}
}

// Default returns a Mapper over DefaultTable.
func Default() Mapper {
	return Mapper{table: DefaultTable()}
}

// IsSystem reports whether entityType names a built-in entity.
func IsSystem(entityType string) bool {
	return strings.HasPrefix(entityType, SystemPrefix)
}

// Resolve maps system types through the table and returns custom types unchanged.
func (m Mapper) Resolve(entityType string) (string, error) {
	if !IsSystem(entityType) {
		return entityType, nil
	}
	if mapped, ok := m.table[entityType]; ok && mapped != "" {
		return mapped, nil
	}
	return "", assistant.CloneError(ErrUnresolvedEntityType, fmt.Sprintf("unresolved system entity type %q", entityType), nil, map[string]any{
		"entity_type": entityType,
	})
}

// MentionName resolves entityType and strips the marker and the "sys-" infix,
// giving the entity name used in example mentions.
func (m Mapper) MentionName(entityType string) (string, error) {
	mapped, err := m.Resolve(entityType)
	if err != nil {
		return "", err
	}
	return strings.Replace(EntityName(mapped), systemInfix, "", 1), nil
}

// EntityName strips the marker from entityType.
func EntityName(entityType string) string {
	return strings.Replace(entityType, Marker, "", 1)
}
