// Package model defines the persisted record types and the field manifests
// that describe how each type maps onto storage.
package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrMissingField is returned when a record is built without a declared field.
	ErrMissingField = errors.New("missing field")
	// ErrUnknownField is returned when a field name is not part of the manifest.
	ErrUnknownField = errors.New("unknown field")
	// ErrTableCollision is returned when two record types claim the same table.
	ErrTableCollision = errors.New("table name collision")
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Kind describes how a field value is interpreted.
type Kind int

const (
	// KindText is free-form text.
	KindText Kind = iota
	// KindDate is a date string in the configured storage format.
	KindDate
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field is a single persisted attribute.
type Field struct {
	Name string
	Kind Kind
}

// Manifest declares the persisted fields of a record type and its table.
type Manifest struct {
	TypeName string
	Table    string
	Fields   []Field
	// OrderBy names the field that ranks records for most-recent lookups.
	// Identity breaks ties; an empty OrderBy ranks by identity alone.
	OrderBy string
}

// FieldNames returns the declared field names in declaration order.
func (m Manifest) FieldNames() []string {
	names := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Has reports whether name is a declared field.
func (m Manifest) Has(name string) bool {
	for _, f := range m.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Validate checks that the table and field names are usable SQL identifiers
// and that no field is declared twice.
func (m Manifest) Validate() error {
	if m.TypeName == "" {
		return fmt.Errorf("manifest type name is required")
	}
	if !identifierPattern.MatchString(m.Table) {
		return fmt.Errorf("manifest %s: invalid table name %q", m.TypeName, m.Table)
	}
	if len(m.Fields) == 0 {
		return fmt.Errorf("manifest %s: no fields declared", m.TypeName)
	}
	seen := make(map[string]struct{}, len(m.Fields))
	for _, f := range m.Fields {
		if !identifierPattern.MatchString(f.Name) {
			return fmt.Errorf("manifest %s: invalid field name %q", m.TypeName, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("manifest %s: duplicate field %q", m.TypeName, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	if m.OrderBy != "" && !m.Has(m.OrderBy) {
		return fmt.Errorf("manifest %s: order field %q is not declared", m.TypeName, m.OrderBy)
	}
	return nil
}

// TableName derives the conventional table name for a type: "tbl_", the
// lowercased type name, and a trailing "s" unless the name already ends in one.
func TableName(typeName string) string {
	name := strings.ToLower(typeName)
	if !strings.HasSuffix(name, "s") {
		name += "s"
	}
	return "tbl_" + name
}
