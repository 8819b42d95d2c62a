package model

import (
	"fmt"
	"strings"
)

// Paste field names.
const (
	FieldAuthor  = "author"
	FieldTitle   = "title"
	FieldContent = "content"
	FieldDate    = "date"
)

// PasteManifest describes the persisted shape of a Paste.
var PasteManifest = Manifest{
	TypeName: "Paste",
	Table:    TableName("Paste"),
	Fields: []Field{
		{Name: FieldAuthor, Kind: KindText},
		{Name: FieldTitle, Kind: KindText},
		{Name: FieldContent, Kind: KindText},
		{Name: FieldDate, Kind: KindDate},
	},
	OrderBy: FieldDate,
}

// Paste is a single post harvested from the listing.
type Paste struct {
	Author  string
	Title   string
	Content string
	Date    string

	id         int64
	hasID      bool
	normalized bool
}

// NewPaste builds a Paste from raw field values. Every manifest field must be
// present and no other keys are accepted.
func NewPaste(fields map[string]string) (*Paste, error) {
	p := &Paste{}
	for _, name := range PasteManifest.FieldNames() {
		v, ok := fields[name]
		if !ok {
			return nil, fmt.Errorf("paste %s: %w", name, ErrMissingField)
		}
		if err := p.SetField(name, v); err != nil {
			return nil, err
		}
	}
	if len(fields) != len(PasteManifest.Fields) {
		for name := range fields {
			if !PasteManifest.Has(name) {
				return nil, fmt.Errorf("paste %s: %w", name, ErrUnknownField)
			}
		}
	}
	return p, nil
}

// NewEmptyPaste returns a zero Paste, used when loading rows from storage.
func NewEmptyPaste() *Paste {
	return &Paste{}
}

// Manifest implements Record.
func (p *Paste) Manifest() Manifest {
	return PasteManifest
}

// ID implements Record.
func (p *Paste) ID() (int64, bool) {
	return p.id, p.hasID
}

// SetID implements Record.
func (p *Paste) SetID(id int64) {
	p.id = id
	p.hasID = true
}

// ClearID implements Record.
func (p *Paste) ClearID() {
	p.id = 0
	p.hasID = false
}

// Field implements Record.
func (p *Paste) Field(name string) (string, error) {
	switch name {
	case FieldAuthor:
		return p.Author, nil
	case FieldTitle:
		return p.Title, nil
	case FieldContent:
		return p.Content, nil
	case FieldDate:
		return p.Date, nil
	default:
		return "", fmt.Errorf("paste %s: %w", name, ErrUnknownField)
	}
}

// SetField implements Record.
func (p *Paste) SetField(name, value string) error {
	switch name {
	case FieldAuthor:
		p.Author = value
	case FieldTitle:
		p.Title = value
	case FieldContent:
		p.Content = value
	case FieldDate:
		p.Date = value
	default:
		return fmt.Errorf("paste %s: %w", name, ErrUnknownField)
	}
	return nil
}

// Normalized implements Record.
func (p *Paste) Normalized() bool {
	return p.normalized
}

// MarkNormalized implements Record.
func (p *Paste) MarkNormalized() {
	p.normalized = true
}

// Equal reports whether both pastes carry the same field values.
func (p *Paste) Equal(other *Paste) bool {
	if p == nil || other == nil {
		return p == nil && other == nil
	}
	return Equal(p, other)
}

// String renders the paste as "field: value" lines for logs.
func (p *Paste) String() string {
	var b strings.Builder
	if id, ok := p.ID(); ok {
		fmt.Fprintf(&b, "id: %d\n", id)
	}
	for _, name := range PasteManifest.FieldNames() {
		v, _ := p.Field(name)
		fmt.Fprintf(&b, "%s: %s\n", name, v)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
