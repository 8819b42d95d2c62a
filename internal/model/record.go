package model

import "sync"

// Record is implemented by every persistable type.
type Record interface {
	Manifest() Manifest
	// ID returns the storage identity and whether one has been assigned.
	ID() (int64, bool)
	SetID(id int64)
	ClearID()
	Field(name string) (string, error)
	SetField(name, value string) error
	// Normalized reports whether the normalization pipeline already ran.
	Normalized() bool
	MarkNormalized()
}

// Equal compares the declared field values of two records. Identity and
// normalization state are ignored.
func Equal(a, b Record) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ma, mb := a.Manifest(), b.Manifest()
	if ma.Table != mb.Table {
		return false
	}
	for _, name := range ma.FieldNames() {
		va, err := a.Field(name)
		if err != nil {
			return false
		}
		vb, err := b.Field(name)
		if err != nil {
			return false
		}
		if va != vb {
			return false
		}
	}
	return true
}

// Registry tracks which record type owns each table name.
type Registry struct {
	mu      sync.Mutex
	byTable map[string]Manifest
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byTable: make(map[string]Manifest)}
}

// Register claims the manifest's table. Registering the same type twice is a
// no-op; a different type claiming a taken table fails with ErrTableCollision.
func (r *Registry) Register(m Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byTable[m.Table]; ok {
		if existing.TypeName == m.TypeName {
			return nil
		}
		return &CollisionError{Table: m.Table, Existing: existing.TypeName, Incoming: m.TypeName}
	}
	r.byTable[m.Table] = m
	return nil
}

// Manifests returns every registered manifest.
func (r *Registry) Manifests() []Manifest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Manifest, 0, len(r.byTable))
	for _, m := range r.byTable {
		out = append(out, m)
	}
	return out
}

// CollisionError describes two record types mapped onto one table.
type CollisionError struct {
	Table    string
	Existing string
	Incoming string
}

func (e *CollisionError) Error() string {
	return "table " + e.Table + " already used by " + e.Existing + ", cannot register " + e.Incoming
}

// Unwrap lets errors.Is match ErrTableCollision.
func (e *CollisionError) Unwrap() error {
	return ErrTableCollision
}
