package registry

import (
	"fmt"
	"reflect"
)

// AssociationKind distinguishes the three association shapes.
type AssociationKind string

const (
	// HasMany: the foreign key lives on the target table and points back
	// at this table. Resolves to a slice of children.
	HasMany AssociationKind = "has_many"

	// HasOne: like HasMany but at most one child is expected.
	HasOne AssociationKind = "has_one"

	// BelongsTo: the foreign key lives on this table and points at the
	// target's referenced column.
	BelongsTo AssociationKind = "belongs_to"
)

// Association describes one edge between two registered tables.
//
// For HasMany and HasOne, ForeignKey names a column on the target table
// and References a column on this table (usually its primary key). For
// BelongsTo, ForeignKey names a column on this table and References a
// column on the target (usually the target's primary key).
type Association struct {
	Name       string
	Kind       AssociationKind
	Target     string
	ForeignKey string
	References string

	// Field is the Go struct field holding the relation cell.
	Field string

	fieldIndex []int
}

// FieldIndex returns the reflect index path of the relation cell field.
func (a Association) FieldIndex() []int { return a.fieldIndex }

// TargetTable resolves the association's target against the registry.
// Targets may be registered after their parents, so resolution happens
// at first use rather than at registration.
func (a Association) TargetTable() (*Table, error) {
	t, ok := Lookup(a.Target)
	if !ok {
		return nil, fmt.Errorf("association %q: target table %q is not registered", a.Name, a.Target)
	}
	return t, nil
}

func resolveAssociation(goType reflect.Type, a Association) (Association, error) {
	if a.Name == "" {
		return a, fmt.Errorf("empty name")
	}
	switch a.Kind {
	case HasMany, HasOne, BelongsTo:
	default:
		return a, fmt.Errorf("unknown kind %q", string(a.Kind))
	}
	if a.Target == "" {
		return a, fmt.Errorf("empty target table")
	}
	if a.ForeignKey == "" {
		return a, fmt.Errorf("empty foreign key")
	}
	if a.References == "" {
		return a, fmt.Errorf("empty references column")
	}
	if a.Field == "" {
		return a, fmt.Errorf("empty cell field")
	}
	f, ok := goType.FieldByName(a.Field)
	if !ok || !f.IsExported() {
		return a, fmt.Errorf("cell field %q not found on %s", a.Field, goType)
	}
	a.fieldIndex = f.Index
	return a, nil
}
