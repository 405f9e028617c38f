// Package registry holds the column descriptors, primary keys, and
// association metadata for every table the query layer can touch.
// Registration happens once at process startup, normally from generated
// code; after that the registry is read-only.
package registry

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

// ColumnType is the declared database type of a column.
type ColumnType string

const (
	Int32   ColumnType = "int32"
	Int64   ColumnType = "int64"
	Float64 ColumnType = "float64"
	Bool    ColumnType = "bool"
	String  ColumnType = "string"
	Time    ColumnType = "time"
	Bytes   ColumnType = "bytes"
)

// Column describes one column of a registered table.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool

	fieldIndex []int
}

// FieldIndex returns the reflect index path of the struct field this
// column scans into. Resolved during registration.
func (c Column) FieldIndex() []int { return c.fieldIndex }

// Accepts reports whether v can serve as a comparison operand for this
// column. Numeric columns accept any value of the same numeric family;
// everything else wants the exact Go type. A nil operand is never
// accepted; null checks use IS NULL.
func (c Column) Accepts(v any) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	switch c.Type {
	case Int32, Int64:
		switch t.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return true
		}
		return false
	case Float64:
		switch t.Kind() {
		case reflect.Float32, reflect.Float64,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return true
		}
		return false
	case Bool:
		return t.Kind() == reflect.Bool
	case String:
		return t.Kind() == reflect.String
	case Time, Bytes:
		return t == goTypeFor(c.Type)
	}
	return false
}

// TableSpec is the registration input for one table.
type TableSpec struct {
	Name         string
	Columns      []Column
	PrimaryKey   string
	Associations []Association
}

// Table is a registered, resolved table descriptor.
type Table struct {
	name    string
	columns []Column
	pk      int
	assocs  []Association
	goType  reflect.Type
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Columns returns the descriptors in registration order. Projection lists
// always follow this order, so compiled SQL is stable per registration.
// The returned slice must not be modified.
func (t *Table) Columns() []Column { return t.columns }

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// PrimaryKey returns the primary key column.
func (t *Table) PrimaryKey() Column { return t.columns[t.pk] }

// Association looks up an association by name.
func (t *Table) Association(name string) (Association, bool) {
	for _, a := range t.assocs {
		if a.Name == name {
			return a, true
		}
	}
	return Association{}, false
}

// Associations returns the association descriptors in registration order.
func (t *Table) Associations() []Association { return t.assocs }

// GoType returns the entity struct type bound at registration.
func (t *Table) GoType() reflect.Type { return t.goType }

var (
	mu     sync.RWMutex
	tables = make(map[string]*Table)
)

// MustRegister validates spec against the entity type T, resolves every
// column and association to its struct field, and publishes the table.
// It panics on an invalid spec or a duplicate table name. Call it from
// package init in generated code.
func MustRegister[T any](spec TableSpec) *Table {
	t, err := resolve(reflect.TypeFor[T](), spec)
	if err != nil {
		panic(fmt.Sprintf("registry: register %q: %v", spec.Name, err))
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := tables[t.name]; dup {
		panic(fmt.Sprintf("registry: table %q registered twice", t.name))
	}
	tables[t.name] = t
	return t
}

// Lookup returns the table registered under name.
func Lookup(name string) (*Table, bool) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := tables[name]
	return t, ok
}

func resolve(goType reflect.Type, spec TableSpec) (*Table, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("empty table name")
	}
	if goType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity type %s is not a struct", goType)
	}
	if len(spec.Columns) == 0 {
		return nil, fmt.Errorf("no columns")
	}

	byTag := fieldsByColumn(goType)
	t := &Table{
		name:    spec.Name,
		columns: make([]Column, 0, len(spec.Columns)),
		pk:      -1,
		goType:  goType,
	}

	seen := make(map[string]bool, len(spec.Columns))
	for _, c := range spec.Columns {
		if c.Name == "" {
			return nil, fmt.Errorf("column with empty name")
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true

		f, ok := byTag[c.Name]
		if !ok {
			return nil, fmt.Errorf("column %q has no struct field on %s", c.Name, goType)
		}
		if err := checkFieldType(f.Type, c); err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		c.fieldIndex = f.Index
		t.columns = append(t.columns, c)
		if c.Name == spec.PrimaryKey {
			t.pk = len(t.columns) - 1
		}
	}
	if spec.PrimaryKey == "" {
		return nil, fmt.Errorf("no primary key")
	}
	if t.pk < 0 {
		return nil, fmt.Errorf("primary key %q is not a declared column", spec.PrimaryKey)
	}

	for _, a := range spec.Associations {
		resolved, err := resolveAssociation(goType, a)
		if err != nil {
			return nil, fmt.Errorf("association %q: %w", a.Name, err)
		}
		t.assocs = append(t.assocs, resolved)
	}
	return t, nil
}

// fieldsByColumn maps column names to struct fields. A `db` tag wins;
// fields without one fall back to the snake_case of the field name.
// Fields tagged db:"-" are invisible to the registry.
func fieldsByColumn(goType reflect.Type) map[string]reflect.StructField {
	out := make(map[string]reflect.StructField)
	for _, f := range reflect.VisibleFields(goType) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		tag := f.Tag.Get("db")
		if tag == "-" {
			continue
		}
		if tag != "" {
			tag = strings.Split(tag, ",")[0]
			out[tag] = f
			continue
		}
		out[toSnakeCase(f.Name)] = f
	}
	return out
}

func checkFieldType(ft reflect.Type, c Column) error {
	want := goTypeFor(c.Type)
	if want == nil {
		return fmt.Errorf("unknown column type %q", string(c.Type))
	}
	if c.Nullable {
		if ft.Kind() != reflect.Pointer || ft.Elem() != want {
			return fmt.Errorf("nullable %s column needs field type *%s, have %s", c.Type, want, ft)
		}
		return nil
	}
	if ft != want {
		return fmt.Errorf("%s column needs field type %s, have %s", c.Type, want, ft)
	}
	return nil
}

func goTypeFor(ct ColumnType) reflect.Type {
	switch ct {
	case Int32:
		return reflect.TypeFor[int32]()
	case Int64:
		return reflect.TypeFor[int64]()
	case Float64:
		return reflect.TypeFor[float64]()
	case Bool:
		return reflect.TypeFor[bool]()
	case String:
		return reflect.TypeFor[string]()
	case Time:
		return reflect.TypeFor[time.Time]()
	case Bytes:
		return reflect.TypeFor[[]byte]()
	}
	return nil
}

// toSnakeCase lowercases a Go field name, inserting underscores at word
// boundaries. Acronym runs stay together: AuthorID becomes author_id.
func toSnakeCase(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		if r < 'A' || r > 'Z' {
			b.WriteRune(r)
			continue
		}
		prevLower := i > 0 && rs[i-1] >= 'a' && rs[i-1] <= 'z'
		prevDigit := i > 0 && rs[i-1] >= '0' && rs[i-1] <= '9'
		nextLower := i+1 < len(rs) && rs[i+1] >= 'a' && rs[i+1] <= 'z'
		if prevLower || prevDigit || (i > 0 && nextLower) {
			b.WriteByte('_')
		}
		b.WriteRune(r + ('a' - 'A'))
	}
	return b.String()
}
