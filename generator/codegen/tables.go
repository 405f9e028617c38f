package codegen

import (
	"fmt"
	"strings"

	"github.com/quarrydb/quarry/schema"
)

func tablesBody(s *schema.Schema) string {
	var b strings.Builder

	b.WriteString("\n// Table descriptors, registered once at package load.\nvar (\n")
	for _, m := range s.Models {
		fmt.Fprintf(&b, "\t%s *registry.Table\n", tableVar(m))
	}
	b.WriteString(")\n\n")

	b.WriteString("func init() {\n")
	for i, m := range s.Models {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "\t%s = registry.MustRegister[%s](registry.TableSpec{\n", tableVar(m), m.Name)
		fmt.Fprintf(&b, "\t\tName: %q,\n", m.Table)
		b.WriteString("\t\tColumns: []registry.Column{\n")
		for _, f := range m.Fields {
			fmt.Fprintf(&b, "\t\t\t{Name: %q, Type: %s%s},\n", f.Name, registryType(f.Type), nullableLit(f))
		}
		b.WriteString("\t\t},\n")
		fmt.Fprintf(&b, "\t\tPrimaryKey: %q,\n", m.ID.Name)
		if len(m.Relations) > 0 {
			b.WriteString("\t\tAssociations: []registry.Association{\n")
			for _, r := range m.Relations {
				fmt.Fprintf(&b, "\t\t\t{Name: %q, Kind: %s, Target: %q, ForeignKey: %q, References: %q, Field: %q},\n",
					r.Name, registryKind(r.Kind), r.Target.Table, r.ForeignKey, r.References, r.GoName)
			}
			b.WriteString("\t\t},\n")
		}
		b.WriteString("\t})\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func tableVar(m *schema.Model) string {
	return goTableName(m.Table) + "Table"
}

// goTableName camel-cases a snake_case table name.
func goTableName(table string) string {
	parts := strings.Split(table, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

func nullableLit(f *schema.Field) string {
	if f.Nullable {
		return ", Nullable: true"
	}
	return ""
}

func registryType(t schema.Type) string {
	switch t {
	case schema.TypeInt:
		return "registry.Int32"
	case schema.TypeBigInt:
		return "registry.Int64"
	case schema.TypeFloat:
		return "registry.Float64"
	case schema.TypeString:
		return "registry.String"
	case schema.TypeBool:
		return "registry.Bool"
	case schema.TypeTime:
		return "registry.Time"
	default:
		return "registry.Bytes"
	}
}

func registryKind(k schema.RelationKind) string {
	switch k {
	case schema.HasMany:
		return "registry.HasMany"
	case schema.HasOne:
		return "registry.HasOne"
	default:
		return "registry.BelongsTo"
	}
}
