package codegen

import (
	"fmt"
	"strings"

	"github.com/quarrydb/quarry/schema"
)

func modelImports(s *schema.Schema) []string {
	imports := []string{modulePath + "/query/relation"}
	for _, m := range s.Models {
		for _, f := range m.Fields {
			if f.Type == schema.TypeTime {
				return append([]string{"time"}, imports...)
			}
		}
	}
	return imports
}

func modelsBody(s *schema.Schema) string {
	var b strings.Builder
	for _, m := range s.Models {
		b.WriteString("\n")
		if m.Docs != "" {
			writeDoc(&b, "", m.Docs)
		} else {
			fmt.Fprintf(&b, "// %s is a row of the %s table.\n", m.Name, m.Table)
		}
		fmt.Fprintf(&b, "type %s struct {\n", m.Name)
		for _, f := range m.Fields {
			writeDoc(&b, "\t", f.Docs)
			fmt.Fprintf(&b, "\t%s %s `db:%q json:%q`\n", f.GoName, goFieldType(f), f.Name, f.Name)
		}
		if len(m.Relations) > 0 {
			b.WriteString("\n")
		}
		for _, r := range m.Relations {
			writeDoc(&b, "\t", r.Docs)
			fmt.Fprintf(&b, "\t%s %s `db:\"-\" json:\"-\"`\n", r.GoName, cellType(r))
		}
		b.WriteString("}\n")
	}
	return b.String()
}

func goFieldType(f *schema.Field) string {
	t := f.Type.GoType()
	if f.Nullable {
		return "*" + t
	}
	return t
}

func cellType(r *schema.Relation) string {
	switch r.Kind {
	case schema.HasMany:
		return fmt.Sprintf("relation.HasMany[%s]", r.Target.Name)
	case schema.HasOne:
		return fmt.Sprintf("relation.HasOne[%s]", r.Target.Name)
	default:
		return fmt.Sprintf("relation.BelongsTo[%s]", r.Target.Name)
	}
}
