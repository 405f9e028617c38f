package codegen

import (
	"fmt"
	"strings"

	"github.com/quarrydb/quarry/schema"
)

func queryImports(s *schema.Schema) []string {
	imports := []string{
		modulePath + "/query/builder",
		modulePath + "/query/executor",
	}
	hasRelations, hasTime := false, false
	for _, m := range s.Models {
		if len(m.Relations) > 0 {
			hasRelations = true
		}
		for _, f := range m.Fields {
			if f.Type == schema.TypeTime {
				hasTime = true
			}
		}
	}
	if hasRelations {
		imports = append(imports, modulePath+"/query/plan")
	}
	if hasTime {
		imports = append([]string{"time"}, imports...)
	}
	return imports
}

func queriesBody(s *schema.Schema) string {
	var b strings.Builder
	for _, m := range s.Models {
		wrapper := m.Name + "Query"

		b.WriteString("\n")
		fmt.Fprintf(&b, "// %s starts a query over the %s table.\n", goTableName(m.Table), m.Table)
		fmt.Fprintf(&b, "func %s(s *executor.Session) %s {\n", goTableName(m.Table), wrapper)
		fmt.Fprintf(&b, "\treturn %s{Query: builder.New[%s](s, %s)}\n", wrapper, m.Name, tableVar(m))
		b.WriteString("}\n\n")

		fmt.Fprintf(&b, "// %s chains conditions over the %s table.\n", wrapper, m.Table)
		fmt.Fprintf(&b, "type %s struct {\n\tbuilder.Query[%s]\n}\n\n", wrapper, m.Name)

		fmt.Fprintf(&b, "func (q %s) wrap(inner builder.Query[%s]) %s {\n", wrapper, m.Name, wrapper)
		b.WriteString("\tq.Query = inner\n\treturn q\n}\n")

		for _, f := range m.Fields {
			b.WriteString("\n")
			fmt.Fprintf(&b, "// By%s narrows to rows where %s equals v.\n", f.GoName, f.Name)
			fmt.Fprintf(&b, "func (q %s) By%s(v %s) %s {\n", wrapper, f.GoName, f.Type.GoType(), wrapper)
			fmt.Fprintf(&b, "\treturn q.wrap(q.Where(%sColumns.%s.Eq(v)))\n", m.Name, f.GoName)
			b.WriteString("}\n")
		}

		for _, r := range m.Relations {
			b.WriteString("\n")
			fmt.Fprintf(&b, "// Preload%s loads the %s association alongside the query.\n", r.GoName, r.Name)
			fmt.Fprintf(&b, "func (q %s) Preload%s(opts ...builder.PreloadOption) %s {\n", wrapper, r.GoName, wrapper)
			fmt.Fprintf(&b, "\treturn q.wrap(q.Preload(%q, opts...))\n", r.Name)
			b.WriteString("}\n\n")

			fmt.Fprintf(&b, "// Join%s inner-joins the %s association for filtering.\n", r.GoName, r.Name)
			fmt.Fprintf(&b, "func (q %s) Join%s(on ...plan.Predicate) %s {\n", wrapper, r.GoName, wrapper)
			fmt.Fprintf(&b, "\treturn q.wrap(q.InnerJoin(%q, on...))\n", r.Name)
			b.WriteString("}\n")
		}
	}
	return b.String()
}
