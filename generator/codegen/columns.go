package codegen

import (
	"fmt"
	"strings"

	"github.com/quarrydb/quarry/schema"
)

func columnsBody(s *schema.Schema) string {
	var b strings.Builder
	for _, m := range s.Models {
		setType := lowerFirst(m.Name) + "Columns"

		b.WriteString("\n")
		fmt.Fprintf(&b, "// %sColumns provides typed handles for the columns of %s.\n", m.Name, m.Table)
		fmt.Fprintf(&b, "var %sColumns = %s{\n", m.Name, setType)
		for _, f := range m.Fields {
			ctor := columnCtor(f.Type)
			fmt.Fprintf(&b, "\t%s: %s(%q, %q),\n", f.GoName, ctor, m.Table, f.Name)
		}
		b.WriteString("}\n\n")

		fmt.Fprintf(&b, "type %s struct {\n", setType)
		for _, f := range m.Fields {
			fmt.Fprintf(&b, "\t%s %s\n", f.GoName, columnHandle(f.Type))
		}
		b.WriteString("}\n")
	}
	return b.String()
}

func columnHandle(t schema.Type) string {
	switch t {
	case schema.TypeInt:
		return "columns.OrderedColumn[int32]"
	case schema.TypeBigInt:
		return "columns.OrderedColumn[int64]"
	case schema.TypeFloat:
		return "columns.OrderedColumn[float64]"
	case schema.TypeString:
		return "columns.StringColumn"
	case schema.TypeBool:
		return "columns.Column[bool]"
	case schema.TypeTime:
		return "columns.TimeColumn"
	default:
		return "columns.Column[[]byte]"
	}
}

func columnCtor(t schema.Type) string {
	switch t {
	case schema.TypeInt:
		return "columns.Int32"
	case schema.TypeBigInt:
		return "columns.Int64"
	case schema.TypeFloat:
		return "columns.Float64"
	case schema.TypeString:
		return "columns.String"
	case schema.TypeBool:
		return "columns.Bool"
	case schema.TypeTime:
		return "columns.Time"
	default:
		return "columns.Bytes"
	}
}
