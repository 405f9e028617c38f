package schema

import (
	"fmt"
	"strings"

	"github.com/quarrydb/quarry/schema/ast"
)

// Format parses source and renders it canonically: two-space indent,
// property values aligned on =, field types and attributes aligned in
// columns per blank-line group. Plain // comments are not preserved;
// /// doc comments are.
func Format(filename, source string) (string, error) {
	file, err := ParseString(filename, source)
	if err != nil {
		return "", err
	}
	return Render(file), nil
}

// Render writes a syntax tree in canonical form.
func Render(file *ast.File) string {
	var b strings.Builder
	for i, block := range file.Blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		switch {
		case block.Database != nil:
			renderConfig(&b, "database", block.Database.Properties)
		case block.Generate != nil:
			renderConfig(&b, "generate", block.Generate.Properties)
		case block.Model != nil:
			renderModel(&b, block.Model)
		}
	}
	return b.String()
}

func renderConfig(b *strings.Builder, keyword string, props []*ast.Property) {
	fmt.Fprintf(b, "%s {\n", keyword)
	width := 0
	for _, p := range props {
		if len(p.Name) > width {
			width = len(p.Name)
		}
	}
	for _, p := range props {
		fmt.Fprintf(b, "  %-*s = %s\n", width, p.Name, p.Value.String())
	}
	b.WriteString("}\n")
}

func renderModel(b *strings.Builder, m *ast.Model) {
	renderDocs(b, "", m.Docs)
	fmt.Fprintf(b, "model %s {\n", m.GetName())
	for i, group := range fieldGroups(m.Fields) {
		if i > 0 {
			b.WriteString("\n")
		}
		renderFieldGroup(b, group)
	}
	b.WriteString("}\n")
}

// fieldGroups splits fields on blank lines in the source so each group
// aligns independently.
func fieldGroups(fields []*ast.Field) [][]*ast.Field {
	var groups [][]*ast.Field
	prevLine := -1
	for _, f := range fields {
		if prevLine < 0 || f.Pos.Line > prevLine+1 {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], f)
		prevLine = f.Name.Pos.Line
	}
	return groups
}

func renderFieldGroup(b *strings.Builder, fields []*ast.Field) {
	nameW, typeW := 0, 0
	for _, f := range fields {
		if n := len(f.GetName()); n > nameW {
			nameW = n
		}
		if n := len(f.Type.String()); n > typeW {
			typeW = n
		}
	}
	for _, f := range fields {
		renderDocs(b, "  ", f.Docs)
		attrs := make([]string, len(f.Attributes))
		for i, a := range f.Attributes {
			attrs[i] = a.String()
		}
		if len(attrs) == 0 {
			fmt.Fprintf(b, "  %-*s %s\n", nameW, f.GetName(), f.Type.String())
			continue
		}
		fmt.Fprintf(b, "  %-*s %-*s %s\n", nameW, f.GetName(), typeW, f.Type.String(), strings.Join(attrs, " "))
	}
}

func renderDocs(b *strings.Builder, indent string, docs []string) {
	for _, d := range docs {
		text := strings.TrimSpace(strings.TrimPrefix(d, "///"))
		if text == "" {
			fmt.Fprintf(b, "%s///\n", indent)
			continue
		}
		fmt.Fprintf(b, "%s/// %s\n", indent, text)
	}
}
