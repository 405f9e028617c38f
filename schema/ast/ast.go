// Package ast holds the parse tree for quarry schema files. The struct
// tags are the participle grammar; positions come from the lexer and are
// used to attach diagnostics to source locations.
package ast

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// File is the parse tree of one schema file.
type File struct {
	Pos    lexer.Position
	Blocks []*Block `@@*`
}

// Database returns the first database block, or nil.
func (f *File) Database() *DatabaseBlock {
	for _, b := range f.Blocks {
		if b.Database != nil {
			return b.Database
		}
	}
	return nil
}

// Generate returns the first generate block, or nil.
func (f *File) Generate() *GenerateBlock {
	for _, b := range f.Blocks {
		if b.Generate != nil {
			return b.Generate
		}
	}
	return nil
}

// Models returns every model block in declaration order.
func (f *File) Models() []*Model {
	var models []*Model
	for _, b := range f.Blocks {
		if b.Model != nil {
			models = append(models, b.Model)
		}
	}
	return models
}

// Block is a union of the three top-level declarations.
type Block struct {
	Pos      lexer.Position
	Database *DatabaseBlock `  @@`
	Generate *GenerateBlock `| @@`
	Model    *Model         `| @@`
}

// DatabaseBlock carries connection settings.
type DatabaseBlock struct {
	Pos        lexer.Position
	Properties []*Property `"database" "{" @@* "}"`
}

// Property finds a property by name, or nil.
func (d *DatabaseBlock) Property(name string) *Property {
	return findProperty(d.Properties, name)
}

// GenerateBlock carries code generation settings.
type GenerateBlock struct {
	Pos        lexer.Position
	Properties []*Property `"generate" "{" @@* "}"`
}

// Property finds a property by name, or nil.
func (g *GenerateBlock) Property(name string) *Property {
	return findProperty(g.Properties, name)
}

func findProperty(props []*Property, name string) *Property {
	for _, p := range props {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Property is a key = value entry inside a config block.
type Property struct {
	Pos   lexer.Position
	Name  string `@Ident`
	Value *Value `"=" @@`
}

// Ident is an identifier that remembers where it was written.
type Ident struct {
	Pos  lexer.Position
	Name string `@Ident`
}

// Model is a model declaration.
type Model struct {
	Pos    lexer.Position
	Docs   []string `@DocComment*`
	Name   *Ident   `"model" @@`
	Fields []*Field `"{" @@* "}"`
}

// GetName returns the model name.
func (m *Model) GetName() string {
	if m.Name == nil {
		return ""
	}
	return m.Name.Name
}

// Field finds a field by name, or nil.
func (m *Model) Field(name string) *Field {
	for _, f := range m.Fields {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

// Documentation returns the doc comment text with markers stripped.
func (m *Model) Documentation() string {
	return joinDocs(m.Docs)
}

// Field is one line of a model: a column or a relation.
type Field struct {
	Pos        lexer.Position
	Docs       []string     `@DocComment*`
	Name       *Ident       `@@`
	Type       *TypeRef     `@@`
	Attributes []*Attribute `@@*`
}

// GetName returns the field name.
func (f *Field) GetName() string {
	if f.Name == nil {
		return ""
	}
	return f.Name.Name
}

// Attribute finds an attribute by name, or nil.
func (f *Field) Attribute(name string) *Attribute {
	for _, a := range f.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Documentation returns the doc comment text with markers stripped.
func (f *Field) Documentation() string {
	return joinDocs(f.Docs)
}

func joinDocs(docs []string) string {
	if len(docs) == 0 {
		return ""
	}
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = strings.TrimSpace(strings.TrimPrefix(d, "///"))
	}
	return strings.Join(parts, "\n")
}

// TypeRef names a field type with its arity suffix.
type TypeRef struct {
	Pos      lexer.Position
	Name     string `@Ident`
	List     bool   `( @("[" "]")`
	Optional bool   `| @"?" )?`
}

// String renders the type as written, e.g. "String?" or "Post[]".
func (t *TypeRef) String() string {
	switch {
	case t.List:
		return t.Name + "[]"
	case t.Optional:
		return t.Name + "?"
	default:
		return t.Name
	}
}

// Attribute is a field annotation such as @id or @relation(...).
type Attribute struct {
	Pos       lexer.Position
	Name      string      `"@" @Ident`
	Arguments []*Argument `("(" (@@ ("," @@)*)? ")")?`
}

// Argument finds a named argument, or nil.
func (a *Attribute) Argument(name string) *Argument {
	for _, arg := range a.Arguments {
		if arg.Name == name {
			return arg
		}
	}
	return nil
}

// String renders the attribute as written, e.g. `@relation(foreign_key: "author_id")`.
func (a *Attribute) String() string {
	if len(a.Arguments) == 0 {
		return "@" + a.Name
	}
	parts := make([]string, len(a.Arguments))
	for i, arg := range a.Arguments {
		parts[i] = arg.String()
	}
	return "@" + a.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Argument is a positional or named attribute argument.
type Argument struct {
	Pos   lexer.Position
	Name  string `(@Ident ":")?`
	Value *Value `@@`
}

// String renders the argument as written.
func (a *Argument) String() string {
	if a.Name != "" {
		return a.Name + ": " + a.Value.String()
	}
	return a.Value.String()
}

// Value is a literal, a constant, or a function call.
type Value struct {
	Pos    lexer.Position
	Str    *string `  @String`
	Number *string `| @Number`
	Call   *Call   `| @@`
	Ident  *string `| @Ident`
}

// String renders the value as written.
func (v *Value) String() string {
	switch {
	case v.Str != nil:
		return strconv.Quote(*v.Str)
	case v.Number != nil:
		return *v.Number
	case v.Call != nil:
		return v.Call.String()
	case v.Ident != nil:
		return *v.Ident
	default:
		return ""
	}
}

// AsString returns the unquoted string value, if the value is a string.
func (v *Value) AsString() (string, bool) {
	if v.Str == nil {
		return "", false
	}
	return *v.Str, true
}

// AsCall returns the function call, if the value is one.
func (v *Value) AsCall() (*Call, bool) {
	if v.Call == nil {
		return nil, false
	}
	return v.Call, true
}

// AsBool returns the boolean value, if the value is the constant true
// or false.
func (v *Value) AsBool() (bool, bool) {
	if v.Ident == nil {
		return false, false
	}
	switch *v.Ident {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// Call is a function call value such as env("DATABASE_URL") or now().
type Call struct {
	Pos  lexer.Position
	Name string   `@Ident`
	Args []*Value `"(" (@@ ("," @@)*)? ")"`
}

// String renders the call as written.
func (c *Call) String() string {
	parts := make([]string, len(c.Args))
	for i, arg := range c.Args {
		parts[i] = arg.String()
	}
	return c.Name + "(" + strings.Join(parts, ", ") + ")"
}
