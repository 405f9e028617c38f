package schema

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/quarrydb/quarry/schema/ast"
	"github.com/quarrydb/quarry/schema/diagnostics"
)

// Type is a scalar column type.
type Type int

const (
	TypeInt Type = iota
	TypeBigInt
	TypeFloat
	TypeString
	TypeBool
	TypeTime
	TypeBytes
)

var scalarTypes = map[string]Type{
	"Int":    TypeInt,
	"BigInt": TypeBigInt,
	"Float":  TypeFloat,
	"String": TypeString,
	"Bool":   TypeBool,
	"Time":   TypeTime,
	"Bytes":  TypeBytes,
}

var typeNames = map[Type]string{
	TypeInt:    "Int",
	TypeBigInt: "BigInt",
	TypeFloat:  "Float",
	TypeString: "String",
	TypeBool:   "Bool",
	TypeTime:   "Time",
	TypeBytes:  "Bytes",
}

// String returns the schema-language name of the type.
func (t Type) String() string { return typeNames[t] }

// GoType returns the Go type a non-nullable column of this type maps to.
func (t Type) GoType() string {
	switch t {
	case TypeInt:
		return "int32"
	case TypeBigInt:
		return "int64"
	case TypeFloat:
		return "float64"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeTime:
		return "time.Time"
	case TypeBytes:
		return "[]byte"
	default:
		return ""
	}
}

// keyable reports whether the type can serve as a primary key or
// relation key. Keys are grouped in maps during preloading, which rules
// out Bytes, and Float and Bool make poor identities.
func (t Type) keyable() bool {
	switch t {
	case TypeInt, TypeBigInt, TypeString:
		return true
	default:
		return false
	}
}

// RelationKind says which side of a relation owns the foreign key.
type RelationKind int

const (
	// HasMany is a list of children keyed by a column on the target.
	HasMany RelationKind = iota
	// HasOne is a single child keyed by a column on the target.
	HasOne
	// BelongsTo is a single parent keyed by a column on this model.
	BelongsTo
)

// String returns the snake_case kind name.
func (k RelationKind) String() string {
	switch k {
	case HasMany:
		return "has_many"
	case HasOne:
		return "has_one"
	default:
		return "belongs_to"
	}
}

// Schema is a resolved, validated schema file.
type Schema struct {
	Database Database
	Generate Generate
	Models   []*Model
}

// Model finds a model by name, or nil.
func (s *Schema) Model(name string) *Model {
	for _, m := range s.Models {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Database holds the resolved database block.
type Database struct {
	Provider string
	URL      URL
}

// URL is a connection string, either literal or referenced from the
// environment via env("NAME").
type URL struct {
	Value string
	Env   string
}

// Resolve returns the connection string, reading the environment when
// the schema used env().
func (u URL) Resolve() (string, error) {
	if u.Env == "" {
		return u.Value, nil
	}
	v := os.Getenv(u.Env)
	if v == "" {
		return "", fmt.Errorf("environment variable %s is not set", u.Env)
	}
	return v, nil
}

// Generate holds the resolved generate block.
type Generate struct {
	Package string
	Output  string
}

// Model is a resolved model declaration.
type Model struct {
	Name      string
	Table     string
	Docs      string
	Fields    []*Field
	Relations []*Relation
	ID        *Field
}

// Field finds a scalar field by column name, or nil.
func (m *Model) Field(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Relation finds a relation by name, or nil.
func (m *Model) Relation(name string) *Relation {
	for _, r := range m.Relations {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Field is a resolved scalar column.
type Field struct {
	Name     string
	GoName   string
	Type     Type
	Nullable bool
	ID       bool
	Unique   bool
	Default  string
	Docs     string
}

// Relation is a resolved association between two models.
type Relation struct {
	Name       string
	GoName     string
	Kind       RelationKind
	Target     *Model
	ForeignKey string
	References string
	Nullable   bool
	Docs       string
}

// Resolve validates the syntax tree and builds the semantic schema. The
// schema is nil whenever the diagnostics hold errors; warnings may be
// present either way.
func Resolve(file *ast.File) (*Schema, diagnostics.Diagnostics) {
	r := &resolver{
		file:   file,
		models: make(map[string]*Model),
		nodes:  make(map[*Model]*ast.Model),
	}
	schema := r.resolve()
	if r.diags.HasErrors() {
		return nil, r.diags
	}
	return schema, r.diags
}

type resolver struct {
	file   *ast.File
	diags  diagnostics.Diagnostics
	models map[string]*Model
	nodes  map[*Model]*ast.Model
}

type pendingRelation struct {
	model    *Model
	relation *Relation
	node     *ast.Field
}

func (r *resolver) resolve() *Schema {
	schema := &Schema{
		Database: r.database(),
		Generate: r.generate(),
	}

	// Declare every model before touching fields so relations can
	// reference models defined later in the file.
	for _, node := range r.file.Models() {
		m := r.declareModel(node)
		if m != nil {
			schema.Models = append(schema.Models, m)
		}
	}

	var pending []pendingRelation
	for _, m := range schema.Models {
		pending = append(pending, r.resolveFields(m, r.nodes[m])...)
	}
	for _, p := range pending {
		r.resolveRelation(p)
	}

	r.checkTableCollisions(schema.Models)
	return schema
}

func (r *resolver) database() Database {
	var db Database
	blocks := r.databaseBlocks()
	switch len(blocks) {
	case 0:
		r.diags.Errorf(diagnostics.NewSpan(0, 0), "schema needs a database block")
		return db
	case 1:
	default:
		pos := blocks[1].Pos
		r.diags.Errorf(keywordSpan(pos, "database"), "only one database block is allowed")
	}
	block := blocks[0]

	for _, p := range block.Properties {
		switch p.Name {
		case "provider":
			db.Provider = r.stringProperty(p)
		case "url":
			db.URL = r.urlProperty(p)
		default:
			r.diags.Errorf(identSpan(p.Pos, p.Name), "unknown database property %q", p.Name)
		}
	}

	span := keywordSpan(block.Pos, "database")
	if db.Provider == "" {
		r.diags.Errorf(span, "database block needs a provider")
	} else if !knownProvider(db.Provider) {
		p := block.Property("provider")
		r.diags.Errorf(valueSpan(p.Value), "unknown provider %q, expected postgres, mysql, or sqlite", db.Provider)
	}
	if db.URL == (URL{}) {
		r.diags.Errorf(span, "database block needs a url")
	}
	return db
}

func (r *resolver) databaseBlocks() []*ast.DatabaseBlock {
	var blocks []*ast.DatabaseBlock
	for _, b := range r.file.Blocks {
		if b.Database != nil {
			blocks = append(blocks, b.Database)
		}
	}
	return blocks
}

func (r *resolver) generate() Generate {
	var gen Generate
	var blocks []*ast.GenerateBlock
	for _, b := range r.file.Blocks {
		if b.Generate != nil {
			blocks = append(blocks, b.Generate)
		}
	}
	switch len(blocks) {
	case 0:
		r.diags.Errorf(diagnostics.NewSpan(0, 0), "schema needs a generate block")
		return gen
	case 1:
	default:
		r.diags.Errorf(keywordSpan(blocks[1].Pos, "generate"), "only one generate block is allowed")
	}
	block := blocks[0]

	for _, p := range block.Properties {
		switch p.Name {
		case "package":
			gen.Package = r.stringProperty(p)
		case "output":
			gen.Output = r.stringProperty(p)
		default:
			r.diags.Errorf(identSpan(p.Pos, p.Name), "unknown generate property %q", p.Name)
		}
	}

	span := keywordSpan(block.Pos, "generate")
	if gen.Package == "" {
		r.diags.Errorf(span, "generate block needs a package")
	} else if !validPackageName(gen.Package) {
		p := block.Property("package")
		r.diags.Errorf(valueSpan(p.Value), "%q is not a valid Go package name", gen.Package)
	}
	if gen.Output == "" {
		r.diags.Errorf(span, "generate block needs an output")
	}
	return gen
}

func (r *resolver) stringProperty(p *ast.Property) string {
	s, ok := p.Value.AsString()
	if !ok {
		r.diags.Errorf(valueSpan(p.Value), "%s must be a string", p.Name)
		return ""
	}
	return s
}

func (r *resolver) urlProperty(p *ast.Property) URL {
	if s, ok := p.Value.AsString(); ok {
		return URL{Value: s}
	}
	call, ok := p.Value.AsCall()
	if !ok || call.Name != "env" {
		r.diags.Errorf(valueSpan(p.Value), "url must be a string or env(\"NAME\")")
		return URL{}
	}
	if len(call.Args) != 1 {
		r.diags.Errorf(valueSpan(p.Value), "the env function expects a single, unnamed, string argument")
		return URL{}
	}
	name, ok := call.Args[0].AsString()
	if !ok {
		r.diags.Errorf(valueSpan(call.Args[0]), "the env function expects a string argument")
		return URL{}
	}
	return URL{Env: name}
}

func (r *resolver) declareModel(node *ast.Model) *Model {
	name := node.GetName()
	span := identSpan(node.Name.Pos, name)
	if _, reserved := scalarTypes[name]; reserved {
		r.diags.Errorf(span, "%q is a reserved scalar type name and cannot be used", name)
		return nil
	}
	if !validModelName(name) {
		r.diags.Errorf(span, "model name %q must be UpperCamelCase", name)
		return nil
	}
	if _, dup := r.models[name]; dup {
		r.diags.Errorf(span, "model %s is defined twice", name)
		return nil
	}
	m := &Model{
		Name:  name,
		Table: tableName(name),
		Docs:  node.Documentation(),
	}
	r.models[name] = m
	r.nodes[m] = node
	return m
}

// resolveFields walks a model's fields, building scalar columns
// immediately and deferring relations until every model's columns exist.
func (r *resolver) resolveFields(m *Model, node *ast.Model) []pendingRelation {
	var pending []pendingRelation
	seen := make(map[string]bool)
	var idField *ast.Field

	for _, f := range node.Fields {
		name := f.GetName()
		span := identSpan(f.Name.Pos, name)
		if !validColumnName(name) {
			r.diags.Errorf(span, "field name %q must be snake_case", name)
			continue
		}
		if seen[name] {
			r.diags.Errorf(span, "field %s is defined twice in model %s", name, m.Name)
			continue
		}
		seen[name] = true
		r.checkDuplicateAttributes(f)

		if t, ok := scalarTypes[f.Type.Name]; ok {
			field := r.scalarField(m, f, t)
			if field == nil {
				continue
			}
			m.Fields = append(m.Fields, field)
			if field.ID {
				if idField != nil {
					r.diags.Errorf(attrSpan(f.Attribute("id")), "model %s has more than one @id field", m.Name)
					field.ID = false
					continue
				}
				idField = f
				m.ID = field
			}
			continue
		}

		if _, ok := r.models[f.Type.Name]; ok {
			rel := r.relationField(m, f)
			if rel == nil {
				continue
			}
			m.Relations = append(m.Relations, rel)
			pending = append(pending, pendingRelation{model: m, relation: rel, node: f})
			continue
		}

		r.diags.Errorf(identSpan(f.Type.Pos, f.Type.Name),
			"unknown type %s, expected a scalar type or a model", f.Type.Name)
	}

	if m.ID == nil {
		r.diags.Errorf(identSpan(node.Name.Pos, node.GetName()), "model %s has no @id field", m.Name)
	}
	return pending
}

func (r *resolver) scalarField(m *Model, f *ast.Field, t Type) *Field {
	if f.Type.List {
		r.diags.Errorf(identSpan(f.Type.Pos, f.Type.Name), "only model types can be lists")
		return nil
	}
	field := &Field{
		Name:     f.GetName(),
		GoName:   goName(f.GetName()),
		Type:     t,
		Nullable: f.Type.Optional,
		Docs:     f.Documentation(),
	}
	for _, a := range f.Attributes {
		switch a.Name {
		case "id":
			r.checkNoArguments(a)
			if field.Nullable {
				r.diags.Errorf(attrSpan(a), "@id fields cannot be nullable")
				continue
			}
			if !t.keyable() {
				r.diags.Errorf(attrSpan(a), "%s cannot be an @id type; use Int, BigInt, or String", t)
				continue
			}
			field.ID = true
		case "unique":
			r.checkNoArguments(a)
			field.Unique = true
		case "default":
			field.Default = r.defaultExpr(a, t)
		case "relation":
			r.diags.Errorf(attrSpan(a), "@relation is only allowed on model-typed fields")
		default:
			r.diags.Errorf(attrSpan(a), "unknown attribute @%s", a.Name)
		}
	}
	return field
}

func (r *resolver) relationField(m *Model, f *ast.Field) *Relation {
	rel := &Relation{
		Name:     f.GetName(),
		GoName:   goName(f.GetName()),
		Kind:     BelongsTo,
		Nullable: f.Type.Optional,
		Docs:     f.Documentation(),
	}
	if f.Type.List {
		rel.Kind = HasMany
	}
	var relAttr *ast.Attribute
	for _, a := range f.Attributes {
		switch a.Name {
		case "relation":
			relAttr = a
		case "id", "unique", "default":
			r.diags.Errorf(attrSpan(a), "@%s is not allowed on relation fields", a.Name)
		default:
			r.diags.Errorf(attrSpan(a), "unknown attribute @%s", a.Name)
		}
	}
	if relAttr == nil {
		r.diags.Errorf(identSpan(f.Name.Pos, f.GetName()),
			"relation field %s needs @relation(foreign_key: ...)", f.GetName())
		return nil
	}
	for _, arg := range relAttr.Arguments {
		switch arg.Name {
		case "":
			r.diags.Errorf(valueSpan(arg.Value), "@relation arguments must be named")
		case "foreign_key":
			if s, ok := arg.Value.AsString(); ok {
				rel.ForeignKey = s
			} else {
				r.diags.Errorf(valueSpan(arg.Value), "foreign_key must be a string")
			}
		case "references":
			if s, ok := arg.Value.AsString(); ok {
				rel.References = s
			} else {
				r.diags.Errorf(valueSpan(arg.Value), "references must be a string")
			}
		default:
			r.diags.Errorf(identSpan(arg.Pos, arg.Name), "unknown @relation argument %q", arg.Name)
		}
	}
	if rel.ForeignKey == "" {
		r.diags.Errorf(attrSpan(relAttr), "@relation needs a foreign_key argument")
		return nil
	}
	return rel
}

// resolveRelation runs after every model's columns exist. The foreign
// key decides the kind for single-valued fields: a column on this model
// means belongs_to, a column on the target means has_one.
func (r *resolver) resolveRelation(p pendingRelation) {
	m, rel, f := p.model, p.relation, p.node
	rel.Target = r.models[f.Type.Name]
	if rel.Target == nil {
		return
	}
	span := attrSpan(f.Attribute("relation"))

	var fkModel, refModel *Model
	switch {
	case rel.Kind == HasMany:
		fkModel, refModel = rel.Target, m
	case m.Field(rel.ForeignKey) != nil:
		rel.Kind = BelongsTo
		fkModel, refModel = m, rel.Target
	case rel.Target.Field(rel.ForeignKey) != nil:
		rel.Kind = HasOne
		fkModel, refModel = rel.Target, m
	default:
		r.diags.Errorf(span, "foreign key %q is not a column of %s or %s",
			rel.ForeignKey, m.Name, rel.Target.Name)
		return
	}

	fk := fkModel.Field(rel.ForeignKey)
	if fk == nil {
		r.diags.Errorf(span, "foreign key %q is not a column of %s", rel.ForeignKey, fkModel.Name)
		return
	}
	if rel.References == "" {
		if refModel.ID == nil {
			return
		}
		rel.References = refModel.ID.Name
	}
	ref := refModel.Field(rel.References)
	if ref == nil {
		r.diags.Errorf(span, "references %q is not a column of %s", rel.References, refModel.Name)
		return
	}
	if fk.Type != ref.Type {
		r.diags.Errorf(span, "foreign key %s.%s is %s but %s.%s is %s",
			fkModel.Table, fk.Name, fk.Type, refModel.Table, ref.Name, ref.Type)
		return
	}
	if !fk.Type.keyable() {
		r.diags.Errorf(span, "%s cannot key a relation; use Int, BigInt, or String", fk.Type)
		return
	}
	if rel.Kind == BelongsTo && fk.Nullable && !rel.Nullable {
		r.diags.Warnf(span, "foreign key %s is nullable; consider %s %s?",
			fk.Name, rel.Name, rel.Target.Name)
	}
}

func (r *resolver) defaultExpr(a *ast.Attribute, t Type) string {
	if len(a.Arguments) != 1 || a.Arguments[0].Name != "" {
		r.diags.Errorf(attrSpan(a), "@default takes a single unnamed argument")
		return ""
	}
	v := a.Arguments[0].Value
	if ok := defaultFits(v, t); !ok {
		r.diags.Errorf(valueSpan(v), "@default value %s does not fit %s", v.String(), t)
		return ""
	}
	return v.String()
}

func defaultFits(v *ast.Value, t Type) bool {
	if call, ok := v.AsCall(); ok {
		if len(call.Args) != 0 {
			return false
		}
		switch call.Name {
		case "now":
			return t == TypeTime
		case "autoincrement":
			return t == TypeInt || t == TypeBigInt
		default:
			return false
		}
	}
	switch t {
	case TypeBool:
		_, ok := v.AsBool()
		return ok
	case TypeInt, TypeBigInt:
		return v.Number != nil && !strings.Contains(*v.Number, ".")
	case TypeFloat:
		return v.Number != nil
	case TypeString:
		return v.Str != nil
	default:
		return false
	}
}

func (r *resolver) checkDuplicateAttributes(f *ast.Field) {
	seen := make(map[string]bool)
	for _, a := range f.Attributes {
		if seen[a.Name] {
			r.diags.Errorf(attrSpan(a), "attribute @%s can only be defined once", a.Name)
		}
		seen[a.Name] = true
	}
}

func (r *resolver) checkNoArguments(a *ast.Attribute) {
	if len(a.Arguments) > 0 {
		r.diags.Errorf(attrSpan(a), "@%s takes no arguments", a.Name)
	}
}

func (r *resolver) checkTableCollisions(models []*Model) {
	byTable := make(map[string]*Model)
	for _, m := range models {
		if prev, ok := byTable[m.Table]; ok {
			node := r.nodes[m]
			r.diags.Errorf(identSpan(node.Name.Pos, node.GetName()),
				"models %s and %s map to the same table %q", prev.Name, m.Name, m.Table)
			continue
		}
		byTable[m.Table] = m
	}
}

func knownProvider(p string) bool {
	switch p {
	case "postgres", "postgresql", "mysql", "sqlite", "sqlite3":
		return true
	default:
		return false
	}
}

func validModelName(s string) bool {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !isLetter(c) && !isDigit(c) {
			return false
		}
	}
	return true
}

func validColumnName(s string) bool {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && !isDigit(c) && c != '_' {
			return false
		}
	}
	return true
}

func validPackageName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && !isDigit(c) && c != '_' {
			return false
		}
	}
	return !isDigit(s[0])
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// goName converts a snake_case column name to an exported Go name,
// upper-casing common initialisms the way gofmt'd code spells them.
func goName(column string) string {
	parts := strings.Split(column, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if up, ok := initialisms[p]; ok {
			b.WriteString(up)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

var initialisms = map[string]string{
	"id":   "ID",
	"url":  "URL",
	"uid":  "UID",
	"api":  "API",
	"db":   "DB",
	"sql":  "SQL",
	"http": "HTTP",
	"json": "JSON",
}

// tableName derives the table for a model: snake_case, pluralized.
func tableName(model string) string {
	return pluralize(toSnake(model))
}

// toSnake lowercases a model name, inserting underscores at word
// boundaries. Acronym runs stay together: APIToken becomes api_token.
func toSnake(s string) string {
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

func pluralize(s string) string {
	switch {
	case strings.HasSuffix(s, "s"), strings.HasSuffix(s, "x"), strings.HasSuffix(s, "z"),
		strings.HasSuffix(s, "ch"), strings.HasSuffix(s, "sh"):
		return s + "es"
	case strings.HasSuffix(s, "y") && len(s) > 1 && !isVowel(s[len(s)-2]):
		return s[:len(s)-1] + "ies"
	default:
		return s + "s"
	}
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	default:
		return false
	}
}

func identSpan(pos lexer.Position, text string) diagnostics.Span {
	return diagnostics.NewSpan(pos.Offset, pos.Offset+len(text))
}

func keywordSpan(pos lexer.Position, keyword string) diagnostics.Span {
	return identSpan(pos, keyword)
}

func attrSpan(a *ast.Attribute) diagnostics.Span {
	if a == nil {
		return diagnostics.NewSpan(0, 0)
	}
	return diagnostics.NewSpan(a.Pos.Offset, a.Pos.Offset+1+len(a.Name))
}

func valueSpan(v *ast.Value) diagnostics.Span {
	return diagnostics.NewSpan(v.Pos.Offset, v.Pos.Offset+len(v.String()))
}
