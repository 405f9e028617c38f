// Package schema parses, validates, and formats quarry schema files. A
// file declares a database block, a generate block, and models; Load
// turns one into the resolved form the generator consumes.
package schema

import (
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/quarrydb/quarry/schema/ast"
	"github.com/quarrydb/quarry/schema/diagnostics"
)

var parser = participle.MustBuild[ast.File](
	participle.Lexer(schemaLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// Parse parses a schema file into its syntax tree.
func Parse(filename string, r io.Reader) (*ast.File, error) {
	return parser.Parse(filename, r)
}

// ParseString parses a schema from a string.
func ParseString(filename, source string) (*ast.File, error) {
	return Parse(filename, strings.NewReader(source))
}

// MustParseString parses a schema from a string, panicking on error.
func MustParseString(filename, source string) *ast.File {
	file, err := ParseString(filename, source)
	if err != nil {
		panic(err)
	}
	return file
}

// Load parses and resolves a schema in one step. Parse errors are
// reported through the same diagnostics channel as validation errors so
// callers render them uniformly. The schema is nil whenever the
// diagnostics hold errors.
func Load(filename, source string) (*Schema, diagnostics.Diagnostics) {
	file, err := ParseString(filename, source)
	if err != nil {
		return nil, diagnostics.FromError(parseError(err))
	}
	return Resolve(file)
}

// parseError converts a participle error into a spanned diagnostic.
func parseError(err error) diagnostics.Error {
	if perr, ok := err.(participle.Error); ok {
		offset := perr.Position().Offset
		return diagnostics.NewError(perr.Message(), diagnostics.NewSpan(offset, offset))
	}
	return diagnostics.NewError(err.Error(), diagnostics.NewSpan(0, 0))
}
