package schema

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// schemaLexer defines the token types for quarry schema files.
var schemaLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Attribute prefix
	{Name: "Attr", Pattern: `@`},

	// Punctuation
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "LBracket", Pattern: `\[`},
	{Name: "RBracket", Pattern: `\]`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Equal", Pattern: `=`},
	{Name: "Question", Pattern: `\?`},

	// Literals
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},

	// Identifiers
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},

	// Comments (doc comments first so /// is not consumed as //)
	{Name: "DocComment", Pattern: `///[^\n]*`},
	{Name: "Comment", Pattern: `//[^\n]*`},

	// Whitespace
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})
