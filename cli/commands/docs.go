package commands

import (
	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/cli/internal/ui"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Show the schema language reference",
	RunE: func(cmd *cobra.Command, args []string) error {
		return ui.PrintMarkdown(dslReference)
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
}

const dslReference = `# Quarry Schema Language

A schema file has one ` + "`database`" + ` block, one ` + "`generate`" + ` block and any
number of ` + "`model`" + ` blocks.

## database

` + "```" + `
database {
  provider = "postgres"
  url      = env("DATABASE_URL")
}
` + "```" + `

* ` + "`provider`" + ` is one of ` + "`postgres`" + `, ` + "`mysql`" + ` or ` + "`sqlite3`" + `.
* ` + "`url`" + ` is a connection string literal or ` + "`env(\"VAR\")`" + ` to read it
  from the environment at runtime.

## generate

` + "```" + `
generate {
  package = "blogdb"
  output  = "./blogdb"
}
` + "```" + `

* ` + "`package`" + ` names the generated Go package.
* ` + "`output`" + ` is the output directory, relative paths resolve against
  the schema file.

## model

` + "```" + `
/// A user account.
model User {
  id         BigInt  @id @default(autoincrement())
  email      String  @unique
  name       String?
  created_at Time    @default(now())

  posts Post[] @relation(foreign_key: "author_id")
}
` + "```" + `

Model names are UpperCamelCase. Column names are snake_case. The table
name is the pluralized snake_case model name (User becomes users).
` + "`///`" + ` doc comments are carried into the generated Go code.

## Scalar types

| Type   | Go type   |
|--------|-----------|
| Int    | int32     |
| BigInt | int64     |
| Float  | float64   |
| String | string    |
| Bool   | bool      |
| Time   | time.Time |
| Bytes  | []byte    |

A ` + "`?`" + ` suffix makes the column nullable and the Go field a pointer.

## Attributes

* ` + "`@id`" + ` marks the primary key. Exactly one non-nullable ` + "`Int`" + `,
  ` + "`BigInt`" + ` or ` + "`String`" + ` column per model.
* ` + "`@unique`" + ` marks a unique column.
* ` + "`@default(value)`" + ` records a default: a literal matching the column
  type, ` + "`autoincrement()`" + ` on ` + "`Int`" + `/` + "`BigInt`" + `, or ` + "`now()`" + ` on ` + "`Time`" + `.
* ` + "`@relation(foreign_key: \"col\", references: \"col\")`" + ` declares an
  association on a model-typed field. ` + "`references`" + ` defaults to the
  target's ` + "`@id`" + ` column.

## Relations

The field's type decides the shape, the foreign key's location decides
the direction:

* ` + "`Post[]`" + ` with the foreign key on Post is a has-many.
* ` + "`Profile`" + ` with the foreign key on Profile is a has-one.
* ` + "`User`" + ` with the foreign key on this model is a belongs-to.

Every relation needs a matching scalar foreign-key column whose type
equals the referenced column's type.
`
