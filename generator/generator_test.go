package generator

import (
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/quarrydb/quarry/schema"
)

const testSchema = `
database {
  provider = "postgres"
  url      = env("DATABASE_URL")
}

generate {
  package = "blog"
  output  = "./blog"
}

model Author {
  id    BigInt @id @default(autoincrement())
  email String @unique
  posts Post[] @relation(foreign_key: "author_id")
}

model Post {
  id        BigInt @id @default(autoincrement())
  author_id BigInt
  title     String
  author    Author @relation(foreign_key: "author_id")
}
`

func loadSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, diags := schema.Load("schema.quarry", testSchema)
	if diags.HasErrors() {
		t.Fatalf("Schema failed to resolve:\n%s", diags.ToPrettyString("schema.quarry", testSchema))
	}
	return s
}

func TestGenerateWritesPackage(t *testing.T) {
	fs := afero.NewMemMapFs()
	g := New(loadSchema(t), fs)

	if err := g.Generate("gen/blog"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, name := range []string{"doc.go", "models.go", "columns.go", "tables.go", "query.go"} {
		path := "gen/blog/" + name
		ok, err := afero.Exists(fs, path)
		if err != nil {
			t.Fatalf("Exists(%s) failed: %v", path, err)
		}
		if !ok {
			t.Errorf("Expected %s to be written", path)
		}
	}

	src, err := afero.ReadFile(fs, "gen/blog/models.go")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.HasPrefix(string(src), "// Code generated by quarry. DO NOT EDIT.") {
		t.Error("Expected the generated-code header")
	}
	if !strings.Contains(string(src), "type Author struct {") {
		t.Error("Expected the Author struct in models.go")
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	g := New(loadSchema(t), fs)

	if err := g.Generate("gen"); err != nil {
		t.Fatalf("First Generate failed: %v", err)
	}
	first, err := afero.ReadFile(fs, "gen/tables.go")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if err := g.Generate("gen"); err != nil {
		t.Fatalf("Second Generate failed: %v", err)
	}
	second, err := afero.ReadFile(fs, "gen/tables.go")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if string(first) != string(second) {
		t.Error("Expected regeneration to produce identical output")
	}
}

func TestGenerateFailsOnReadOnlyFs(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	g := New(loadSchema(t), fs)

	if err := g.Generate("gen"); err == nil {
		t.Error("Expected an error on a read-only filesystem")
	}
}
