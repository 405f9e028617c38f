// Package generator writes the Go package generated from a resolved
// schema to disk.
package generator

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/quarrydb/quarry/generator/codegen"
	"github.com/quarrydb/quarry/internal/debug"
	"github.com/quarrydb/quarry/schema"
)

// Generator emits the generated package for one schema.
type Generator struct {
	schema *schema.Schema
	fs     afero.Fs
}

// New creates a generator that writes through fs.
func New(s *schema.Schema, fs afero.Fs) *Generator {
	return &Generator{schema: s, fs: fs}
}

// Generate renders every file and writes the package into dir.
func (g *Generator) Generate(dir string) error {
	debug.Debug("generating package",
		"package", g.schema.Generate.Package, "dir", dir, "models", len(g.schema.Models))

	files, err := codegen.Files(g.schema)
	if err != nil {
		return err
	}
	if err := g.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, f := range files {
		path := filepath.Join(dir, f.Name)
		if err := afero.WriteFile(g.fs, path, f.Source, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		debug.Debug("wrote generated file", "path", path, "bytes", len(f.Source))
	}
	return nil
}
