// Package resolve inlines file imports and the standard library into a
// single merged AST, the step between the parser and the semantic
// analyzer (spec §2, §6 "Import syntax"/"Standard library"). Like the
// lexer and parser, it is an external collaborator: the pipeline's core
// is downstream, in sema and codegen.
package resolve

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/munlang/munc/ast"
	"github.com/munlang/munc/internal/diag"
	"github.com/munlang/munc/parser"
)

// Resolver inlines file imports recursively, breaking cycles with a
// visited-path set, and prepends the standard library.
type Resolver struct {
	stdDir  string
	visited map[string]bool
	merged  *ast.Program
}

// New creates a Resolver. stdDir is the standard-library directory
// (every .mun file in it is parsed and inlined into every compilation,
// in sorted filename order); pass "" to skip it.
func New(stdDir string) *Resolver {
	return &Resolver{stdDir: stdDir, visited: map[string]bool{}}
}

// Resolve reads and parses entryPath, inlines its file imports
// (recursively) and the standard library, and returns one merged
// *ast.Program. Host imports are preserved as ImportDecls on the
// result rather than inlined.
func Resolve(entryPath, stdDir string) (*ast.Program, error) {
	r := New(stdDir)
	return r.Resolve(entryPath)
}

func (r *Resolver) Resolve(entryPath string) (*ast.Program, error) {
	r.merged = &ast.Program{SourceFile: entryPath}

	if r.stdDir != "" {
		if err := r.inlineStdDir(); err != nil {
			return nil, err
		}
	}
	if err := r.inlineFile(entryPath); err != nil {
		return nil, err
	}
	return r.merged, nil
}

// inlineStdDir inlines every *.mun file directly inside stdDir, in
// sorted filename order (spec §6: "Implementations MUST iterate std in
// sorted filename order for determinism").
func (r *Resolver) inlineStdDir() error {
	entries, err := os.ReadDir(r.stdDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return diag.PathErrorf(diag.IO, r.stdDir, "reading standard library directory: %s", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".mun" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.inlineFile(filepath.Join(r.stdDir, name)); err != nil {
			return err
		}
	}
	return nil
}

// inlineFile parses path and merges its declarations into r.merged,
// recursively inlining its own file imports first (depth-first, so a
// file's imported declarations precede its own in the merged program —
// spec §5 "Ordering guarantees"). Already-visited paths are skipped,
// breaking import cycles.
func (r *Resolver) inlineFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if r.visited[abs] {
		return nil
	}
	r.visited[abs] = true

	src, err := os.ReadFile(path)
	if err != nil {
		return diag.PathErrorf(diag.IO, path, "%s", err)
	}

	prog, err := parser.Parse(path, string(src))
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	for _, imp := range prog.Imports {
		if imp.Source == "" {
			// Host import: kept as-is, not inlined.
			r.merged.Imports = append(r.merged.Imports, imp)
			continue
		}
		target := imp.Source
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}
		if _, err := os.Stat(target); err != nil {
			return diag.PathErrorf(diag.Import, path, "cannot import %q: %s", imp.Source, err)
		}
		if err := r.inlineFile(target); err != nil {
			return err
		}
	}

	r.merged.Functions = append(r.merged.Functions, prog.Functions...)
	r.merged.Structs = append(r.merged.Structs, prog.Structs...)
	r.merged.Statements = append(r.merged.Statements, prog.Statements...)
	return nil
}
