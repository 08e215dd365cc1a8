// Package arch_test enforces structural rules on the internal packages:
// layering, documentation, package-level state, interface placement and
// file size.
package arch_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
)

const (
	modulePath  = "github.com/papapumpkin/cascade"
	internalPfx = modulePath + "/internal/"
)

// internalDir returns the absolute path of internal/, resolved from this
// file's location so tests work from any working directory.
func internalDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Dir(filepath.Dir(thisFile))
}

// internalPackages lists the package directories under internal/ that hold
// Go source, excluding arch_test itself.
func internalPackages(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(internalDir(t))
	if err != nil {
		t.Fatalf("reading internal/: %v", err)
	}
	var pkgs []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "arch_test" {
			continue
		}
		if len(sourceFiles(t, e.Name(), false)) > 0 {
			pkgs = append(pkgs, e.Name())
		}
	}
	sort.Strings(pkgs)
	return pkgs
}

// sourceFiles returns the .go files of pkg, sorted. Test files are included
// only when withTests is set.
func sourceFiles(t *testing.T, pkg string, withTests bool) []string {
	t.Helper()
	dir := filepath.Join(internalDir(t), pkg)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") {
			continue
		}
		if !withTests && strings.HasSuffix(name, "_test.go") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files
}

// parsePackage parses the non-test files of pkg with comments.
func parsePackage(t *testing.T, pkg string) (*token.FileSet, []*ast.File) {
	t.Helper()
	fset := token.NewFileSet()
	var files []*ast.File
	for _, path := range sourceFiles(t, pkg, false) {
		f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			t.Fatalf("parsing %s: %v", path, err)
		}
		files = append(files, f)
	}
	return fset, files
}

// internalImports returns the internal packages imported by pkg's non-test
// files, deduplicated and sorted.
func internalImports(t *testing.T, pkg string) []string {
	t.Helper()
	_, files := parsePackage(t, pkg)
	seen := make(map[string]bool)
	for _, f := range files {
		for _, imp := range f.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			if rel, ok := strings.CutPrefix(path, internalPfx); ok {
				rel, _, _ = strings.Cut(rel, "/")
				seen[rel] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func TestInternalPackages(t *testing.T) {
	t.Parallel()

	pkgs := internalPackages(t)
	for _, want := range []string{"config", "event", "graph", "listener", "report"} {
		if !contains(pkgs, want) {
			t.Errorf("expected package %q in %v", want, pkgs)
		}
	}
	if contains(pkgs, "arch_test") {
		t.Error("internalPackages should exclude arch_test")
	}
	if imps := internalImports(t, "listener"); !contains(imps, "graph") {
		t.Errorf("expected internal/listener to import graph, got %v", imps)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
