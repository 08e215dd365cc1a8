package arch_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const (
	maxFilesPerPackage = 20
	maxLinesPerFile    = 400
)

func TestPackageFileCount(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		if n := len(sourceFiles(t, pkg, false)); n > maxFilesPerPackage {
			t.Errorf("package %s has %d .go files (limit: %d); consider splitting", pkg, n, maxFilesPerPackage)
		}
	}
}

// TestFileLineCount covers test files too. Generated files are skipped.
func TestFileLineCount(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		for _, path := range sourceFiles(t, pkg, true) {
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("reading %s: %v", path, err)
			}
			if bytes.HasPrefix(data, []byte("// Code generated")) {
				continue
			}
			lines := bytes.Count(data, []byte("\n"))
			if len(data) > 0 && data[len(data)-1] != '\n' {
				lines++
			}
			if lines > maxLinesPerFile {
				t.Errorf("%s has %d lines (limit: %d); consider decomposing",
					filepath.Join(pkg, filepath.Base(path)), lines, maxLinesPerFile)
			}
		}
	}
}
