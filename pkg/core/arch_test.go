package core_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// importsOf returns the imports of every non-test Go file in dir, keyed by
// file name.
func importsOf(t *testing.T, dir string) map[string][]string {
	t.Helper()
	fset := token.NewFileSet()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", dir, err)
	}

	out := make(map[string][]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".go") || strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			t.Errorf("Failed to parse %s: %v", path, err)
			continue
		}
		for _, imp := range f.Imports {
			out[path] = append(out[path], strings.Trim(imp.Path.Value, `"`))
		}
	}
	return out
}

// TestCoreImportsOnlyStdlib verifies pkg/core only imports the standard library.
// The Golden Rule: every other package depends on core, never the reverse.
func TestCoreImportsOnlyStdlib(t *testing.T) {
	for file, imports := range importsOf(t, ".") {
		for _, imp := range imports {
			if strings.Contains(imp, ".") {
				t.Errorf("%s imports non-stdlib package: %s", file, imp)
			}
		}
	}
}

// TestLibraryDoesNotImportCLI verifies no pkg/ package reaches into the CLI.
func TestLibraryDoesNotImportCLI(t *testing.T) {
	err := filepath.WalkDir("..", func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		for file, imports := range importsOf(t, path) {
			for _, imp := range imports {
				if strings.Contains(imp, "/internal/cli") {
					t.Errorf("%s imports CLI package: %s", file, imp)
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to walk pkg: %v", err)
	}
}
