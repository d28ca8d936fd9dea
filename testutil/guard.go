// Package testutil provides helpers for enforcing layering rules between the
// catalog's packages.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Predicate reports whether an import path is forbidden.
type Predicate func(importPath string) bool

// AssertNoDirectImports parses every non-test .go file in dir and fails if an
// import matches forbidden. Subdirectories and build tags are ignored.
func AssertNoDirectImports(t testing.TB, dir string, forbidden Predicate, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	failIfViolations(t, reason, viols)
}

// AssertNoImportsUnder applies AssertNoDirectImports to root and every
// package directory below it.
func AssertNoImportsUnder(t testing.TB, root string, forbidden Predicate, reason string) {
	t.Helper()
	var all []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "testdata") {
			return filepath.SkipDir
		}
		viols, err := directImportViolations(path, forbidden)
		if err != nil {
			return err
		}
		for _, v := range viols {
			all = append(all, filepath.ToSlash(path)+": "+v)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	failIfViolations(t, reason, all)
}

// Any combines predicates.
func Any(preds ...Predicate) Predicate {
	return func(path string) bool {
		for _, p := range preds {
			if p(path) {
				return true
			}
		}
		return false
	}
}

// InternalImportForbidden matches any import path containing an internal
// segment.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/") || strings.HasSuffix(path, "/internal")
}

// DriverImportForbidden matches database and object store client libraries.
func DriverImportForbidden(path string) bool {
	for _, prefix := range []string{
		"database/sql",
		"github.com/jackc/pgx",
		"modernc.org/sqlite",
		"github.com/aws/aws-sdk-go-v2",
	} {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// PersistenceImportForbidden matches the concrete catalog stores.
func PersistenceImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/infra/persistence")
}

// TransportImportForbidden matches HTTP and terminal UI packages.
func TransportImportForbidden(path string) bool {
	return path == "net/http" || strings.HasPrefix(path, "net/http/") ||
		strings.HasPrefix(path, "github.com/charmbracelet/") ||
		strings.HasPrefix(path, "github.com/spf13/cobra")
}

// Prefix returns a predicate matching path or anything below it.
func Prefix(prefix string) Predicate {
	return func(path string) bool {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
}

func directImportViolations(dir string, forbidden Predicate) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range file.Imports {
			ip := strings.Trim(imp.Path.Value, "\"")
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden imports detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}
