package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordingT struct {
	testing.TB
	msg string
}

func (r *recordingT) Helper() {}

func (r *recordingT) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func writeGo(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		name string
		pred Predicate
		in   string
		want bool
	}{
		{"internal", InternalImportForbidden, "crisprcatalog/internal/core", true},
		{"internal root", InternalImportForbidden, "crisprcatalog/internal", true},
		{"internal lookalike", InternalImportForbidden, "example.com/notinternal", false},
		{"internal pkg", InternalImportForbidden, "crisprcatalog/pkg/domain", false},
		{"sql", DriverImportForbidden, "database/sql", true},
		{"sql driver", DriverImportForbidden, "database/sql/driver", true},
		{"pgx", DriverImportForbidden, "github.com/jackc/pgx/v5/stdlib", true},
		{"sqlite", DriverImportForbidden, "modernc.org/sqlite", true},
		{"s3", DriverImportForbidden, "github.com/aws/aws-sdk-go-v2/service/s3", true},
		{"encoding", DriverImportForbidden, "encoding/json", false},
		{"persistence", PersistenceImportForbidden, "crisprcatalog/internal/infra/persistence/sqlite", true},
		{"http", TransportImportForbidden, "net/http", true},
		{"httptest", TransportImportForbidden, "net/http/httptest", true},
		{"bubbletea", TransportImportForbidden, "github.com/charmbracelet/bubbletea", true},
		{"net", TransportImportForbidden, "net", false},
		{"prefix", Prefix("crisprcatalog/internal/core"), "crisprcatalog/internal/core", true},
		{"prefix child", Prefix("crisprcatalog/internal/core"), "crisprcatalog/internal/core/x", true},
		{"prefix sibling", Prefix("crisprcatalog/internal/core"), "crisprcatalog/internal/corex", false},
	}
	for _, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Errorf("%s: pred(%q)=%v want %v", c.name, c.in, got, c.want)
		}
	}
}

func TestAnyCombinesPredicates(t *testing.T) {
	pred := Any(DriverImportForbidden, TransportImportForbidden)
	if !pred("net/http") || !pred("modernc.org/sqlite") || pred("fmt") {
		t.Fatal("Any did not combine predicates")
	}
	if Any()("fmt") {
		t.Fatal("empty Any must allow everything")
	}
}

func TestAssertNoDirectImportsPasses(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "x.go", "package tmp\nimport (\n\t\"fmt\"\n\talias \"context\"\n)\nfunc X(){fmt.Println(alias.Background())}\n")
	writeGo(t, dir, "x_test.go", "package tmp\nimport \"net/http\"\nvar _ = http.MethodGet\n")
	writeGo(t, filepath.Join(dir, "sub"), "y.go", "package sub\nimport \"net/http\"\nvar _ = http.MethodGet\n")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("net/http"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, TransportImportForbidden, "test files, subdirs and non-Go files are ignored")
}

func TestAssertNoDirectImportsReportsViolation(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "x.go", "package tmp\nimport _ \"modernc.org/sqlite\"\n")

	rec := &recordingT{TB: t}
	AssertNoDirectImports(rec, dir, DriverImportForbidden, "no drivers")
	if !strings.Contains(rec.msg, "modernc.org/sqlite (in x.go)") || !strings.Contains(rec.msg, "no drivers") {
		t.Fatalf("unexpected failure message %q", rec.msg)
	}
}

func TestAssertNoDirectImportsBadSource(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "broken.go", "package tmp\nimport (\n")

	rec := &recordingT{TB: t}
	AssertNoDirectImports(rec, dir, DriverImportForbidden, "parse")
	if !strings.HasPrefix(rec.msg, "read dir:") {
		t.Fatalf("expected parse failure, got %q", rec.msg)
	}
}

func TestAssertNoImportsUnderWalksTree(t *testing.T) {
	root := t.TempDir()
	writeGo(t, root, "a.go", "package a\nimport \"fmt\"\nvar _ = fmt.Sprint\n")
	writeGo(t, filepath.Join(root, "b", "c"), "c.go", "package c\nimport \"net/http\"\nvar _ = http.MethodGet\n")
	writeGo(t, filepath.Join(root, "_skip"), "s.go", "package s\nimport \"net/http\"\nvar _ = http.MethodGet\n")
	writeGo(t, filepath.Join(root, "testdata"), "d.go", "package d\nimport \"net/http\"\nvar _ = http.MethodGet\n")

	rec := &recordingT{TB: t}
	AssertNoImportsUnder(rec, root, TransportImportForbidden, "no transport")
	if !strings.Contains(rec.msg, "b/c: net/http (in c.go)") {
		t.Fatalf("expected nested violation, got %q", rec.msg)
	}
	if strings.Contains(rec.msg, "_skip") || strings.Contains(rec.msg, "testdata") {
		t.Fatalf("skipped directories were scanned: %q", rec.msg)
	}
}
