package sqlbundle

import (
	"strings"
	"testing"
)

func TestSplitStatementsDropsCommentsAndBlankLines(t *testing.T) {
	ddl := "-- header\nCREATE TABLE a (\n  id TEXT\n);\n\n-- trailing\nCREATE INDEX b ON a (id);\nSELECT 1"
	stmts := SplitStatements(ddl)
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(stmts), stmts)
	}
	if !strings.HasPrefix(stmts[0], "CREATE TABLE a") || !strings.HasSuffix(stmts[0], ");") {
		t.Fatalf("unexpected first statement %q", stmts[0])
	}
	if stmts[2] != "SELECT 1" {
		t.Fatalf("expected unterminated tail kept, got %q", stmts[2])
	}
}

func TestBundlesDeclareBothTables(t *testing.T) {
	for name, ddl := range map[string]string{"sqlite": SQLite(), "postgres": Postgres()} {
		stmts := SplitStatements(ddl)
		if len(stmts) != 4 {
			t.Fatalf("%s: expected 4 statements, got %d", name, len(stmts))
		}
		for _, table := range []string{"pathogens", "target_sites"} {
			if !strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS "+table) {
				t.Fatalf("%s: missing table %s", name, table)
			}
		}
	}
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	cases := map[string]string{
		"coli":    "%coli%",
		"50%":     `%50\%%`,
		"a_b":     `%a\_b%`,
		`back\sl`: `%back\\sl%`,
		"":        "%%",
	}
	for in, want := range cases {
		if got := ContainsPattern(in); got != want {
			t.Fatalf("ContainsPattern(%q) = %q, want %q", in, got, want)
		}
	}
}
