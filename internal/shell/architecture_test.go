package shell

import (
	"testing"

	"crisprcatalog/testutil"
)

// The shell only sees the catalog through the HTTP client.
func TestShellUsesAPIOnly(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.Any(
		testutil.DriverImportForbidden,
		testutil.PersistenceImportForbidden,
		testutil.Prefix("crisprcatalog/internal/core"),
		testutil.Prefix("crisprcatalog/internal/adapters"),
	), "shell must go through the API")
}
