// Command crisprcat serves, exports and browses the CRISPR target-site catalog.
package main

import (
	"context"
	"os"

	"crisprcatalog/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
