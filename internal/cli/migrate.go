package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var storage storageFlags

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.Config()
			storage.apply(cmd, cfg)
			store, err := rootOpts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", cfg.Storage.Driver)
			return nil
		},
	}
	storage.register(cmd)

	return cmd
}
