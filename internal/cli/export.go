package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"crisprcatalog/internal/blob"
	"crisprcatalog/internal/core"
	"crisprcatalog/internal/export"

	"github.com/spf13/cobra"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	Format  string
	Output  string
	Publish bool
	Expiry  time.Duration

	storage storageFlags
	blob    blobFlags
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog as JSON or CSV",
		Long: `Export every pathogen and its target sites.

By default the snapshot is written to stdout. With --publish it is stored
in the configured blob store under exports/ and its key and download URL
are printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", string(export.FormatJSON), "snapshot format (json|csv)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&opts.Publish, "publish", false, "store the snapshot in the blob store")
	cmd.Flags().DurationVar(&opts.Expiry, "url-expiry", 15*time.Minute, "lifetime of the printed download URL")
	opts.storage.register(cmd)
	opts.blob.register(cmd)

	return cmd
}

func runExport(cmd *cobra.Command, rootOpts *RootOptions, opts *ExportOptions) error {
	format, err := export.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	cfg := rootOpts.Config()
	opts.storage.apply(cmd, cfg)
	opts.blob.apply(cmd, cfg)

	ctx := cmd.Context()
	store, err := rootOpts.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := core.NewService(store, core.WithFetchConcurrency(cfg.Catalog.FetchConcurrency))

	if opts.Publish {
		objects, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}
		return publish(ctx, cmd.OutOrStdout(), export.NewPublisher(svc, objects), objects, format, opts.Expiry)
	}

	pathogens, err := svc.ListPathogens(ctx)
	if err != nil {
		return err
	}
	if opts.Output == "" || opts.Output == "-" {
		return export.Write(cmd.OutOrStdout(), format, pathogens)
	}
	f, err := os.Create(opts.Output)
	if err != nil {
		return err
	}
	if err := export.Write(f, format, pathogens); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func publish(ctx context.Context, w io.Writer, p *export.Publisher, objects blob.Store, format export.Format, expiry time.Duration) error {
	info, err := p.Publish(ctx, format)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "published %s (%d bytes)\n", info.Key, info.Size)

	url, err := objects.PresignURL(ctx, info.Key, blob.SignedURLOptions{Expiry: expiry})
	switch {
	case errors.Is(err, blob.ErrUnsupported):
		return nil
	case err != nil:
		return fmt.Errorf("presign %s: %w", info.Key, err)
	}
	fmt.Fprintf(w, "url: %s\n", url)
	return nil
}

// SnapshotsOptions holds flags for the snapshots command.
type SnapshotsOptions struct {
	blob blobFlags
}

// NewSnapshotsCommand creates the snapshots command.
func NewSnapshotsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotsOptions{}

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List published export snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshots(cmd, rootOpts, opts)
		},
	}
	opts.blob.register(cmd)

	return cmd
}

func runSnapshots(cmd *cobra.Command, rootOpts *RootOptions, opts *SnapshotsOptions) error {
	cfg := rootOpts.Config()
	opts.blob.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	objects, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	infos, err := export.NewPublisher(nil, objects).Snapshots(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE\tPATHOGENS\tTARGETS\tMODIFIED")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			info.Key, info.Size,
			info.Metadata["pathogens"], info.Metadata["targets"],
			info.LastModified.UTC().Format(time.RFC3339),
		)
	}
	return tw.Flush()
}
