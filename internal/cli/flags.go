package cli

import (
	"crisprcatalog/internal/blob"
	"crisprcatalog/internal/config"

	"github.com/spf13/cobra"
)

// storageFlags override the storage section for commands that open the
// relational store.
type storageFlags struct {
	driver      string
	sqlitePath  string
	postgresDSN string
}

func (f *storageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.driver, "storage", "", "storage driver (memory|sqlite|postgres)")
	cmd.Flags().StringVar(&f.sqlitePath, "sqlite-path", "", "sqlite database file")
	cmd.Flags().StringVar(&f.postgresDSN, "postgres-dsn", "", "postgres connection string")
}

func (f *storageFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("storage") {
		cfg.Storage.Driver = f.driver
	}
	if flags.Changed("sqlite-path") {
		cfg.Storage.SQLitePath = f.sqlitePath
	}
	if flags.Changed("postgres-dsn") {
		cfg.Storage.PostgresDSN = f.postgresDSN
	}
}

// blobFlags override the blob section for commands that touch snapshots.
type blobFlags struct {
	driver string
	fsRoot string
	bucket string
}

func (f *blobFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.driver, "blob", "", "blob driver (memory|fs|s3)")
	cmd.Flags().StringVar(&f.fsRoot, "blob-root", "", "filesystem blob root")
	cmd.Flags().StringVar(&f.bucket, "bucket", "", "s3 bucket")
}

func (f *blobFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("blob") {
		cfg.Blob.Driver = blob.Driver(f.driver)
	}
	if flags.Changed("blob-root") {
		cfg.Blob.FSRoot = f.fsRoot
	}
	if flags.Changed("bucket") {
		cfg.Blob.S3.Bucket = f.bucket
	}
}
