// Package config loads crisprcat settings from defaults, an optional YAML
// file and CRISPRCAT_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"crisprcatalog/internal/blob"
	"crisprcatalog/internal/core"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CRISPRCAT_"

// DefaultPath is read when no config file is named. It may be absent.
const DefaultPath = "crisprcat.yaml"

// DefaultPort matches the port the catalog API has always listened on.
const DefaultPort = "3001"

// Config holds all crisprcat configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Blob    blob.Config   `yaml:"blob"`
	Log     LogConfig     `yaml:"log"`
	Catalog CatalogConfig `yaml:"catalog"`
	Client  ClientConfig  `yaml:"client"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            string   `yaml:"port"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	ReadTimeout     string   `yaml:"read_timeout"`
	WriteTimeout    string   `yaml:"write_timeout"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
}

// StorageConfig selects the relational store.
type StorageConfig struct {
	Driver      string `yaml:"driver"` // memory, sqlite, postgres
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// CatalogConfig tunes the data access layer.
type CatalogConfig struct {
	FetchConcurrency int `yaml:"fetch_concurrency"`
}

// ClientConfig is used by the shell and other API consumers.
type ClientConfig struct {
	APIURL  string `yaml:"api_url"`
	Timeout string `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			AllowedOrigins:  []string{"*"},
			ReadTimeout:     "15s",
			WriteTimeout:    "30s",
			ShutdownTimeout: "10s",
		},
		Storage: StorageConfig{
			Driver:      string(core.StorageSQLite),
			SQLitePath:  "data/crisprcatalog.db",
			PostgresDSN: "postgres://localhost/crisprcatalog?sslmode=disable",
		},
		Blob: blob.Config{
			Driver: blob.DriverFilesystem,
			FSRoot: "data/blobs",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Catalog: CatalogConfig{
			FetchConcurrency: 4,
		},
		Client: ClientConfig{
			APIURL:  "http://localhost:" + DefaultPort,
			Timeout: "10s",
		},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path reads DefaultPath if it exists; a named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment values obtained through lookup. PORT is
// honoured when CRISPRCAT_SERVER_PORT is unset.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.Port = v
	}
	str("SERVER_HOST", &c.Server.Host)
	str("SERVER_PORT", &c.Server.Port)
	if v, ok := lookup(EnvPrefix + "SERVER_ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("STORAGE_SQLITE_PATH", &c.Storage.SQLitePath)
	str("STORAGE_POSTGRES_DSN", &c.Storage.PostgresDSN)
	if v, ok := lookup(EnvPrefix + "BLOB_DRIVER"); ok && v != "" {
		c.Blob.Driver = blob.Driver(v)
	}
	str("BLOB_FS_ROOT", &c.Blob.FSRoot)
	str("BLOB_S3_BUCKET", &c.Blob.S3.Bucket)
	str("BLOB_S3_REGION", &c.Blob.S3.Region)
	str("BLOB_S3_ENDPOINT", &c.Blob.S3.Endpoint)
	str("BLOB_S3_ACCESS_KEY_ID", &c.Blob.S3.AccessKeyID)
	str("BLOB_S3_SECRET_ACCESS_KEY", &c.Blob.S3.SecretAccessKey)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("API_URL", &c.Client.APIURL)
	if v, ok := lookup(EnvPrefix + "FETCH_CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sFETCH_CONCURRENCY: %w", EnvPrefix, err)
		}
		c.Catalog.FetchConcurrency = n
	}
	return nil
}

var (
	validStorageDrivers = []string{string(core.StorageMemory), string(core.StorageSQLite), string(core.StoragePostgres)}
	validBlobDrivers    = []blob.Driver{blob.DriverFilesystem, blob.DriverMemory, blob.DriverS3}
	validLogFormats     = []string{"json", "console"}
)

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !slices.Contains(validStorageDrivers, c.Storage.Driver) {
		return fmt.Errorf("invalid storage driver: %q (valid: %v)", c.Storage.Driver, validStorageDrivers)
	}
	if c.Blob.Driver != "" && !slices.Contains(validBlobDrivers, c.Blob.Driver) {
		return fmt.Errorf("invalid blob driver: %q (valid: %v)", c.Blob.Driver, validBlobDrivers)
	}
	if c.Blob.Driver == blob.DriverS3 && c.Blob.S3.Bucket == "" {
		return errors.New("blob driver s3 requires blob.s3.bucket")
	}
	if !slices.Contains(validLogFormats, c.Log.Format) {
		return fmt.Errorf("invalid log format: %q (valid: %v)", c.Log.Format, validLogFormats)
	}
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %q", c.Server.Port)
	}
	if c.Catalog.FetchConcurrency < 1 {
		return fmt.Errorf("catalog.fetch_concurrency must be positive, got %d", c.Catalog.FetchConcurrency)
	}
	for _, d := range []struct{ name, raw string }{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"client.timeout", c.Client.Timeout},
	} {
		if _, err := parseDuration(d.raw); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// Timeouts returns the parsed read, write and shutdown timeouts. Unparseable
// values fall back to zero; Validate reports them.
func (s ServerConfig) Timeouts() (read, write, shutdown time.Duration) {
	read, _ = parseDuration(s.ReadTimeout)
	write, _ = parseDuration(s.WriteTimeout)
	shutdown, _ = parseDuration(s.ShutdownTimeout)
	return read, write, shutdown
}

// HTTPTimeout returns the parsed client timeout.
func (c ClientConfig) HTTPTimeout() time.Duration {
	d, _ := parseDuration(c.Timeout)
	return d
}

// StorageOptions converts the storage section for core.OpenStore.
func (s StorageConfig) StorageOptions() core.StorageOptions {
	return core.StorageOptions{
		Driver:      core.StorageDriver(s.Driver),
		SQLitePath:  s.SQLitePath,
		PostgresDSN: s.PostgresDSN,
	}
}

func parseDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
