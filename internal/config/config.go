package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the data root.
const FileName = "budgetbook.yaml"

// Environment overrides.
const (
	EnvDBPath        = "BUDGETBOOK_DB_PATH"
	EnvStorageDriver = "BUDGETBOOK_STORAGE_DRIVER"
	EnvLogLevel      = "BUDGETBOOK_LOG_LEVEL"
	EnvAddr          = "BUDGETBOOK_ADDR"
	EnvWorkers       = "BUDGETBOOK_WORKERS"
	EnvSchedule      = "BUDGETBOOK_IMPORT_SCHEDULE"
	EnvS3AccessKey   = "BUDGETBOOK_S3_ACCESS_KEY_ID"
	EnvS3SecretKey   = "BUDGETBOOK_S3_SECRET_ACCESS_KEY"
)

// Config represents the top-level budgetbook.yaml configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Server  ServerConfig  `yaml:"server"`
	Backup  BackupConfig  `yaml:"backup,omitempty"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "memory"
	Path   string `yaml:"path"`   // relative paths resolve against the data root
}

// IngestConfig tunes statement parsing.
type IngestConfig struct {
	SanityCeiling  int64  `yaml:"sanity_ceiling"`
	HeaderScanRows int    `yaml:"header_scan_rows"`
	Workers        int    `yaml:"workers"`
	AutoDetectText bool   `yaml:"auto_detect_text"`
	Inbox          string `yaml:"inbox"`
	// Schedule is a cron expression for importing the inbox while serving.
	// Empty disables scheduled imports.
	Schedule string `yaml:"schedule,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// BackupConfig configures remote backup targets (s3:// and gs:// URLs).
type BackupConfig struct {
	S3Endpoint string `yaml:"s3_endpoint,omitempty"` // S3-compatible endpoint; empty means AWS
	S3Region   string `yaml:"s3_region,omitempty"`

	// Static S3 credentials, from the environment only.
	S3AccessKeyID     string `yaml:"-"`
	S3SecretAccessKey string `yaml:"-"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// Default returns a Config with sensible defaults for a new data root.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "data/budgetbook.db",
		},
		Ingest: IngestConfig{
			SanityCeiling:  1_000_000,
			HeaderScanRows: 20,
			Workers:        4,
			Inbox:          "import",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a budgetbook.yaml file from disk. Settings absent from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("invalid storage.driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "sqlite" && c.Storage.Path == "" {
		return errors.New("storage.path is required for sqlite")
	}
	if c.Ingest.SanityCeiling <= 0 {
		return fmt.Errorf("ingest.sanity_ceiling must be positive, got %d", c.Ingest.SanityCeiling)
	}
	if c.Ingest.HeaderScanRows <= 0 {
		return fmt.Errorf("ingest.header_scan_rows must be positive, got %d", c.Ingest.HeaderScanRows)
	}
	if c.Ingest.Workers <= 0 {
		return fmt.Errorf("ingest.workers must be positive, got %d", c.Ingest.Workers)
	}
	if c.Ingest.Schedule != "" {
		if _, err := cron.ParseStandard(c.Ingest.Schedule); err != nil {
			return fmt.Errorf("invalid ingest.schedule %q: %w", c.Ingest.Schedule, err)
		}
	}
	return nil
}

// LoadEnv reads <root>/.env, if present, into the process environment and
// applies the BUDGETBOOK_* overrides. Variables already set win over .env.
func (c *Config) LoadEnv(root string) error {
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return c.ApplyEnv(os.LookupEnv)
}

// ApplyEnv overrides settings from lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		c.Storage.Path = v
	}
	if v, ok := lookup(EnvStorageDriver); ok && v != "" {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvWorkers, err)
		}
		c.Ingest.Workers = n
	}
	if v, ok := lookup(EnvSchedule); ok {
		c.Ingest.Schedule = v
	}
	if v, ok := lookup(EnvS3AccessKey); ok {
		c.Backup.S3AccessKeyID = v
	}
	if v, ok := lookup(EnvS3SecretKey); ok {
		c.Backup.S3SecretAccessKey = v
	}
	return c.Validate()
}

// DBPath returns the database path resolved against root.
func (c *Config) DBPath(root string) string {
	return resolve(root, c.Storage.Path)
}

// InboxDir returns the statement inbox resolved against root.
func (c *Config) InboxDir(root string) string {
	return resolve(root, c.Ingest.Inbox)
}

func resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
