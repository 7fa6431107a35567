package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ning0612/drivesync/internal/core/checksum"
	"github.com/Ning0612/drivesync/internal/domain"
	"github.com/Ning0612/drivesync/internal/logger"
)

// Config represents the complete configuration for drivesync
type Config struct {
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Checksum  ChecksumConfig  `mapstructure:"checksum"`
	Store     StoreConfig     `mapstructure:"store"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
}

// OptimizerConfig tunes the optimization pipelines
type OptimizerConfig struct {
	// MetaMode enables the per-directory metadata file
	MetaMode       bool   `mapstructure:"meta_mode"`
	MetaFileName   string `mapstructure:"meta_file_name"`
	InlineMetadata bool   `mapstructure:"inline_metadata"`

	// MaxRenameRounds bounds the directory rename fixed point
	MaxRenameRounds int `mapstructure:"max_rename_rounds"`

	// Trace logs every pass delta at debug level
	Trace bool `mapstructure:"trace"`
}

// ChecksumConfig selects how content checksums are computed
type ChecksumConfig struct {
	Algorithm string `mapstructure:"algorithm"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
}

// StoreConfig locates the checksum store and run history
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// StorageType is the storage backend used for content search
type StorageType string

const (
	StorageNone   StorageType = "none"
	StorageLocal  StorageType = "local"
	StorageGDrive StorageType = "gdrive"
	StorageMinio  StorageType = "minio"
)

// IsValid checks if the storage type is a known value
func (t StorageType) IsValid() bool {
	switch t {
	case StorageNone, StorageLocal, StorageGDrive, StorageMinio:
		return true
	}
	return false
}

// StorageConfig configures the storage backend
type StorageConfig struct {
	Type StorageType `mapstructure:"type"`

	// Root is the local directory, Drive folder path, or object key prefix
	Root string `mapstructure:"root"`

	// Trash is the trash search scope (empty disables the trash lookup)
	Trash string `mapstructure:"trash"`

	GDrive GDriveConfig `mapstructure:"gdrive"`
	Minio  MinioConfig  `mapstructure:"minio"`
}

// GDriveConfig holds the OAuth client of the Google Drive backend
type GDriveConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TokenPath    string `mapstructure:"token_path"`
}

// MinioConfig holds the connection of an S3-compatible backend
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig configures the rotated log file
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	if c.Optimizer.MaxRenameRounds <= 0 {
		return fmt.Errorf("%w: optimizer.max_rename_rounds must be positive", domain.ErrConfigInvalid)
	}
	if name := c.Optimizer.MetaFileName; name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid optimizer.meta_file_name: %q", domain.ErrConfigInvalid, name)
	}

	if !checksum.IsSupported(checksum.Algorithm(c.Checksum.Algorithm)) {
		return fmt.Errorf("%w: unsupported checksum.algorithm: %s", domain.ErrConfigInvalid, c.Checksum.Algorithm)
	}
	if c.Checksum.MaxSizeMB < 0 {
		return fmt.Errorf("%w: checksum.max_size_mb cannot be negative", domain.ErrConfigInvalid)
	}

	if c.Store.Path == "" {
		return fmt.Errorf("%w: store.path cannot be empty", domain.ErrConfigInvalid)
	}

	if err := c.Storage.validate(); err != nil {
		return err
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: invalid log.level: %s", domain.ErrConfigInvalid, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: invalid log.format: %s", domain.ErrConfigInvalid, c.Log.Format)
	}
	if c.Log.File.MaxSizeMB < 0 || c.Log.File.MaxAgeDays < 0 || c.Log.File.MaxBackups < 0 {
		return fmt.Errorf("%w: log.file limits cannot be negative", domain.ErrConfigInvalid)
	}

	return nil
}

func (s StorageConfig) validate() error {
	if !s.Type.IsValid() {
		return fmt.Errorf("%w: invalid storage.type: %s", domain.ErrConfigInvalid, s.Type)
	}

	switch s.Type {
	case StorageLocal:
		if s.Root == "" {
			return fmt.Errorf("%w: local storage has no root path", domain.ErrConfigInvalid)
		}
	case StorageGDrive:
		if s.GDrive.ClientID == "" || s.GDrive.ClientSecret == "" {
			return fmt.Errorf("%w: gdrive storage requires client_id and client_secret", domain.ErrConfigInvalid)
		}
	case StorageMinio:
		if s.Minio.Endpoint == "" || s.Minio.Bucket == "" {
			return fmt.Errorf("%w: minio storage requires endpoint and bucket", domain.ErrConfigInvalid)
		}
	}
	return nil
}

// ChecksumAlgorithm returns the configured algorithm
func (c *Config) ChecksumAlgorithm() checksum.Algorithm {
	return checksum.Algorithm(c.Checksum.Algorithm)
}

// ChecksumOptions returns calculator options for the configured size limit
func (c *Config) ChecksumOptions() checksum.Options {
	opts := checksum.DefaultOptions()
	opts.MaxSize = int64(c.Checksum.MaxSizeMB) * 1024 * 1024
	return opts
}

// LoggerConfig converts the log section to a logger configuration.
// Logs go to stderr so stdout stays free for command output.
func (c LogConfig) LoggerConfig() logger.Config {
	cfg := logger.Config{
		Level:   logger.ParseLevel(c.Level),
		Format:  logger.ParseFormat(c.Format),
		Outputs: []logger.OutputConfig{{Type: logger.OutputStderr}},
	}
	if c.File.Path != "" {
		cfg.Outputs = append(cfg.Outputs, logger.OutputConfig{Type: logger.OutputFile})
		cfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       c.File.Path,
			MaxSizeMB:  c.File.MaxSizeMB,
			MaxAgeDays: c.File.MaxAgeDays,
			MaxBackups: c.File.MaxBackups,
			Compress:   c.File.Compress,
		}
	}
	return cfg
}

// DefaultDataDir returns the default directory for the store
func DefaultDataDir() string {
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "drivesync")
	}
	return ".drivesync"
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	// Expand ~ to home directory
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	// Expand environment variables
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
