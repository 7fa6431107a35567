package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Ning0612/drivesync/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. DRIVESYNC_STORAGE_MINIO_SECRET_KEY
const EnvPrefix = "DRIVESYNC"

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{
		".",
		"./configs",
	}

	// Add user config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "drivesync"))
	}

	// Add home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "drivesync"))
		paths = append(paths, filepath.Join(homeDir, ".drivesync"))
	}

	return paths
}

// newViper returns a viper instance with every key defaulted so that
// environment overrides apply even when the file omits a section
func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("optimizer.meta_mode", false)
	v.SetDefault("optimizer.meta_file_name", ".drive-meta")
	v.SetDefault("optimizer.inline_metadata", false)
	v.SetDefault("optimizer.max_rename_rounds", 100)
	v.SetDefault("optimizer.trace", false)

	v.SetDefault("checksum.algorithm", "md5")
	v.SetDefault("checksum.max_size_mb", 100)

	v.SetDefault("store.path", DefaultDataDir())

	v.SetDefault("storage.type", string(StorageNone))
	v.SetDefault("storage.root", "")
	v.SetDefault("storage.trash", "")
	v.SetDefault("storage.gdrive.client_id", "")
	v.SetDefault("storage.gdrive.client_secret", "")
	v.SetDefault("storage.gdrive.token_path", "")
	v.SetDefault("storage.minio.endpoint", "")
	v.SetDefault("storage.minio.access_key", "")
	v.SetDefault("storage.minio.secret_key", "")
	v.SetDefault("storage.minio.bucket", "")
	v.SetDefault("storage.minio.use_ssl", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size_mb", 10)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.compress", true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads and parses a configuration file
// If path is empty, searches default locations for config.yaml
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		// Use specific file
		v.SetConfigFile(path)
	} else {
		// Search default paths
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrConfigNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

// LoadOrDefault loads the config file at path, falling back to defaults and
// environment overrides when no file is given and none is found
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, domain.ErrConfigNotFound) && path == "" {
		return decode(newViper())
	}
	return cfg, err
}

// LoadFromString parses configuration from a YAML string
func LoadFromString(yamlContent string) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(yamlContent)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	cfg.Checksum.Algorithm = strings.ToLower(cfg.Checksum.Algorithm)
	cfg.Storage.Type = StorageType(strings.ToLower(string(cfg.Storage.Type)))
	cfg.Store.Path = ExpandPath(cfg.Store.Path)
	cfg.Log.File.Path = ExpandPath(cfg.Log.File.Path)
	cfg.Storage.GDrive.TokenPath = ExpandPath(cfg.Storage.GDrive.TokenPath)
	if cfg.Storage.Type == StorageLocal {
		cfg.Storage.Root = ExpandPath(cfg.Storage.Root)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
