package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/koyif/securevault/internal/lock"
	"github.com/koyif/securevault/internal/passgen"
	"github.com/koyif/securevault/internal/persistence/backend"
	"github.com/koyif/securevault/internal/vault"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "VAULT"

// Config holds all configuration for the vault CLI
type Config struct {
	// ConfigPath is the path to the configuration file
	ConfigPath string `mapstructure:"-"`

	// Verbose enables debug logging
	Verbose bool `mapstructure:"verbose"`

	// Format specifies the output format (text, json, yaml)
	Format string `mapstructure:"format"`

	// Environment selects the core logger profile (development, production)
	Environment string `mapstructure:"environment"`

	Storage   StorageConfig   `mapstructure:"storage"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Unlock    UnlockConfig    `mapstructure:"unlock"`

	// ImportPolicy is the default policy for backup import
	ImportPolicy string `mapstructure:"import_policy"`

	// PIN unlocks the vault without prompting. Prefer the VAULT_PIN variable to a file.
	PIN string `mapstructure:"pin"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DBPath string `mapstructure:"db_path"`
	DSN    string `mapstructure:"dsn"`
}

// GeneratorConfig holds password generator defaults.
type GeneratorConfig struct {
	Length    int  `mapstructure:"length"`
	Numbers   bool `mapstructure:"numbers"`
	Symbols   bool `mapstructure:"symbols"`
	Uppercase bool `mapstructure:"uppercase"`
}

// UnlockConfig bounds PIN attempts.
type UnlockConfig struct {
	AttemptsPerMinute int `mapstructure:"attempts_per_minute"`
	Burst             int `mapstructure:"burst"`
}

// Dir returns the default configuration and data directory.
func Dir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".securevault")
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	dir := Dir()
	gen := passgen.DefaultOptions()
	limits := lock.DefaultLimits()

	return &Config{
		Verbose:     false,
		Format:      "text",
		Environment: "production",
		Storage: StorageConfig{
			Driver: backend.DriverFile,
			Path:   filepath.Join(dir, "data"),
			DBPath: filepath.Join(dir, "vault.db"),
		},
		Generator: GeneratorConfig{
			Length:    gen.Length,
			Numbers:   gen.UseNumbers,
			Symbols:   gen.UseSymbols,
			Uppercase: gen.UseUppercase,
		},
		Unlock: UnlockConfig{
			AttemptsPerMinute: limits.AttemptsPerMinute,
			Burst:             limits.Burst,
		},
		ImportPolicy: string(vault.ImportReplace),
	}
}

// Load loads configuration from file, environment variables, and a .env file.
// Priority (highest to lowest): CLI flags (applied by the caller) > Environment variables >
// .env file > Config file > Defaults
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
		}
		cfg.ConfigPath = configPath
	} else {
		dir := Dir()
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		cfg.ConfigPath = filepath.Join(dir, "config.yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		logrus.Debug("No config file found, using defaults")
	} else {
		logrus.Debugf("Using config file: %s", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override nested values.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("format", cfg.Format)
	v.SetDefault("environment", cfg.Environment)
	v.SetDefault("storage.driver", cfg.Storage.Driver)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.db_path", cfg.Storage.DBPath)
	v.SetDefault("storage.dsn", cfg.Storage.DSN)
	v.SetDefault("generator.length", cfg.Generator.Length)
	v.SetDefault("generator.numbers", cfg.Generator.Numbers)
	v.SetDefault("generator.symbols", cfg.Generator.Symbols)
	v.SetDefault("generator.uppercase", cfg.Generator.Uppercase)
	v.SetDefault("unlock.attempts_per_minute", cfg.Unlock.AttemptsPerMinute)
	v.SetDefault("unlock.burst", cfg.Unlock.Burst)
	v.SetDefault("import_policy", cfg.ImportPolicy)
	v.SetDefault("pin", "")
}

// loadDotEnv reads VAULT_ENV_FILE, or .env in the working directory, into the process
// environment. Variables that are already set win.
func loadDotEnv() error {
	path := os.Getenv(EnvPrefix + "_ENV_FILE")
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}

	logrus.Debugf("Loaded environment from %s", path)

	return nil
}

// EnsureDirectories ensures that all necessary directories exist
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.ConfigPath)}

	switch c.Storage.Driver {
	case backend.DriverFile:
		dirs = append(dirs, c.Storage.Path)
	case backend.DriverSQLite:
		dirs = append(dirs, filepath.Dir(c.Storage.DBPath))
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// ValidateFormat validates the output format
func (c *Config) ValidateFormat() error {
	switch c.Format {
	case "text", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("invalid format %q, must be one of: text, json, yaml", c.Format)
	}
}

// ValidateStorage validates the storage settings for the selected driver.
func (c *Config) ValidateStorage() error {
	switch c.Storage.Driver {
	case backend.DriverFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the file driver")
		}
	case backend.DriverSQLite:
		if c.Storage.DBPath == "" {
			return fmt.Errorf("storage.db_path is required for the sqlite driver")
		}
	case backend.DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	case backend.DriverMemory:
	default:
		return fmt.Errorf("invalid storage driver %q, must be one of: %s",
			c.Storage.Driver, strings.Join(backend.Drivers(), ", "))
	}
	return nil
}

// Backend returns the persistence settings for backend.Open.
func (c *Config) Backend() backend.Config {
	return backend.Config{
		Driver: c.Storage.Driver,
		Path:   c.Storage.Path,
		DBPath: c.Storage.DBPath,
		DSN:    c.Storage.DSN,
	}
}

// GeneratorOptions returns the generator defaults with the length clamped to the
// supported range.
func (c *Config) GeneratorOptions() passgen.Options {
	return passgen.Options{
		Length:       passgen.ClampLength(c.Generator.Length),
		UseNumbers:   c.Generator.Numbers,
		UseSymbols:   c.Generator.Symbols,
		UseUppercase: c.Generator.Uppercase,
	}
}

// UnlockLimits returns the PIN attempt limits.
func (c *Config) UnlockLimits() lock.Limits {
	return lock.Limits{
		AttemptsPerMinute: c.Unlock.AttemptsPerMinute,
		Burst:             c.Unlock.Burst,
	}
}
