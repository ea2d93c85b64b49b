package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/koyif/securevault/internal/commands"
	"github.com/koyif/securevault/internal/config"
	"github.com/koyif/securevault/internal/logger"
	"github.com/koyif/securevault/internal/tip"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"

	cfg    *config.Config
	env    *commands.Env
	tipper *tip.Resilient

	configPath string
	verbose    bool
	format     string
	driver     string
	pin        string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vault",
	Short: "SecureVault - a personal password vault",
	Long: `SecureVault keeps website, email and username credentials in a local vault.
Set a PIN to encrypt entries at rest, generate strong passwords,
and export or import JSON backups.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cmd.Flags().Changed("verbose") {
			cfg.Verbose = verbose
		}
		if cmd.Flags().Changed("format") {
			cfg.Format = format
		}
		if cmd.Flags().Changed("driver") {
			cfg.Storage.Driver = driver
		}
		if cmd.Flags().Changed("pin") {
			cfg.PIN = pin
		}

		if err := cfg.ValidateFormat(); err != nil {
			return err
		}
		if err := cfg.ValidateStorage(); err != nil {
			return err
		}

		if cfg.Verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.InfoLevel)
		}

		logrus.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: true,
			DisableColors:    false,
		})

		if err := logger.Initialize(cfg.Environment, cfg.Verbose); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ctx := context.WithValue(cmd.Context(), logger.OperationIDKey, uuid.NewString())
		ctx = context.WithValue(ctx, logger.CommandKey, cmd.CommandPath())
		cmd.SetContext(ctx)

		tipper = tip.NewResilient(tip.NewStatic(), tip.DefaultTimeout, logger.WithContext(ctx))

		if err := cfg.EnsureDirectories(); err != nil {
			return fmt.Errorf("failed to create directories: %w", err)
		}

		logger.WithContext(ctx).Debug("configuration loaded", configFields(cfg)...)
		logrus.Debugf("Configuration loaded: driver=%s, format=%s", cfg.Storage.Driver, cfg.Format)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: $HOME/.securevault/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "Output format (text, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Storage driver (file, sqlite, postgres, memory)")
	rootCmd.PersistentFlags().StringVar(&pin, "pin", "", "Vault PIN, for scripts. Prefer VAULT_PIN")

	rootCmd.PersistentFlags().Lookup("format").Usage = "Output format [env: VAULT_FORMAT]"
	rootCmd.PersistentFlags().Lookup("driver").Usage = "Storage driver: file, sqlite, postgres, memory [env: VAULT_STORAGE_DRIVER]"
	rootCmd.PersistentFlags().Lookup("pin").Usage = "Vault PIN, for scripts [env: VAULT_PIN]"

	addCommands()
}

// addCommands adds all subcommands to the root command
func addCommands() {
	// Use closures to provide lazy access to cfg, the vault and the tip source
	getCfg := func() *config.Config { return cfg }
	getTipper := func() *tip.Resilient { return tipper }

	env = commands.NewEnv(getCfg, nil)

	rootCmd.AddCommand(commands.NewEntryCommands(getCfg, env.Session))
	rootCmd.AddCommand(commands.NewGenerateCommand(getCfg))
	rootCmd.AddCommand(commands.NewBackupCommands(getCfg, env.Session))
	rootCmd.AddCommand(commands.NewPINCommands(getCfg, env.Gate, env.Session))
	rootCmd.AddCommand(commands.NewStatusCommand(getCfg, env.Session))
	rootCmd.AddCommand(commands.NewDoctorCommand(getCfg, env.Backend, version))
	rootCmd.AddCommand(commands.NewTipCommand(getTipper))
	rootCmd.AddCommand(commands.NewTUICommand(getCfg, env.Session, getTipper))
	rootCmd.AddCommand(commands.NewVersionCommand(getCfg, version, commit, buildDate))
}

// configFields renders the effective settings for the debug log, redacting secrets.
func configFields(c *config.Config) []zap.Field {
	settings := []struct {
		name  string
		value string
	}{
		{"format", c.Format},
		{"environment", c.Environment},
		{"driver", c.Storage.Driver},
		{"path", c.Storage.Path},
		{"db_path", c.Storage.DBPath},
		{"dsn", c.Storage.DSN},
		{"import_policy", c.ImportPolicy},
		{"pin", c.PIN},
	}

	fields := make([]zap.Field, 0, len(settings))
	for _, s := range settings {
		value := s.value
		if logger.IsSensitiveField(s.name) && value != "" {
			value = "[REDACTED]"
		}
		fields = append(fields, zap.String(s.name, value))
	}
	return fields
}

func main() {
	err := rootCmd.Execute()
	if cerr := env.Close(); cerr != nil && err == nil {
		err = cerr
	}
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
