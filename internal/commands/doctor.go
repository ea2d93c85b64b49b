package commands

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/koyif/securevault/internal/config"
	"github.com/koyif/securevault/internal/health"
	"github.com/koyif/securevault/internal/lock"
	"github.com/koyif/securevault/internal/output"
	"github.com/koyif/securevault/internal/persistence"
)

// BackendFunc returns the raw storage port and PIN gate without unlocking the vault.
type BackendFunc func(ctx context.Context) (persistence.Port, *lock.Gate, error)

// NewDoctorCommand creates the doctor command
func NewDoctorCommand(getCfg func() *config.Config, getBackend BackendFunc, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the vault backend",
		Long:  "Run diagnostic checks on storage, the PIN record and the backend connection without unlocking the vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getCfg()
			ctx := cmd.Context()

			port, gate, err := getBackend(ctx)
			if err != nil {
				return err
			}

			report := health.NewVaultService(version, port, gate).CheckHealth(ctx)

			out := cmd.OutOrStdout()
			if cfg.Format == "text" {
				fmt.Fprintf(out, "Driver: %s\n", cfg.Storage.Driver)
				for _, name := range report.Names() {
					check := report.Checks[name]
					fmt.Fprintf(out, "%s %-10s %s\n", statusMark(check.Status), name, check.Message)
				}
				fmt.Fprintf(out, "Overall: %s\n", report.Status)
			} else {
				text, err := output.FormatValue(report, cfg.Format)
				if err != nil {
					return fmt.Errorf("failed to format health report: %w", err)
				}
				fmt.Fprint(out, text)
			}

			if report.Status == health.StatusUnhealthy {
				return fmt.Errorf("vault backend is unhealthy")
			}
			return nil
		},
	}
}

func statusMark(s health.Status) string {
	switch s {
	case health.StatusHealthy:
		return color.GreenString("✓")
	case health.StatusDegraded:
		return color.YellowString("!")
	default:
		return color.RedString("✗")
	}
}
