package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koyif/securevault/internal/config"
	"github.com/koyif/securevault/internal/lock"
	"github.com/koyif/securevault/internal/output"
)

// GateFunc returns the PIN gate without unlocking the vault.
type GateFunc func(ctx context.Context) (*lock.Gate, error)

// NewStatusCommand creates the status command
func NewStatusCommand(getCfg func() *config.Config, getSess SessionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show entry counts per category",
		Long:  "Display how many entries each category holds and whether the vault is encrypted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getCfg()

			sess, err := getSess(cmd.Context())
			if err != nil {
				return err
			}

			view := output.NewStatsView(sess.Store().Stats(), sess.Encrypted())
			text, err := output.FormatValue(view, cfg.Format)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
