package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koyif/securevault/internal/tip"
)

// NewTipCommand creates the tip command. It never touches the vault.
func NewTipCommand(getTipper func() *tip.Resilient) *cobra.Command {
	return &cobra.Command{
		Use:   "tip",
		Short: "Show a password security tip",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), getTipper().Tip(cmd.Context()))
			return nil
		},
	}
}
