package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/koyif/securevault/internal/config"
	"github.com/koyif/securevault/internal/tip"
	"github.com/koyif/securevault/internal/tui"
)

// NewTUICommand creates the tui command
func NewTUICommand(getCfg func() *config.Config, getSess SessionFunc, getTipper func() *tip.Resilient) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch the Terminal User Interface",
		Long:  "Start the interactive Terminal User Interface for browsing and managing entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getCfg()
			ctx := cmd.Context()

			sess, err := getSess(ctx)
			if err != nil {
				return err
			}

			model := tui.NewModel(ctx, sess.Store(), cfg.GeneratorOptions(), getTipper())

			p := tea.NewProgram(
				model,
				tea.WithAltScreen(),
				tea.WithMouseCellMotion(),
			)

			if _, err := p.Run(); err != nil {
				return fmt.Errorf("TUI error: %w", err)
			}

			return nil
		},
	}
}
