package commands

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/koyif/securevault/internal/backup"
	"github.com/koyif/securevault/internal/config"
	"github.com/koyif/securevault/internal/output"
	"github.com/koyif/securevault/internal/vault"
)

// NewBackupCommands returns the backup command group
func NewBackupCommands(getCfg func() *config.Config, getSess SessionFunc) *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Export and import the vault",
		Long:  "Export every entry to a JSON backup file, or import entries from one",
	}

	backupCmd.AddCommand(newBackupExportCmd(getCfg, getSess))
	backupCmd.AddCommand(newBackupImportCmd(getCfg, getSess))

	return backupCmd
}

// newBackupExportCmd creates the export command
func newBackupExportCmd(getCfg func() *config.Config, getSess SessionFunc) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all entries",
		Long:  "Write every entry, passwords included, to a JSON file. Use --output - for standard output",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := getSess(cmd.Context())
			if err != nil {
				return err
			}
			entries := sess.Store().List()

			if path == "-" {
				data, err := backup.Export(entries)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			if path == "" {
				path = backup.FileName(time.Now())
			}

			if err := backup.WriteFile(path, entries); err != nil {
				return err
			}

			logrus.Debugf("Backup written: path=%s, entries=%d", path, len(entries))
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d entries to %s\n", len(entries), path)
			fmt.Fprintln(cmd.OutOrStdout(), "  The backup holds passwords in clear. Keep it somewhere safe.")

			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "output", "o", "", "Backup file (default securevault-backup-<date>.json)")

	return cmd
}

// newBackupImportCmd creates the import command
func newBackupImportCmd(getCfg func() *config.Config, getSess SessionFunc) *cobra.Command {
	var (
		policyFlag string
		noConfirm  bool
	)

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import entries from a backup",
		Long: `Import entries from a JSON backup file.

Policies:
  replace    discard the current entries and keep the imported ones (default)
  keep       merge; on an id clash the existing entry wins
  overwrite  merge; on an id clash the imported entry wins
  reject     merge; fail without changes if any id clashes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getCfg()
			ctx := cmd.Context()

			raw := cfg.ImportPolicy
			if cmd.Flags().Changed("policy") {
				raw = policyFlag
			}
			policy, err := vault.ParseImportPolicy(raw)
			if err != nil {
				return describe(err)
			}

			entries, err := backup.ReadFile(args[0])
			if err != nil {
				return describe(err)
			}

			sess, err := getSess(ctx)
			if err != nil {
				return err
			}
			store := sess.Store()

			if policy == vault.ImportReplace && store.Len() > 0 {
				confirmed, err := confirmAction(
					fmt.Sprintf("Replace %d existing entries with %d imported ones?", store.Len(), len(entries)),
					"Existing entries not in the backup will be removed.",
					noConfirm,
				)
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled")
					return nil
				}
			}

			result, err := store.Import(ctx, entries, policy)
			if err != nil {
				return describe(err)
			}

			logrus.Debugf("Backup imported: path=%s, policy=%s", args[0], policy)

			if cfg.Format != "text" {
				text, err := output.FormatValue(result, cfg.Format)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %s\n", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", result)

			return nil
		},
	}

	cmd.Flags().StringVar(&policyFlag, "policy", "", "Import policy: replace, keep, overwrite, reject")
	cmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")

	return cmd
}
