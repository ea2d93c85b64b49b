package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/koyif/securevault/internal/config"
	"github.com/koyif/securevault/internal/output"
	"github.com/koyif/securevault/internal/passgen"
	"github.com/koyif/securevault/internal/session"
	"github.com/koyif/securevault/internal/vault"
)

// SessionFunc returns the unlocked vault session.
type SessionFunc func(ctx context.Context) (*session.Session, error)

// NewEntryCommands returns the entry command group
func NewEntryCommands(getCfg func() *config.Config, getSess SessionFunc) *cobra.Command {
	entryCmd := &cobra.Command{
		Use:     "entry",
		Short:   "Manage password entries",
		Long:    "Commands for managing website, email and username password entries",
		Aliases: []string{"entries", "e"},
	}

	entryCmd.AddCommand(newEntryAddCmd(getCfg, getSess))
	entryCmd.AddCommand(newEntryGetCmd(getCfg, getSess))
	entryCmd.AddCommand(newEntryListCmd(getCfg, getSess))
	entryCmd.AddCommand(newEntryUpdateCmd(getCfg, getSess))
	entryCmd.AddCommand(newEntryDeleteCmd(getCfg, getSess))

	return entryCmd
}

// newEntryAddCmd creates the add entry command
func newEntryAddCmd(getCfg func() *config.Config, getSess SessionFunc) *cobra.Command {
	var (
		categoryFlag string
		usernameFlag string
		passwordFlag string
		usecaseFlag  string
		remarkFlag   string
		generate     bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new entry",
		Long:  "Create a new entry with a category, username, password and optional usecase and remark",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getCfg()
			ctx := cmd.Context()

			draft := vault.Draft{
				Username: usernameFlag,
				Password: passwordFlag,
				Remark:   remarkFlag,
			}

			if generate && draft.Password == "" {
				pw, err := passgen.New(nil).Generate(cfg.GeneratorOptions())
				if err != nil {
					return fmt.Errorf("failed to generate password: %w", err)
				}
				draft.Password = pw
			}

			// Use flags if provided, otherwise prompt interactively
			if usernameFlag != "" {
				category, err := vault.ParseCategory(categoryFlag)
				if err != nil {
					return describe(err)
				}
				draft.Category = category

				if usecaseFlag != "" {
					usecase, err := vault.ParseUsecase(usecaseFlag)
					if err != nil {
						return describe(err)
					}
					draft.Usecase = usecase
				}
			} else {
				if categoryFlag != "" {
					category, err := vault.ParseCategory(categoryFlag)
					if err != nil {
						return describe(err)
					}
					draft.Category = category
				}
				if err := runEntryForm(&draft, true); err != nil {
					return err
				}
			}

			sess, err := getSess(ctx)
			if err != nil {
				return err
			}

			entry, err := sess.Store().Create(ctx, draft)
			if err != nil {
				return describe(err)
			}

			logrus.Debugf("Entry created: id=%s, category=%s", entry.ID, entry.Category)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Entry '%s' added to %s\n", entry.Username, entry.Category)
			fmt.Fprintf(out, "  ID: %s\n", entry.ID)
			if generate && passwordFlag == "" {
				fmt.Fprintf(out, "  Password: %s\n", entry.Password.Value)
			}

			return nil
		},
	}

	// Add flags for non-interactive mode
	cmd.Flags().StringVarP(&categoryFlag, "category", "c", "", "Category (website, email, username)")
	cmd.Flags().StringVarP(&usernameFlag, "username", "u", "", "Username or account identifier")
	cmd.Flags().StringVarP(&passwordFlag, "password", "p", "", "Password")
	cmd.Flags().StringVar(&usecaseFlag, "usecase", "", "Usecase (Default, Private, Gaming)")
	cmd.Flags().StringVar(&remarkFlag, "remark", "", "Optional remark")
	cmd.Flags().BoolVarP(&generate, "generate", "g", false, "Generate the password with the configured generator settings")

	return cmd
}

// newEntryGetCmd creates the get entry command
func newEntryGetCmd(getCfg func() *config.Config, getSess SessionFunc) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "get [ID]",
		Short: "Get an entry by ID",
		Long:  "Display an entry. The password is masked unless --reveal is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getCfg()

			sess, err := getSess(cmd.Context())
			if err != nil {
				return err
			}

			entry, err := sess.Store().Get(args[0])
			if err != nil {
				return describe(err)
			}

			text, err := output.FormatEntry(entry, cfg.Format, reveal)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&reveal, "reveal", "r", false, "Show the password in clear")

	return cmd
}

// newEntryListCmd creates the list entries command
func newEntryListCmd(getCfg func() *config.Config, getSess SessionFunc) *cobra.Command {
	var (
		categoryFlag string
		usecaseFlag  string
		search       string
		reveal       bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List entries",
		Long:    "List entries, optionally narrowed by category, usecase and a search over username and remark",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getCfg()

			var category vault.Category
			if categoryFlag != "" {
				c, err := vault.ParseCategory(categoryFlag)
				if err != nil {
					return describe(err)
				}
				category = c
			}

			usecase := vault.UsecaseAll
			if usecaseFlag != "" {
				u, err := vault.ParseUsecase(usecaseFlag)
				if err != nil {
					return describe(err)
				}
				usecase = u
			}

			sess, err := getSess(cmd.Context())
			if err != nil {
				return err
			}

			entries := filterEntries(sess.Store(), category, usecase, search)
			logrus.Debugf("Listing entries: category=%q, usecase=%s, search=%q, matched=%d",
				category, usecase, search, len(entries))

			text, err := output.FormatEntryList(entries, cfg.Format, reveal)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&categoryFlag, "category", "c", "", "Only list this category (website, email, username)")
	cmd.Flags().StringVar(&usecaseFlag, "usecase", "", "Only list this usecase (Default, Private, Gaming, all)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive match on username or remark")
	cmd.Flags().BoolVarP(&reveal, "reveal", "r", false, "Show passwords in clear")

	return cmd
}

// filterEntries applies the filter to one category, or to each category in display
// order when category is empty.
func filterEntries(store *vault.Store, category vault.Category, usecase vault.Usecase, search string) []vault.Entry {
	categories := vault.Categories()
	if category != "" {
		categories = []vault.Category{category}
	}

	entries := []vault.Entry{}
	for _, c := range categories {
		entries = append(entries, store.Filter(vault.Filter{
			Category: c,
			Usecase:  usecase,
			Search:   search,
		})...)
	}
	return entries
}

// newEntryUpdateCmd creates the update entry command
func newEntryUpdateCmd(getCfg func() *config.Config, getSess SessionFunc) *cobra.Command {
	var (
		usernameFlag string
		passwordFlag string
		usecaseFlag  string
		remarkFlag   string
		generate     bool
	)

	cmd := &cobra.Command{
		Use:   "update [ID]",
		Short: "Update an existing entry",
		Long:  "Modify an entry's username, password, usecase or remark. The category cannot be changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getCfg()
			ctx := cmd.Context()

			sess, err := getSess(ctx)
			if err != nil {
				return err
			}
			store := sess.Store()

			entry, err := store.Get(args[0])
			if err != nil {
				return describe(err)
			}

			flags := cmd.Flags()
			interactive := !flags.Changed("username") && !flags.Changed("password") &&
				!flags.Changed("usecase") && !flags.Changed("remark") && !generate

			if interactive {
				draft := vault.Draft{
					Category: entry.Category,
					Username: entry.Username,
					Password: entry.Password.Value,
					Usecase:  entry.Usecase,
					Remark:   entry.Remark,
				}
				if err := runEntryForm(&draft, false); err != nil {
					return err
				}
				entry.Username = draft.Username
				entry.Password.Value = draft.Password
				entry.Usecase = draft.Usecase
				entry.Remark = draft.Remark
			} else {
				if flags.Changed("username") {
					entry.Username = usernameFlag
				}
				if flags.Changed("password") {
					entry.Password.Value = passwordFlag
				}
				if generate {
					pw, err := passgen.New(nil).Generate(cfg.GeneratorOptions())
					if err != nil {
						return fmt.Errorf("failed to generate password: %w", err)
					}
					entry.Password.Value = pw
				}
				if flags.Changed("usecase") {
					usecase, err := vault.ParseUsecase(usecaseFlag)
					if err != nil {
						return describe(err)
					}
					entry.Usecase = usecase
				}
				if flags.Changed("remark") {
					entry.Remark = remarkFlag
				}
			}

			updated, err := store.Update(ctx, entry.ID, entry)
			if err != nil {
				return describe(err)
			}

			logrus.Debugf("Entry updated: id=%s", updated.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Entry '%s' updated successfully\n", updated.Username)
			if generate {
				fmt.Fprintf(cmd.OutOrStdout(), "  Password: %s\n", updated.Password.Value)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&usernameFlag, "username", "u", "", "New username")
	cmd.Flags().StringVarP(&passwordFlag, "password", "p", "", "New password")
	cmd.Flags().StringVar(&usecaseFlag, "usecase", "", "New usecase (Default, Private, Gaming)")
	cmd.Flags().StringVar(&remarkFlag, "remark", "", "New remark (empty clears it)")
	cmd.Flags().BoolVarP(&generate, "generate", "g", false, "Replace the password with a generated one")

	return cmd
}

// newEntryDeleteCmd creates the delete entry command
func newEntryDeleteCmd(getCfg func() *config.Config, getSess SessionFunc) *cobra.Command {
	var noConfirm bool

	cmd := &cobra.Command{
		Use:     "delete [ID]",
		Short:   "Delete an entry",
		Long:    "Permanently remove an entry from the vault",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := getSess(ctx)
			if err != nil {
				return err
			}
			store := sess.Store()

			entry, err := store.Get(args[0])
			if err != nil {
				return describe(err)
			}

			confirmed, err := confirmAction(
				fmt.Sprintf("Delete %s entry '%s'?", entry.Category, entry.Username),
				"This cannot be undone.",
				noConfirm,
			)
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
				return nil
			}

			if err := store.Delete(ctx, entry.ID); err != nil {
				return describe(err)
			}

			logrus.Debugf("Entry deleted: id=%s", entry.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Entry '%s' deleted\n", entry.Username)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")

	return cmd
}

// runEntryForm prompts for the draft fields. The category is only asked for new entries.
func runEntryForm(d *vault.Draft, askCategory bool) error {
	category := string(d.Category)
	if category == "" {
		category = string(vault.CategoryWebsite)
	}
	usecase := string(d.Usecase)
	if usecase == "" {
		usecase = string(vault.UsecaseDefault)
	}

	var fields []huh.Field
	if askCategory {
		options := make([]huh.Option[string], 0, len(vault.Categories()))
		for _, c := range vault.Categories() {
			options = append(options, huh.NewOption(string(c), string(c)))
		}
		fields = append(fields, huh.NewSelect[string]().
			Title("Category").
			Options(options...).
			Value(&category))
	}

	usecases := make([]huh.Option[string], 0, len(vault.Usecases()))
	for _, u := range vault.Usecases() {
		usecases = append(usecases, huh.NewOption(string(u), string(u)))
	}

	fields = append(fields,
		huh.NewInput().
			Title("Username").
			Description("Account name, email address or login").
			Value(&d.Username).
			Validate(required("username")),

		huh.NewInput().
			Title("Password").
			Description("Leave as is to keep a generated password").
			Value(&d.Password).
			EchoMode(huh.EchoModePassword).
			Validate(required("password")),

		huh.NewSelect[string]().
			Title("Usecase").
			Options(usecases...).
			Value(&usecase),

		huh.NewInput().
			Title("Remark (optional)").
			Value(&d.Remark),
	)

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return fmt.Errorf("operation cancelled: %w", err)
	}

	d.Category = vault.Category(category)
	d.Usecase = vault.Usecase(usecase)

	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if len(s) == 0 {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
