package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/koyif/securevault/internal/config"
	"github.com/koyif/securevault/internal/output"
	"github.com/koyif/securevault/internal/passgen"
)

// NewGenerateCommand creates the generate command
func NewGenerateCommand(getCfg func() *config.Config) *cobra.Command {
	var (
		length    int
		numbers   bool
		symbols   bool
		uppercase bool
		count     int
	)

	cmd := &cobra.Command{
		Use:     "generate",
		Short:   "Generate a random password",
		Long:    "Generate a password from lowercase letters plus the enabled classes, with at least one character of each enabled class",
		Aliases: []string{"gen"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getCfg()
			opts := cfg.GeneratorOptions()

			flags := cmd.Flags()
			if flags.Changed("length") {
				opts.Length = length
			}
			if flags.Changed("numbers") {
				opts.UseNumbers = numbers
			}
			if flags.Changed("symbols") {
				opts.UseSymbols = symbols
			}
			if flags.Changed("uppercase") {
				opts.UseUppercase = uppercase
			}
			if count < 1 {
				return fmt.Errorf("count must be at least 1")
			}

			logrus.Debugf("Generating %d password(s): length=%d, numbers=%t, symbols=%t, uppercase=%t",
				count, opts.Length, opts.UseNumbers, opts.UseSymbols, opts.UseUppercase)

			gen := passgen.New(nil)
			for range count {
				pw, err := gen.Generate(opts)
				if err != nil {
					return fmt.Errorf("failed to generate password: %w", err)
				}

				text, err := output.FormatValue(output.NewGeneratedView(pw), cfg.Format)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), text)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&length, "length", "l", passgen.DefaultLength, "Password length")
	cmd.Flags().BoolVar(&numbers, "numbers", true, "Include digits")
	cmd.Flags().BoolVar(&symbols, "symbols", true, "Include symbols")
	cmd.Flags().BoolVar(&uppercase, "uppercase", true, "Include uppercase letters")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of passwords to generate")

	return cmd
}
