package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/koyif/securevault/internal/config"
	"github.com/koyif/securevault/internal/lock"
)

// NewPINCommands returns the pin command group
func NewPINCommands(getCfg func() *config.Config, getGate GateFunc, getSess SessionFunc) *cobra.Command {
	pinCmd := &cobra.Command{
		Use:   "pin",
		Short: "Manage the vault PIN",
		Long:  "Set or change the PIN that unlocks the vault and encrypts entries at rest",
	}

	pinCmd.AddCommand(newPINSetCmd(getGate, getSess))
	pinCmd.AddCommand(newPINChangeCmd(getCfg, getSess))
	pinCmd.AddCommand(newPINStatusCmd(getGate))

	return pinCmd
}

func newPINSetCmd(getGate GateFunc, getSess SessionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Set the first PIN",
		Long:  fmt.Sprintf("Set a PIN of at least %d characters. Existing entries are re-encrypted under it.", lock.MinPINLength),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			gate, err := getGate(ctx)
			if err != nil {
				return err
			}
			set, err := gate.IsSet(ctx)
			if err != nil {
				return describe(err)
			}
			if set {
				return fmt.Errorf("%w. Use 'vault pin change' instead", lock.ErrPINAlreadySet)
			}

			sess, err := getSess(ctx)
			if err != nil {
				return err
			}

			pin, confirm, err := promptNewPIN()
			if err != nil {
				return err
			}

			if err := sess.EnablePIN(ctx, pin, confirm); err != nil {
				return describe(err)
			}

			logrus.Debugf("PIN set, %d entries encrypted", sess.Store().Len())
			fmt.Fprintln(cmd.OutOrStdout(), "✓ PIN set. Entries are now encrypted at rest.")

			return nil
		},
	}
}

func newPINChangeCmd(getCfg func() *config.Config, getSess SessionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "change",
		Short: "Change the PIN",
		Long:  "Replace the PIN and re-encrypt every entry under the new key",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := getSess(ctx)
			if err != nil {
				return err
			}
			if !sess.Encrypted() {
				return fmt.Errorf("%w. Use 'vault pin set' first", lock.ErrPINNotSet)
			}

			oldPIN := getCfg().PIN
			if oldPIN == "" {
				oldPIN, err = promptPIN("Current PIN")
				if err != nil {
					return err
				}
			}

			pin, confirm, err := promptNewPIN()
			if err != nil {
				return err
			}

			if err := sess.ChangePIN(ctx, oldPIN, pin, confirm); err != nil {
				return describe(err)
			}

			logrus.Debug("PIN changed")
			fmt.Fprintln(cmd.OutOrStdout(), "✓ PIN changed. Entries were re-encrypted under the new PIN.")

			return nil
		},
	}
}

func newPINStatusCmd(getGate GateFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a PIN is set",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			gate, err := getGate(ctx)
			if err != nil {
				return err
			}
			set, err := gate.IsSet(ctx)
			if err != nil {
				return describe(err)
			}

			if set {
				fmt.Fprintln(cmd.OutOrStdout(), "PIN: set (entries encrypted at rest)")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "PIN: not set (entries stored in cleartext)")
			}

			return nil
		},
	}
}

func promptNewPIN() (pin, confirm string, err error) {
	pin, err = promptPIN(fmt.Sprintf("New PIN (min %d characters)", lock.MinPINLength))
	if err != nil {
		return "", "", err
	}
	if err := lock.ValidateNewPIN(pin, pin); err != nil {
		return "", "", err
	}

	confirm, err = promptPIN("Confirm PIN")
	if err != nil {
		return "", "", err
	}

	return pin, confirm, nil
}
