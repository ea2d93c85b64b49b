package commands

import (
	"errors"
	"fmt"

	"github.com/koyif/securevault/internal/lock"
	"github.com/koyif/securevault/internal/persistence"
	"github.com/koyif/securevault/internal/session"
	"github.com/koyif/securevault/internal/vault"
)

// describe turns core errors into messages a CLI user can act on. The original error
// stays in the chain.
func describe(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, session.ErrLocked):
		return fmt.Errorf("%w: pass --pin or set VAULT_PIN", err)
	case errors.Is(err, lock.ErrTooManyAttempts):
		return fmt.Errorf("%w (wait a minute before retrying)", err)
	case errors.Is(err, persistence.ErrUnsealed):
		return fmt.Errorf("%w: the vault was encrypted but its entries are now cleartext. Restore them with 'vault backup import'", err)
	case errors.Is(err, vault.ErrNotFound):
		return fmt.Errorf("%w. Run 'vault entry list' to see entry ids", err)
	case errors.Is(err, vault.ErrValidation):
		return fmt.Errorf("invalid entry: %w", err)
	case errors.Is(err, vault.ErrFormat):
		return fmt.Errorf("invalid backup file: %w", err)
	case errors.Is(err, vault.ErrConflict):
		return fmt.Errorf("%w. Use --policy keep or --policy overwrite to merge", err)
	case errors.Is(err, vault.ErrPersistence):
		return fmt.Errorf("storage error, no changes were made: %w", err)
	default:
		return err
	}
}
