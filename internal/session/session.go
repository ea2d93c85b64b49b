// Package session binds an unlocked vault store to its persistence port and holds the
// vault key in memory for the lifetime of the process.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/koyif/securevault/internal/crypto"
	"github.com/koyif/securevault/internal/lock"
	"github.com/koyif/securevault/internal/persistence"
	"github.com/koyif/securevault/internal/vault"
)

// ErrLocked is returned by Open when a PIN is set and none was supplied.
var ErrLocked = errors.New("vault is locked, a PIN is required")

// Session is an open vault.
type Session struct {
	mu sync.RWMutex

	raw   persistence.Port
	port  persistence.Port
	gate  *lock.Gate
	store *vault.Store

	// Encryption key (never persisted)
	key []byte

	logger *zap.Logger
	opts   []vault.Option
}

// Open unlocks the vault stored in raw. When a PIN is set, pin must match it and the
// store reads and writes through an encrypted port. Without a PIN the vault is plaintext
// and pin is ignored.
func Open(ctx context.Context, raw persistence.Port, gate *lock.Gate, pin string, logger *zap.Logger, opts ...vault.Option) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Session{
		raw:    raw,
		port:   raw,
		gate:   gate,
		logger: logger,
		opts:   append([]vault.Option{vault.WithLogger(logger)}, opts...),
	}

	set, err := gate.IsSet(ctx)
	if err != nil {
		return nil, err
	}

	sealed := true
	if set {
		if pin == "" {
			return nil, ErrLocked
		}

		key, err := gate.Unlock(ctx, pin)
		if err != nil {
			return nil, err
		}

		if sealed, err = gate.Sealed(ctx); err != nil {
			crypto.Zero(key)
			return nil, err
		}

		// A PIN set without its entries sealed means the migration was interrupted.
		var encOpts []persistence.EncryptedOption
		if !sealed {
			encOpts = append(encOpts, persistence.AllowPlaintext())
		}

		enc, err := persistence.NewEncrypted(raw, key, logger, encOpts...)
		if err != nil {
			crypto.Zero(key)
			return nil, err
		}

		s.key = key
		s.port = enc
	}

	store, err := vault.Open(ctx, s.port, s.opts...)
	if err != nil {
		s.zeroKey()
		return nil, err
	}
	s.store = store

	if !sealed {
		enc, err := s.seal(ctx, s.key)
		if err != nil {
			logger.Warn("entries are still stored in cleartext", zap.Error(err))
		} else {
			s.port = enc
			logger.Info("finished encrypting entries", zap.Int("entries", store.Len()))
		}
	}

	logger.Debug("session opened", zap.Bool("encrypted", set), zap.Int("entries", store.Len()))

	return s, nil
}

// Store returns the vault store.
func (s *Session) Store() *vault.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// Encrypted reports whether stored entries are sealed under a PIN-derived key.
func (s *Session) Encrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil
}

// Key returns a copy of the vault key, or nil for a plaintext vault.
func (s *Session) Key() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil
	}
	key := make([]byte, len(s.key))
	copy(key, s.key)
	return key
}

// EnablePIN sets the first PIN and re-saves every entry encrypted under it.
func (s *Session) EnablePIN(ctx context.Context, pin, confirm string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.gate.SetPIN(ctx, pin, confirm)
	if err != nil {
		return err
	}

	// The record is written first, so an interrupted seal is finished by the next Open.
	enc, err := s.seal(ctx, key)
	if err != nil {
		crypto.Zero(key)
		return fmt.Errorf("PIN set but entries could not be encrypted: %w", err)
	}

	s.key = key
	s.port = enc

	s.logger.Info("vault encryption enabled", zap.Int("entries", s.store.Len()))

	return nil
}

// ChangePIN replaces the PIN and re-encrypts every entry under the new key.
func (s *Session) ChangePIN(ctx context.Context, oldPIN, newPIN, confirm string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key == nil {
		return lock.ErrPINNotSet
	}

	var next *persistence.Encrypted
	key, err := s.gate.ChangePIN(ctx, oldPIN, newPIN, confirm, func(newKey []byte) error {
		enc, err := persistence.NewEncrypted(s.raw, newKey, s.logger)
		if err != nil {
			return err
		}
		if err := s.store.Rebind(ctx, enc); err != nil {
			return err
		}
		next = enc
		return nil
	})
	if err != nil {
		if next != nil {
			// Entries are sealed under the new key but the record still holds the old PIN.
			if rerr := s.store.Rebind(ctx, s.port); rerr != nil {
				s.logger.Error("failed to restore entries under the previous key", zap.Error(rerr))
			}
		}
		return err
	}

	crypto.Zero(s.key)
	s.key = key
	s.port = next

	s.logger.Info("vault re-encrypted under new PIN", zap.Int("entries", s.store.Len()))

	return nil
}

// Close zeroes the key and closes the port.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.zeroKey()

	if err := s.port.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}

	return nil
}

// seal rewrites every entry under key and records the vault as sealed.
// Must be called with s.mu held or before the session is shared.
func (s *Session) seal(ctx context.Context, key []byte) (*persistence.Encrypted, error) {
	enc, err := persistence.NewEncrypted(s.raw, key, s.logger)
	if err != nil {
		return nil, err
	}
	if err := s.store.Rebind(ctx, enc); err != nil {
		return nil, err
	}

	if err := s.gate.MarkSealed(ctx); err != nil {
		s.logger.Warn("entries sealed but the PIN record was not updated", zap.Error(err))
	}

	return enc, nil
}

func (s *Session) zeroKey() {
	if s.key != nil {
		crypto.Zero(s.key)
		s.key = nil
	}
}
