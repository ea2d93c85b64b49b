// Package persistence defines the durable key/value port the vault reads at startup and
// writes after every mutation, together with its adapters.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Logical keys used by the vault.
const (
	KeyEntries = "entries"
	KeyPIN     = "pin"
)

var (
	// ErrNotFound is returned by Load when the key has never been saved.
	ErrNotFound = errors.New("key not found")

	// ErrInvalidValue is returned by Save when the value is not valid JSON.
	ErrInvalidValue = errors.New("value is not valid JSON")

	// ErrClosed is returned when the port is used after Close.
	ErrClosed = errors.New("persistence port closed")
)

// Port is durable key/value storage for JSON documents.
//
// Save must not return before the value is durable. Writers from several processes are
// resolved last-writer-wins.
type Port interface {
	// Load returns the value stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save stores value under key, replacing any previous value.
	Save(ctx context.Context, key string, value []byte) error

	// Close releases the underlying resources.
	Close() error
}

// Validate checks a key/value pair before it is handed to a backend, so every adapter
// rejects the same inputs.
func Validate(key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidValue)
	}
	if !json.Valid(value) {
		return fmt.Errorf("%w: key %q", ErrInvalidValue, key)
	}
	return nil
}
