package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/koyif/securevault/internal/crypto"
)

const (
	envelopeVersion   = 1
	envelopeAlgorithm = "AES-256-GCM"
)

// envelope is the JSON document an Encrypted port stores in place of the plain value.
type envelope struct {
	Version    int    `json:"v"`
	Algorithm  string `json:"alg"`
	Ciphertext string `json:"ciphertext"`
}

// ErrUnsealed is returned by Encrypted.Load for a value stored without encryption when
// plaintext migration is not allowed.
var ErrUnsealed = errors.New("value is stored without encryption")

// Encrypted seals values with AES-256-GCM before handing them to the inner port.
//
// The PIN record is passed through untouched because it must be readable before the key
// exists. Plaintext values are rejected with ErrUnsealed unless the port was built with
// AllowPlaintext, which is only used while a vault is being migrated to encryption.
type Encrypted struct {
	inner          Port
	key            []byte
	logger         *zap.Logger
	allowPlaintext bool
}

// EncryptedOption configures an Encrypted port.
type EncryptedOption func(*Encrypted)

// AllowPlaintext makes Load return values written before encryption was enabled as
// stored. The next Save rewrites them sealed.
func AllowPlaintext() EncryptedOption {
	return func(e *Encrypted) {
		e.allowPlaintext = true
	}
}

// NewEncrypted wraps inner. key must be 32 bytes.
func NewEncrypted(inner Port, key []byte, logger *zap.Logger, opts ...EncryptedOption) (*Encrypted, error) {
	if len(key) != crypto.ArgonKeyLength {
		return nil, fmt.Errorf("%w: expected %d bytes", crypto.ErrInvalidKey, crypto.ArgonKeyLength)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	k := make([]byte, len(key))
	copy(k, key)

	e := &Encrypted{inner: inner, key: k, logger: logger}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Load reads and opens the value stored under key.
func (e *Encrypted) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := e.inner.Load(ctx, key)
	if err != nil || key == KeyPIN {
		return data, err
	}

	env, ok := parseEnvelope(data)
	if !ok {
		if !e.allowPlaintext {
			e.logger.Error("sealed vault holds a plaintext value", zap.String("key", key))
			return nil, fmt.Errorf("%w: key %q", ErrUnsealed, key)
		}
		e.logger.Warn("value stored without encryption, it will be sealed on next save", zap.String("key", key))
		return data, nil
	}

	if env.Version != envelopeVersion || env.Algorithm != envelopeAlgorithm {
		return nil, fmt.Errorf("unsupported envelope v%d %s for key %q", env.Version, env.Algorithm, key)
	}

	plaintext, err := crypto.Decrypt(env.Ciphertext, e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", key, err)
	}

	return plaintext, nil
}

// Save seals value and stores the envelope under key.
func (e *Encrypted) Save(ctx context.Context, key string, value []byte) error {
	if err := Validate(key, value); err != nil {
		return err
	}

	if key == KeyPIN {
		return e.inner.Save(ctx, key, value)
	}

	ciphertext, err := crypto.Encrypt(value, e.key)
	if err != nil {
		return fmt.Errorf("failed to seal %q: %w", key, err)
	}

	data, err := json.Marshal(envelope{
		Version:    envelopeVersion,
		Algorithm:  envelopeAlgorithm,
		Ciphertext: ciphertext,
	})
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	return e.inner.Save(ctx, key, data)
}

// Close zeroes the key and closes the inner port.
func (e *Encrypted) Close() error {
	crypto.Zero(e.key)
	return e.inner.Close()
}

// IsSealed reports whether data is an encryption envelope.
func IsSealed(data []byte) bool {
	_, ok := parseEnvelope(data)
	return ok
}

func parseEnvelope(data []byte) (envelope, bool) {
	var env envelope
	if len(data) == 0 || data[0] != '{' {
		return env, false
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, false
	}
	return env, env.Algorithm != "" && env.Ciphertext != ""
}
