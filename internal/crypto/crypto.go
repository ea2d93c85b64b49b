package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	// Argon2id parameters per RFC 9106
	ArgonMemory      = 64 * 1024 // 64 MB in KiB
	ArgonIterations  = 1
	ArgonParallelism = 4
	ArgonKeyLength   = 32 // 256 bits for AES-256

	SaltLength = 32

	// AES-GCM nonce size
	NonceSize = 12
)

// verifierPlaintext is sealed under the vault key so a wrong key is detected before
// any entry blob is touched.
var verifierPlaintext = []byte("securevault-key-verifier")

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidVerifier   = errors.New("invalid key verifier")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrInvalidKey        = errors.New("invalid key")
)

// GenerateSalt generates a cryptographically secure random salt
func GenerateSalt(length int) ([]byte, error) {
	salt := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return salt, nil
}

// DeriveKey derives a 256-bit vault key from a PIN using Argon2id.
func DeriveKey(pin string, salt []byte) []byte {
	return argon2.IDKey([]byte(pin), salt, ArgonIterations, ArgonMemory, ArgonParallelism, ArgonKeyLength)
}

// HashPIN hashes the PIN for verification. It must be called with a salt distinct from
// the key derivation salt so the stored hash never equals the key.
func HashPIN(pin string, salt []byte) []byte {
	return argon2.IDKey([]byte(pin), salt, ArgonIterations, ArgonMemory, ArgonParallelism, ArgonKeyLength)
}

// VerifyPIN compares a PIN against its stored hash in constant time.
func VerifyPIN(pin string, salt, expectedHash []byte) bool {
	return subtle.ConstantTimeCompare(HashPIN(pin, salt), expectedHash) == 1
}

// NewKeyVerifier seals a fixed plaintext under key.
func NewKeyVerifier(key []byte) (string, error) {
	verifier, err := Encrypt(verifierPlaintext, key)
	if err != nil {
		return "", fmt.Errorf("failed to create verifier: %w", err)
	}

	return verifier, nil
}

// CheckKeyVerifier reports whether key opens the verifier.
func CheckKeyVerifier(key []byte, verifier string) error {
	plaintext, err := Decrypt(verifier, key)
	if errors.Is(err, ErrDecryptionFailed) {
		return ErrInvalidKey
	}
	if err != nil {
		return ErrInvalidVerifier
	}

	if subtle.ConstantTimeCompare(plaintext, verifierPlaintext) != 1 {
		return ErrInvalidVerifier
	}

	return nil
}

// Encrypt seals plaintext with AES-256-GCM and returns base64(nonce || ciphertext).
func Encrypt(plaintext, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce, err := GenerateSalt(NonceSize)
	if err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func Decrypt(ciphertextB64 string, key []byte) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}

	if len(sealed) < NonceSize {
		return nil, ErrInvalidCiphertext
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, sealed[:NonceSize], sealed[NonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != ArgonKeyLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, ArgonKeyLength, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return gcm, nil
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
