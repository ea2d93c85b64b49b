// Package lock guards the vault behind a PIN and derives the vault encryption key from it.
//
// The PIN itself is never stored. The record under persistence.KeyPIN holds an Argon2id
// hash for verification, a separate salt for key derivation and a verifier sealed under
// the derived key. Failed unlock attempts are counted in the same record, so the attempt
// limit holds across processes.
package lock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/koyif/securevault/internal/crypto"
	"github.com/koyif/securevault/internal/persistence"
)

// MinPINLength is the shortest PIN accepted by SetPIN.
const MinPINLength = 4

const recordVersion = 1

var (
	ErrPINNotSet       = errors.New("no PIN has been set")
	ErrPINAlreadySet   = errors.New("a PIN is already set")
	ErrPINTooShort     = fmt.Errorf("PIN must be at least %d characters long", MinPINLength)
	ErrPINMismatch     = errors.New("PINs do not match")
	ErrIncorrectPIN    = errors.New("incorrect PIN")
	ErrTooManyAttempts = errors.New("too many unlock attempts, try again later")
	ErrCorruptRecord   = errors.New("PIN record is corrupt")
)

// Record is the persisted PIN state.
type Record struct {
	Version   int    `json:"v"`
	Hash      string `json:"hash"`
	HashSalt  string `json:"hash_salt"`
	KeySalt   string `json:"key_salt"`
	Verifier  string `json:"verifier"`
	CreatedAt string `json:"created_at"`

	// Sealed is set once the entries have been written encrypted under this PIN. Until
	// then plaintext entries are still readable.
	Sealed bool `json:"sealed,omitempty"`

	// FailedAttempts is the number of limiter tokens spent by failed unlocks as of
	// LastFailure. Successful unlocks clear both.
	FailedAttempts int    `json:"failed_attempts,omitempty"`
	LastFailure    string `json:"last_failure,omitempty"`
}

// Limits bounds failed unlock attempts.
type Limits struct {
	AttemptsPerMinute int
	Burst             int
}

// DefaultLimits allows a short burst of typos, then one attempt every 12 seconds.
func DefaultLimits() Limits {
	return Limits{AttemptsPerMinute: 5, Burst: 5}
}

// Gate sets and checks the PIN.
type Gate struct {
	port   persistence.Port
	limit  rate.Limit
	burst  int
	logger *zap.Logger
	now    func() time.Time
}

// NewGate returns a gate storing its record in port.
func NewGate(port persistence.Port, limits Limits, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limits.AttemptsPerMinute <= 0 {
		limits.AttemptsPerMinute = DefaultLimits().AttemptsPerMinute
	}
	if limits.Burst <= 0 {
		limits.Burst = DefaultLimits().Burst
	}

	return &Gate{
		port:   port,
		limit:  rate.Every(time.Minute / time.Duration(limits.AttemptsPerMinute)),
		burst:  limits.Burst,
		logger: logger,
		now:    time.Now,
	}
}

// IsSet reports whether a PIN record exists.
func (g *Gate) IsSet(ctx context.Context) (bool, error) {
	_, err := g.port.Load(ctx, persistence.KeyPIN)
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to read PIN record: %w", err)
	default:
		return true, nil
	}
}

// Sealed reports whether the entries have been written encrypted under the current PIN.
func (g *Gate) Sealed(ctx context.Context) (bool, error) {
	rec, err := g.load(ctx)
	if err != nil {
		return false, err
	}
	return rec.Sealed, nil
}

// MarkSealed records that the entries are now encrypted, after which plaintext entries
// are refused.
func (g *Gate) MarkSealed(ctx context.Context) error {
	rec, err := g.load(ctx)
	if err != nil {
		return err
	}
	if rec.Sealed {
		return nil
	}

	rec.Sealed = true
	if err := g.save(ctx, rec); err != nil {
		return err
	}

	g.logger.Debug("vault marked sealed")

	return nil
}

// ValidateNewPIN checks a new PIN and its confirmation.
func ValidateNewPIN(pin, confirm string) error {
	if utf8.RuneCountInString(pin) < MinPINLength {
		return ErrPINTooShort
	}
	if pin != confirm {
		return ErrPINMismatch
	}
	return nil
}

// SetPIN stores a record for pin and returns the derived vault key. It fails with
// ErrPINAlreadySet when a PIN exists; use ChangePIN instead.
func (g *Gate) SetPIN(ctx context.Context, pin, confirm string) ([]byte, error) {
	if err := ValidateNewPIN(pin, confirm); err != nil {
		return nil, err
	}

	set, err := g.IsSet(ctx)
	if err != nil {
		return nil, err
	}
	if set {
		return nil, ErrPINAlreadySet
	}

	key, err := g.write(ctx, pin)
	if err != nil {
		return nil, err
	}

	g.logger.Info("PIN set")

	return key, nil
}

// ChangePIN verifies oldPIN and replaces the record with one for newPIN.
//
// reseal is called with the new key before the record is written, so stored data can be
// re-encrypted first. When reseal fails the old record stays in place.
func (g *Gate) ChangePIN(ctx context.Context, oldPIN, newPIN, confirm string, reseal func(newKey []byte) error) ([]byte, error) {
	if err := ValidateNewPIN(newPIN, confirm); err != nil {
		return nil, err
	}

	oldKey, err := g.Unlock(ctx, oldPIN)
	if err != nil {
		return nil, err
	}
	crypto.Zero(oldKey)

	old, err := g.load(ctx)
	if err != nil {
		return nil, err
	}

	rec, newKey, err := g.newRecord(newPIN)
	if err != nil {
		return nil, err
	}
	rec.Sealed = old.Sealed

	if reseal != nil {
		if err := reseal(newKey); err != nil {
			crypto.Zero(newKey)
			return nil, fmt.Errorf("failed to re-encrypt vault: %w", err)
		}
		rec.Sealed = true
	}

	if err := g.save(ctx, rec); err != nil {
		crypto.Zero(newKey)
		return nil, err
	}

	g.logger.Info("PIN changed")

	return newKey, nil
}

// Unlock checks pin against the stored record and returns the vault key.
//
// Only failed attempts spend the allowance. Once it is spent every attempt, correct or
// not, fails with ErrTooManyAttempts until the limiter refills.
func (g *Gate) Unlock(ctx context.Context, pin string) ([]byte, error) {
	rec, err := g.load(ctx)
	if err != nil {
		return nil, err
	}

	now := g.now()
	limiter := g.limiterFor(rec)
	if limiter.TokensAt(now) < 1 {
		g.logger.Warn("unlock attempt rate limited")
		return nil, ErrTooManyAttempts
	}

	hash, hashSalt, keySalt, err := rec.decode()
	if err != nil {
		return nil, err
	}

	if !crypto.VerifyPIN(pin, hashSalt, hash) {
		g.logger.Warn("incorrect PIN entered")
		g.recordFailure(ctx, rec, limiter, now)
		return nil, ErrIncorrectPIN
	}

	key := crypto.DeriveKey(pin, keySalt)
	if err := crypto.CheckKeyVerifier(key, rec.Verifier); err != nil {
		crypto.Zero(key)
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	if rec.FailedAttempts > 0 {
		rec.FailedAttempts = 0
		rec.LastFailure = ""
		if err := g.save(ctx, rec); err != nil {
			g.logger.Warn("failed to clear unlock attempts", zap.Error(err))
		}
	}

	g.logger.Debug("vault unlocked")

	return key, nil
}

// limiterFor rebuilds the attempt limiter from the failures recorded in rec.
func (g *Gate) limiterFor(rec Record) *rate.Limiter {
	limiter := rate.NewLimiter(g.limit, g.burst)
	if rec.FailedAttempts <= 0 {
		return limiter
	}

	last, err := time.Parse(time.RFC3339Nano, rec.LastFailure)
	if err != nil {
		last = g.now()
	}
	limiter.AllowN(last, min(rec.FailedAttempts, g.burst))

	return limiter
}

// recordFailure spends one token and writes the remaining allowance back to the record.
func (g *Gate) recordFailure(ctx context.Context, rec Record, limiter *rate.Limiter, now time.Time) {
	limiter.AllowN(now, 1)

	spent := float64(g.burst) - limiter.TokensAt(now)
	rec.FailedAttempts = int(math.Ceil(spent - 1e-9))
	rec.LastFailure = now.UTC().Format(time.RFC3339Nano)

	if err := g.save(ctx, rec); err != nil {
		g.logger.Error("failed to record unlock attempt", zap.Error(err))
	}
}

func (g *Gate) load(ctx context.Context) (Record, error) {
	data, err := g.port.Load(ctx, persistence.KeyPIN)
	if errors.Is(err, persistence.ErrNotFound) {
		return Record{}, ErrPINNotSet
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read PIN record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if rec.Version != recordVersion {
		return Record{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptRecord, rec.Version)
	}

	return rec, nil
}

func (g *Gate) write(ctx context.Context, pin string) ([]byte, error) {
	rec, key, err := g.newRecord(pin)
	if err != nil {
		return nil, err
	}

	if err := g.save(ctx, rec); err != nil {
		crypto.Zero(key)
		return nil, err
	}

	return key, nil
}

// newRecord derives a fresh key for pin and builds its record.
func (g *Gate) newRecord(pin string) (Record, []byte, error) {
	hashSalt, err := crypto.GenerateSalt(crypto.SaltLength)
	if err != nil {
		return Record{}, nil, err
	}
	keySalt, err := crypto.GenerateSalt(crypto.SaltLength)
	if err != nil {
		return Record{}, nil, err
	}

	key := crypto.DeriveKey(pin, keySalt)

	verifier, err := crypto.NewKeyVerifier(key)
	if err != nil {
		crypto.Zero(key)
		return Record{}, nil, err
	}

	return Record{
		Version:   recordVersion,
		Hash:      base64.StdEncoding.EncodeToString(crypto.HashPIN(pin, hashSalt)),
		HashSalt:  base64.StdEncoding.EncodeToString(hashSalt),
		KeySalt:   base64.StdEncoding.EncodeToString(keySalt),
		Verifier:  verifier,
		CreatedAt: g.now().UTC().Format(time.RFC3339),
	}, key, nil
}

func (g *Gate) save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode PIN record: %w", err)
	}

	if err := g.port.Save(ctx, persistence.KeyPIN, data); err != nil {
		return fmt.Errorf("failed to save PIN record: %w", err)
	}

	return nil
}

func (r Record) decode() (hash, hashSalt, keySalt []byte, err error) {
	if hash, err = base64.StdEncoding.DecodeString(r.Hash); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: hash: %v", ErrCorruptRecord, err)
	}
	if hashSalt, err = base64.StdEncoding.DecodeString(r.HashSalt); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: hash salt: %v", ErrCorruptRecord, err)
	}
	if keySalt, err = base64.StdEncoding.DecodeString(r.KeySalt); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: key salt: %v", ErrCorruptRecord, err)
	}
	return hash, hashSalt, keySalt, nil
}
