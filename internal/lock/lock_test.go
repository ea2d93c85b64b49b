package lock

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/koyif/securevault/internal/crypto"
	"github.com/koyif/securevault/internal/persistence"
)

func generous() Limits {
	return Limits{AttemptsPerMinute: 600, Burst: 100}
}

func TestValidateNewPIN(t *testing.T) {
	tests := []struct {
		name    string
		pin     string
		confirm string
		want    error
	}{
		{"ok", "1234", "1234", nil},
		{"long", "correct horse", "correct horse", nil},
		{"too short", "123", "123", ErrPINTooShort},
		{"multibyte counted as runes", "äöü", "äöü", ErrPINTooShort},
		{"mismatch", "1234", "1235", ErrPINMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNewPIN(tt.pin, tt.confirm)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGate_SetAndUnlock(t *testing.T) {
	ctx := context.Background()
	port := persistence.NewMemory()
	g := NewGate(port, generous(), nil)

	set, err := g.IsSet(ctx)
	require.NoError(t, err)
	assert.False(t, set)

	key, err := g.SetPIN(ctx, "4821", "4821")
	require.NoError(t, err)
	assert.Len(t, key, crypto.ArgonKeyLength)

	set, err = g.IsSet(ctx)
	require.NoError(t, err)
	assert.True(t, set)

	unlocked, err := g.Unlock(ctx, "4821")
	require.NoError(t, err)
	assert.Equal(t, key, unlocked)

	_, err = g.Unlock(ctx, "4822")
	assert.ErrorIs(t, err, ErrIncorrectPIN)
}

func TestGate_RecordNeverHoldsPIN(t *testing.T) {
	ctx := context.Background()
	port := persistence.NewMemory()
	g := NewGate(port, generous(), nil)

	key, err := g.SetPIN(ctx, "secret-pin", "secret-pin")
	require.NoError(t, err)

	raw, err := port.Load(ctx, persistence.KeyPIN)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-pin")

	var rec Record
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Equal(t, recordVersion, rec.Version)
	assert.NotEqual(t, rec.HashSalt, rec.KeySalt)

	hash, _, _, err := rec.decode()
	require.NoError(t, err)
	assert.False(t, bytes.Equal(hash, key), "stored hash must differ from the key")
}

func TestGate_SetPINTwice(t *testing.T) {
	ctx := context.Background()
	g := NewGate(persistence.NewMemory(), generous(), nil)

	_, err := g.SetPIN(ctx, "1234", "1234")
	require.NoError(t, err)

	_, err = g.SetPIN(ctx, "5678", "5678")
	assert.ErrorIs(t, err, ErrPINAlreadySet)
}

func TestGate_SetPINValidation(t *testing.T) {
	ctx := context.Background()
	port := persistence.NewMemory()
	g := NewGate(port, generous(), nil)

	_, err := g.SetPIN(ctx, "12", "12")
	assert.ErrorIs(t, err, ErrPINTooShort)

	_, err = g.SetPIN(ctx, "1234", "4321")
	assert.ErrorIs(t, err, ErrPINMismatch)

	_, err = port.Load(ctx, persistence.KeyPIN)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestGate_UnlockWithoutPIN(t *testing.T) {
	g := NewGate(persistence.NewMemory(), generous(), nil)

	_, err := g.Unlock(context.Background(), "1234")
	assert.ErrorIs(t, err, ErrPINNotSet)
}

func TestGate_ChangePIN(t *testing.T) {
	ctx := context.Background()
	g := NewGate(persistence.NewMemory(), generous(), nil)

	original, err := g.SetPIN(ctx, "1111", "1111")
	require.NoError(t, err)

	_, err = g.ChangePIN(ctx, "0000", "2222", "2222", nil)
	assert.ErrorIs(t, err, ErrIncorrectPIN)

	var resealedWith []byte
	newKey, err := g.ChangePIN(ctx, "1111", "2222", "2222", func(k []byte) error {
		resealedWith = append([]byte(nil), k...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, newKey, resealedWith)
	assert.NotEqual(t, original, newKey)

	_, err = g.Unlock(ctx, "1111")
	assert.ErrorIs(t, err, ErrIncorrectPIN)

	unlocked, err := g.Unlock(ctx, "2222")
	require.NoError(t, err)
	assert.Equal(t, newKey, unlocked)
}

func TestGate_ChangePINResealFailureKeepsOldPIN(t *testing.T) {
	ctx := context.Background()
	g := NewGate(persistence.NewMemory(), generous(), nil)

	original, err := g.SetPIN(ctx, "1111", "1111")
	require.NoError(t, err)

	_, err = g.ChangePIN(ctx, "1111", "2222", "2222", func([]byte) error {
		return errors.New("disk full")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	unlocked, err := g.Unlock(ctx, "1111")
	require.NoError(t, err)
	assert.Equal(t, original, unlocked)
}

func TestGate_RateLimit(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	g := NewGate(persistence.NewMemory(), generous(), zap.New(core))

	_, err := g.SetPIN(ctx, "1234", "1234")
	require.NoError(t, err)

	g = NewGate(g.port, Limits{AttemptsPerMinute: 1, Burst: 2}, zap.New(core))

	_, err = g.Unlock(ctx, "0000")
	assert.ErrorIs(t, err, ErrIncorrectPIN)
	_, err = g.Unlock(ctx, "0000")
	assert.ErrorIs(t, err, ErrIncorrectPIN)

	_, err = g.Unlock(ctx, "1234")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	assert.Equal(t, 1, logs.FilterMessage("unlock attempt rate limited").Len())
	assert.Equal(t, 2, logs.FilterMessage("incorrect PIN entered").Len())
}

func TestGate_RateLimitSurvivesNewGate(t *testing.T) {
	ctx := context.Background()
	port := persistence.NewMemory()
	strict := Limits{AttemptsPerMinute: 1, Burst: 3}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	newGate := func() *Gate {
		g := NewGate(port, strict, nil)
		g.now = func() time.Time { return now }
		return g
	}

	_, err := newGate().SetPIN(ctx, "1234", "1234")
	require.NoError(t, err)

	// Each failure comes from a fresh gate, as with separate CLI runs.
	for i := 0; i < 3; i++ {
		_, err := newGate().Unlock(ctx, "0000")
		assert.ErrorIs(t, err, ErrIncorrectPIN)
	}

	_, err = newGate().Unlock(ctx, "1234")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	var rec Record
	data, err := port.Load(ctx, persistence.KeyPIN)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, 3, rec.FailedAttempts)
	assert.NotEmpty(t, rec.LastFailure)

	now = now.Add(time.Minute)
	key, err := newGate().Unlock(ctx, "1234")
	require.NoError(t, err)
	assert.Len(t, key, crypto.ArgonKeyLength)

	data, err = port.Load(ctx, persistence.KeyPIN)
	require.NoError(t, err)
	rec = Record{}
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Zero(t, rec.FailedAttempts)
	assert.Empty(t, rec.LastFailure)
}

func TestGate_SuccessfulUnlocksDoNotSpendAttempts(t *testing.T) {
	ctx := context.Background()
	g := NewGate(persistence.NewMemory(), Limits{AttemptsPerMinute: 1, Burst: 1}, nil)

	_, err := g.SetPIN(ctx, "1234", "1234")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := g.Unlock(ctx, "1234")
		require.NoError(t, err)
	}

	key, err := g.ChangePIN(ctx, "1234", "5678", "5678", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, key)
}

func TestGate_CorruptRecord(t *testing.T) {
	tests := []struct {
		name   string
		record string
	}{
		{"wrong version", `{"v":7}`},
		{"bad base64", `{"v":1,"hash":"%%%","hash_salt":"","key_salt":""}`},
		{"not an object", `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := persistence.NewMemory()
			require.NoError(t, port.Save(context.Background(), persistence.KeyPIN, []byte(tt.record)))

			_, err := NewGate(port, generous(), nil).Unlock(context.Background(), "1234")
			assert.ErrorIs(t, err, ErrCorruptRecord)
		})
	}
}

func TestGate_TamperedVerifier(t *testing.T) {
	ctx := context.Background()
	port := persistence.NewMemory()
	g := NewGate(port, generous(), nil)

	_, err := g.SetPIN(ctx, "1234", "1234")
	require.NoError(t, err)

	raw, err := port.Load(ctx, persistence.KeyPIN)
	require.NoError(t, err)
	var rec Record
	require.NoError(t, json.Unmarshal(raw, &rec))

	otherKey := crypto.DeriveKey("9999", []byte("0123456789abcdef0123456789abcdef"))
	rec.Verifier, err = crypto.NewKeyVerifier(otherKey)
	require.NoError(t, err)
	raw, err = json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, port.Save(ctx, persistence.KeyPIN, raw))

	_, err = g.Unlock(ctx, "1234")
	assert.ErrorIs(t, err, ErrCorruptRecord)
}
