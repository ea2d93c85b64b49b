package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koyif/securevault/internal/lock"
	"github.com/koyif/securevault/internal/persistence"
)

type mockChecker struct {
	status Status
}

func (m *mockChecker) Check(_ context.Context) Check {
	return Check{Name: "mock", Status: m.status}
}

type pingerPort struct {
	*persistence.Memory
	err error
}

func (p *pingerPort) Ping(context.Context) error {
	return p.err
}

func testGate(port persistence.Port) *lock.Gate {
	return lock.NewGate(port, lock.Limits{AttemptsPerMinute: 600, Burst: 100}, nil)
}

func TestService_CheckHealth_Aggregates(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewService("1.0.0")
			for i, s := range tt.statuses {
				service.RegisterChecker(string(rune('a'+i)), &mockChecker{status: s})
			}

			report := service.CheckHealth(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Equal(t, "1.0.0", report.Version)
			assert.Len(t, report.Checks, len(tt.statuses))
		})
	}
}

func TestVaultService_EmptyVault(t *testing.T) {
	port := persistence.NewMemory()

	report := NewVaultService("dev", port, testGate(port)).CheckHealth(context.Background())

	assert.Equal(t, []string{"pin", "storage"}, report.Names())
	assert.Equal(t, StatusHealthy, report.Checks["storage"].Status)
	assert.Equal(t, FormatAbsent, report.Checks["storage"].Details["format"])
	assert.Equal(t, StatusDegraded, report.Checks["pin"].Status)
	assert.Equal(t, StatusDegraded, report.Status)
}

func TestVaultService_Plaintext(t *testing.T) {
	ctx := context.Background()
	port := persistence.NewMemory()
	require.NoError(t, port.Save(ctx, persistence.KeyEntries, []byte(`[{"id":"a"},{"id":"b"}]`)))

	report := NewVaultService("dev", port, testGate(port)).CheckHealth(ctx)

	storage := report.Checks["storage"]
	assert.Equal(t, StatusHealthy, storage.Status)
	assert.Equal(t, FormatPlaintext, storage.Details["format"])
	assert.Equal(t, 2, storage.Details["entries"])
}

func TestVaultService_Encrypted(t *testing.T) {
	ctx := context.Background()
	port := persistence.NewMemory()
	gate := testGate(port)

	key, err := gate.SetPIN(ctx, "4821", "4821")
	require.NoError(t, err)
	enc, err := persistence.NewEncrypted(port, key, nil)
	require.NoError(t, err)
	require.NoError(t, enc.Save(ctx, persistence.KeyEntries, []byte(`[]`)))

	report := NewVaultService("dev", port, gate).CheckHealth(ctx)

	assert.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, FormatEncrypted, report.Checks["storage"].Details["format"])
	assert.Equal(t, "AES-256-GCM", report.Checks["storage"].Details["algorithm"])
	assert.Equal(t, true, report.Checks["pin"].Details["pin_set"])
}

func TestPINChecker_PlaintextUnderPIN(t *testing.T) {
	ctx := context.Background()
	port := persistence.NewMemory()
	gate := testGate(port)

	_, err := gate.SetPIN(ctx, "4821", "4821")
	require.NoError(t, err)
	require.NoError(t, port.Save(ctx, persistence.KeyEntries, []byte(`[]`)))

	check := NewPINChecker(port, gate).Check(ctx)
	assert.Equal(t, StatusDegraded, check.Status)
	assert.Contains(t, check.Message, "cleartext")
}

func TestPINChecker_PlaintextAfterSealing(t *testing.T) {
	ctx := context.Background()
	port := persistence.NewMemory()
	gate := testGate(port)

	_, err := gate.SetPIN(ctx, "4821", "4821")
	require.NoError(t, err)
	require.NoError(t, gate.MarkSealed(ctx))
	require.NoError(t, port.Save(ctx, persistence.KeyEntries, []byte(`[]`)))

	check := NewPINChecker(port, gate).Check(ctx)
	assert.Equal(t, StatusUnhealthy, check.Status)
	assert.Equal(t, true, check.Details["sealed"])
}

func TestStorageChecker_Unreadable(t *testing.T) {
	ctx := context.Background()
	port := persistence.NewMemory()
	require.NoError(t, port.Save(ctx, persistence.KeyEntries, []byte(`{"unexpected":true}`)))

	check := NewStorageChecker(port).Check(ctx)
	assert.Equal(t, StatusUnhealthy, check.Status)

	require.NoError(t, port.Close())
	check = NewStorageChecker(port).Check(ctx)
	assert.Equal(t, StatusUnhealthy, check.Status)
	assert.Contains(t, check.Message, "failed to read entries")
}

func TestPingChecker(t *testing.T) {
	port := &pingerPort{Memory: persistence.NewMemory()}

	report := NewVaultService("dev", port, testGate(port)).CheckHealth(context.Background())
	assert.Equal(t, StatusHealthy, report.Checks["connection"].Status)

	port.err = errors.New("connection refused")
	check := NewPingChecker(port).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, check.Status)
	assert.Contains(t, check.Message, "connection refused")
}
