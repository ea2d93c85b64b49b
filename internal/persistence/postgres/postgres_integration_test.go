//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pg "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/koyif/securevault/internal/persistence"
)

func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := pg.Run(
		ctx,
		"postgres:16-alpine",
		pg.WithDatabase("vault"),
		pg.WithUsername("vault"),
		pg.WithPassword("vault"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	return dsn
}

func TestPort_Integration(t *testing.T) {
	ctx := context.Background()
	dsn := startPostgres(ctx, t)

	port, err := Open(ctx, dsn, nil)
	require.NoError(t, err)
	defer port.Close()

	_, err = port.Load(ctx, persistence.KeyEntries)
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	require.NoError(t, port.Save(ctx, persistence.KeyEntries, []byte(`[{"id":"a"}]`)))
	require.NoError(t, port.Save(ctx, persistence.KeyEntries, []byte(`[{"id":"b"}]`)))

	data, err := port.Load(ctx, persistence.KeyEntries)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"b"}]`, string(data))

	// Reopening runs the table statement again.
	second, err := Open(ctx, dsn, nil)
	require.NoError(t, err)
	defer second.Close()

	data, err = second.Load(ctx, persistence.KeyEntries)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"b"}]`, string(data))
}
