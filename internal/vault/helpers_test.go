package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/koyif/securevault/internal/persistence"
)

var errDiskFull = errors.New("disk full")

// flakyPort wraps a memory port and fails saves while failSave is set.
type flakyPort struct {
	*persistence.Memory

	mu       sync.Mutex
	failSave bool
	saves    int
}

func newFlakyPort() *flakyPort {
	return &flakyPort{Memory: persistence.NewMemory()}
}

func (p *flakyPort) Save(ctx context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failSave {
		return errDiskFull
	}
	p.saves++
	return p.Memory.Save(ctx, key, value)
}

func (p *flakyPort) setFail(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failSave = fail
}

func fixedClock() func() time.Time {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func openStore(t *testing.T, port persistence.Port, opts ...Option) *Store {
	t.Helper()

	opts = append([]Option{WithClock(fixedClock()), WithIDGenerator(sequentialIDs())}, opts...)
	s, err := Open(context.Background(), port, opts...)
	require.NoError(t, err)

	return s
}

func mustCreate(t *testing.T, s *Store, d Draft) Entry {
	t.Helper()

	e, err := s.Create(context.Background(), d)
	require.NoError(t, err)

	return e
}
