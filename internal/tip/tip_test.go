package tip

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStatic_Builtin(t *testing.T) {
	s := NewStatic()

	for i := 0; i < 20; i++ {
		tip, err := s.FetchTip(context.Background())
		require.NoError(t, err)
		assert.Contains(t, builtin, tip)
	}
}

func TestStatic_Custom(t *testing.T) {
	tip, err := NewStatic("only one").FetchTip(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "only one", tip)
}

func TestStatic_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStatic().FetchTip(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResilient(t *testing.T) {
	tests := []struct {
		name    string
		fetcher Fetcher
		want    string
		warns   int
	}{
		{
			name:    "success",
			fetcher: FetcherFunc(func(context.Context) (string, error) { return "  rotate keys  ", nil }),
			want:    "rotate keys",
		},
		{
			name:    "error",
			fetcher: FetcherFunc(func(context.Context) (string, error) { return "", errors.New("offline") }),
			want:    FallbackTip,
			warns:   1,
		},
		{
			name:    "empty",
			fetcher: FetcherFunc(func(context.Context) (string, error) { return "   ", nil }),
			want:    FallbackTip,
			warns:   1,
		},
		{
			name: "timeout",
			fetcher: FetcherFunc(func(ctx context.Context) (string, error) {
				<-ctx.Done()
				time.Sleep(10 * time.Millisecond)
				return "too late", nil
			}),
			want:  FallbackTip,
			warns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			r := NewResilient(tt.fetcher, 20*time.Millisecond, zap.New(core))

			got, err := r.FetchTip(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.warns, logs.Len())
		})
	}
}

func TestNewResilient_Defaults(t *testing.T) {
	r := NewResilient(NewStatic(), 0, nil)
	assert.Equal(t, DefaultTimeout, r.timeout)
	assert.NotNil(t, r.logger)
}
