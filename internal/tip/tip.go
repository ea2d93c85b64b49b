// Package tip supplies short security tips shown alongside the vault. Tips never depend
// on or touch vault data.
package tip

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
)

// FallbackTip is shown when no tip could be fetched.
const FallbackTip = "Could not fetch a security tip right now. Use a unique password for every account."

// DefaultTimeout bounds a single fetch.
const DefaultTimeout = 3 * time.Second

// Fetcher returns one security tip.
type Fetcher interface {
	FetchTip(ctx context.Context) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (string, error)

// FetchTip calls f.
func (f FetcherFunc) FetchTip(ctx context.Context) (string, error) {
	return f(ctx)
}

var builtin = []string{
	"Use a different password for every account so one breach cannot unlock the rest.",
	"Turn on two-factor authentication for your email first. It is the reset channel for everything else.",
	"Longer beats cleverer: a 16 character random password is far stronger than a short one with symbols.",
	"Never reuse your vault PIN anywhere else.",
	"Check the address bar before typing a password. Phishing pages often differ by a single letter.",
	"Export a backup after adding important entries and keep it somewhere offline.",
	"Rotate passwords for accounts that appear in a breach notification immediately.",
	"Security questions are passwords too. Answer them with random values and store those here.",
	"Lock your screen when you step away. An unlocked session exposes every saved password.",
	"Be wary of password reset emails you did not request. Do not click their links.",
}

// Static picks tips from a built-in list.
type Static struct {
	tips []string
	rand io.Reader
}

// NewStatic returns a fetcher over tips, or the built-in list when tips is empty.
func NewStatic(tips ...string) *Static {
	if len(tips) == 0 {
		tips = builtin
	}
	return &Static{tips: tips, rand: rand.Reader}
}

// FetchTip returns a uniformly chosen tip.
func (s *Static) FetchTip(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	i, err := rand.Int(s.rand, big.NewInt(int64(len(s.tips))))
	if err != nil {
		return "", fmt.Errorf("failed to pick tip: %w", err)
	}

	return s.tips[i.Int64()], nil
}

// Resilient wraps a fetcher so that fetching never fails.
type Resilient struct {
	fetcher Fetcher
	timeout time.Duration
	logger  *zap.Logger
}

// NewResilient wraps fetcher. A non-positive timeout uses DefaultTimeout.
func NewResilient(fetcher Fetcher, timeout time.Duration, logger *zap.Logger) *Resilient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resilient{fetcher: fetcher, timeout: timeout, logger: logger}
}

// Tip returns a tip, or FallbackTip when the fetcher fails, times out or returns nothing.
func (r *Resilient) Tip(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		tip string
		err error
	}
	done := make(chan result, 1)

	go func() {
		tip, err := r.fetcher.FetchTip(ctx)
		done <- result{tip, err}
	}()

	select {
	case res := <-done:
		tip := strings.TrimSpace(res.tip)
		if res.err != nil || tip == "" {
			if res.err == nil {
				res.err = errors.New("empty tip")
			}
			r.logger.Warn("failed to fetch security tip", zap.Error(res.err))
			return FallbackTip
		}
		return tip
	case <-ctx.Done():
		r.logger.Warn("security tip fetch timed out", zap.Duration("timeout", r.timeout))
		return FallbackTip
	}
}

// FetchTip implements Fetcher and never returns an error.
func (r *Resilient) FetchTip(ctx context.Context) (string, error) {
	return r.Tip(ctx), nil
}
