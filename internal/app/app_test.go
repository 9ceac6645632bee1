package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type sweeperFunc func(ctx context.Context) (int64, error)

func (f sweeperFunc) DeleteExpiredSessions(ctx context.Context) (int64, error) { return f(ctx) }

func TestSweepSessions(t *testing.T) {
	var calls atomic.Int32
	s := sweeperFunc(func(context.Context) (int64, error) {
		if calls.Add(1) == 1 {
			return 0, errors.New("connection reset")
		}
		return 2, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweepSessions(ctx, zaptest.NewLogger(t), s, 5*time.Millisecond) }()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond,
		"a failed sweep must not stop the loop")
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSweepSessionsDisabled(t *testing.T) {
	s := sweeperFunc(func(context.Context) (int64, error) {
		t.Fatal("disabled sweeper ran")
		return 0, nil
	})
	require.NoError(t, sweepSessions(context.Background(), zaptest.NewLogger(t), s, 0))
}
