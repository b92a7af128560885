package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestForEachWindowBoundsConcurrency(t *testing.T) {
	t.Parallel()

	items := make([]int, 47)
	var flight inflight
	var started atomic.Int32

	errs := forEachWindow(t.Context(), items, 10, func(ctx context.Context, i int, _ int) error {
		defer flight.enter()()
		started.Add(1)
		time.Sleep(2 * time.Millisecond)
		if i == 13 {
			return errors.New("thirteen")
		}
		return nil
	})

	require.Len(t, errs, 47)
	require.EqualValues(t, 47, started.Load())
	require.LessOrEqual(t, flight.peak.Load(), int32(10))
	require.EqualError(t, errs[13], "thirteen")
	require.NoError(t, errs[12])
}

func TestForEachWindowRecoversPanics(t *testing.T) {
	t.Parallel()

	errs := forEachWindow(t.Context(), []string{"a", "b"}, 20, func(ctx context.Context, i int, s string) error {
		if s == "b" {
			panic("kaboom")
		}
		return nil
	})

	require.NoError(t, errs[0])
	require.ErrorContains(t, errs[1], "panic: kaboom")
}

func TestForEachWindowStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	errs := forEachWindow(ctx, make([]int, 5), 2, func(ctx context.Context, i int, _ int) error {
		if i == 1 {
			cancel()
		}
		return nil
	})

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	for _, err := range errs[2:] {
		require.ErrorIs(t, err, context.Canceled)
	}
}
