package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSettle_IsolatesFailuresAndPanics(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	outcomes := Settle(context.Background(), 2, items, func(_ context.Context, n int) error {
		switch n {
		case 2:
			return errors.New("boom")
		case 4:
			panic("kaboom")
		}
		return nil
	})

	require.Len(t, outcomes, len(items))
	for i, o := range outcomes {
		require.Equal(t, items[i], o.Item, "outcomes keep input order")
	}
	require.EqualError(t, outcomes[1].Err, "boom")
	require.ErrorContains(t, outcomes[3].Err, "panic: kaboom")
	require.NoError(t, outcomes[0].Err)
	require.NoError(t, outcomes[4].Err)
	require.Len(t, Failed(outcomes), 2)
}

func TestSettle_RespectsLimit(t *testing.T) {
	var inflight, peak atomic.Int32
	items := make([]int, 20)
	Settle(context.Background(), 3, items, func(_ context.Context, _ int) error {
		cur := inflight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inflight.Add(-1)
		return nil
	})
	require.LessOrEqual(t, peak.Load(), int32(3))
}

func TestSettle_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var called atomic.Int32
	outcomes := Settle(ctx, 0, []string{"a", "b"}, func(context.Context, string) error {
		called.Add(1)
		return nil
	})
	require.Equal(t, int32(0), called.Load())
	for _, o := range outcomes {
		require.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestSettle_Empty(t *testing.T) {
	require.Empty(t, Settle(context.Background(), 4, []int(nil), func(context.Context, int) error { return nil }))
}
