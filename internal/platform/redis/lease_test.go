package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newLease(t *testing.T, ttl, minHold time.Duration) (*Lease, *miniredis.Miniredis, *fakeClock) {
	t.Helper()
	m := miniredis.RunT(t)
	cli := goredis.NewClient(&goredis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = cli.Close() })
	clock := &fakeClock{t: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)}
	l := NewLease(cli, ttl, minHold)
	l.now = clock.Now
	return l, m, clock
}

func TestLease_ExclusiveUntilReleased(t *testing.T) {
	ctx := context.Background()
	l, m, clock := newLease(t, time.Minute, 0)

	lock, err := l.Lock(ctx, "renewal")
	require.NoError(t, err)
	require.True(t, m.Exists(keyPrefix+"renewal"))

	_, err = l.Lock(ctx, "renewal")
	require.ErrorIs(t, err, ErrLeaseHeld)

	other, err := l.Lock(ctx, "reminders")
	require.NoError(t, err, "leases are per job")

	clock.Advance(time.Second)
	require.NoError(t, lock.Unlock(ctx))
	require.False(t, m.Exists(keyPrefix+"renewal"))
	require.NoError(t, other.Unlock(ctx))

	again, err := l.Lock(ctx, "renewal")
	require.NoError(t, err)
	require.NoError(t, again.Unlock(ctx))
}

func TestLease_MinHoldKeepsShortRunsLeased(t *testing.T) {
	ctx := context.Background()
	l, m, clock := newLease(t, time.Minute, 30*time.Second)

	lock, err := l.Lock(ctx, "health")
	require.NoError(t, err)
	clock.Advance(10 * time.Second)
	require.NoError(t, lock.Unlock(ctx))

	require.True(t, m.Exists(keyPrefix+"health"), "a run shorter than min hold keeps the lease")
	ttl := m.TTL(keyPrefix + "health")
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, 20*time.Second)

	_, err = l.Lock(ctx, "health")
	require.ErrorIs(t, err, ErrLeaseHeld)

	m.FastForward(21 * time.Second)
	lock, err = l.Lock(ctx, "health")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	require.NoError(t, lock.Unlock(ctx))
	require.False(t, m.Exists(keyPrefix+"health"))
}

func TestLease_ExpiredHolderCannotReleaseSuccessor(t *testing.T) {
	ctx := context.Background()
	l, m, _ := newLease(t, time.Minute, 0)

	stale, err := l.Lock(ctx, "boost_expiry")
	require.NoError(t, err)
	m.FastForward(2 * time.Minute)

	fresh, err := l.Lock(ctx, "boost_expiry")
	require.NoError(t, err)

	require.NoError(t, stale.Unlock(ctx))
	require.True(t, m.Exists(keyPrefix+"boost_expiry"), "stale token must not delete the new holder's lease")
	require.NoError(t, fresh.Unlock(ctx))
	require.False(t, m.Exists(keyPrefix+"boost_expiry"))
}

func TestNewLeaseFromConfig_NilClient(t *testing.T) {
	require.Nil(t, NewLeaseFromConfig(nil, nil))
}
