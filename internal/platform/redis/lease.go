package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	goredis "github.com/redis/go-redis/v9"

	cfgpkg "github.com/fatflowers/lifecycle/pkg/config"
	"github.com/fatflowers/lifecycle/pkg/tool"
)

var ErrLeaseHeld = errors.New("lease held by another replica")

const keyPrefix = "lifecycle:lease:"

// releaseScript deletes the lease if the caller still owns it. With a
// positive ARGV[2] it shortens the lease to that many milliseconds instead,
// so a replica whose tick fires a little later still sees it taken.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
local hold = tonumber(ARGV[2])
if hold > 0 then
	return redis.call("PEXPIRE", KEYS[1], hold)
end
return redis.call("DEL", KEYS[1])`)

// Lease is a gocron.Locker backed by SET NX PX. TTL bounds how long a
// crashed holder blocks a job; MinHold is the least time a lease is kept
// after it was taken.
type Lease struct {
	cli     goredis.UniversalClient
	ttl     time.Duration
	minHold time.Duration
	now     func() time.Time
}

var _ gocron.Locker = (*Lease)(nil)

func NewLease(cli goredis.UniversalClient, ttl, minHold time.Duration) *Lease {
	return &Lease{cli: cli, ttl: ttl, minHold: minHold, now: time.Now}
}

// NewLeaseFromConfig returns nil without a redis client.
func NewLeaseFromConfig(cli *goredis.Client, cfg *cfgpkg.Config) *Lease {
	if cli == nil {
		return nil
	}
	return NewLease(cli, cfg.Redis.LeaseTTL, cfg.Redis.LeaseMinHold)
}

// Lock takes the lease for key or fails with ErrLeaseHeld.
func (l *Lease) Lock(ctx context.Context, key string) (gocron.Lock, error) {
	token := tool.GenerateUUIDV7()
	k := keyPrefix + key
	ok, err := l.cli.SetNX(ctx, k, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLeaseHeld, key)
	}
	return &heldLease{lease: l, key: k, token: token, acquired: l.now()}, nil
}

type heldLease struct {
	lease    *Lease
	key      string
	token    string
	acquired time.Time
}

func (h *heldLease) Unlock(ctx context.Context) error {
	var holdMs int64
	if remaining := h.lease.minHold - h.lease.now().Sub(h.acquired); remaining > 0 {
		holdMs = remaining.Milliseconds()
		if holdMs == 0 {
			holdMs = 1
		}
	}
	if err := releaseScript.Run(ctx, h.lease.cli, []string{h.key}, h.token, holdMs).Err(); err != nil {
		return fmt.Errorf("release lease %s: %w", h.key, err)
	}
	return nil
}
