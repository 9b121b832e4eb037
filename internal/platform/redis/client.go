package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/lifecycle/pkg/config"
)

// NewClient returns nil when no redis URL is configured; the scheduler then
// runs without a cross-replica lease.
func NewClient(lc fx.Lifecycle, l *zap.SugaredLogger, cfg *cfgpkg.Config) (*goredis.Client, error) {
	if cfg.Redis.URL == "" {
		l.Warnw("redis url is empty, job lease disabled; run a single replica")
		return nil, nil
	}
	opt, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Redis.Password != "" {
		opt.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opt.DB = cfg.Redis.DB
	}
	cli := goredis.NewClient(opt)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := cli.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping: %w", err)
			}
			l.Infow("connected to redis", "addr", opt.Addr, "db", opt.DB)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			l.Infow("closing redis client")
			return cli.Close()
		},
	})
	return cli, nil
}

var Module = fx.Options(
	fx.Provide(NewClient),
	fx.Provide(NewLeaseFromConfig),
)
