package job

import (
	"context"
	"fmt"
	"time"

	"github.com/fatflowers/lifecycle/pkg/logctx"
	"github.com/fatflowers/lifecycle/pkg/types"
)

// AdvertLimitPeriod is how long a posting quota lasts before it is reset.
const AdvertLimitPeriod = 45 * 24 * time.Hour

// ExpirePosts marks active and paused listings past job_post_expiry as expired.
func (s *Service) ExpirePosts(ctx context.Context, now time.Time) (types.Count, error) {
	n, err := s.store.ExpireJobPosts(ctx, now)
	if err != nil {
		return types.Count{}, fmt.Errorf("expire job posts: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("job_posts_expired", "expired", n)
	return types.Count{Key: "expired", Value: n}, nil
}

// ResetAdvertLimits zeroes posting quotas whose period started more than
// AdvertLimitPeriod ago.
func (s *Service) ResetAdvertLimits(ctx context.Context, now time.Time) (types.Count, error) {
	n, err := s.store.ResetAdvertLimits(ctx, now.Add(-AdvertLimitPeriod), now)
	if err != nil {
		return types.Count{}, fmt.Errorf("reset advert limits: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("advert_limits_reset", "reset", n)
	return types.Count{Key: "reset", Value: n}, nil
}
