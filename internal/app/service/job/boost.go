package job

import (
	"context"
	"fmt"
	"time"

	"github.com/fatflowers/lifecycle/pkg/logctx"
)

type BoostSummary struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

func (s BoostSummary) Counts() map[string]int64 {
	return map[string]int64{"processed": int64(s.Processed), "failed": int64(s.Failed)}
}

// ExpireBoosts clears is_boosted on every job whose boost ended before now.
// BoostExpiry is left in place as history. A job another run already
// cleared is neither processed nor failed.
func (s *Service) ExpireBoosts(ctx context.Context, now time.Time) (*BoostSummary, error) {
	log := logctx.FromCtx(ctx, s.log)

	jobs, err := s.store.ScanExpiredBoosts(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("scan expired boosts: %w", err)
	}

	sum := &BoostSummary{}
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		changed, err := s.store.ClearBoost(ctx, j.ID)
		if err != nil {
			sum.Failed++
			log.Errorw("boost_expire_failed", "job_id", j.JobID, "id", j.ID, "err", err)
			continue
		}
		if changed {
			sum.Processed++
		}
	}
	log.Infow("boost_expiry_done", "candidates", len(jobs), "processed", sum.Processed, "failed", sum.Failed)
	return sum, nil
}
