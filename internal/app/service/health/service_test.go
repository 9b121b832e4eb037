package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fatflowers/lifecycle/internal/models"
	"github.com/fatflowers/lifecycle/pkg/config"
	"github.com/fatflowers/lifecycle/pkg/metrics"
	"github.com/fatflowers/lifecycle/pkg/types"
	"github.com/fatflowers/lifecycle/pkg/window"
)

var now = time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)

// fakeStore evaluates the orphaned cancellation predicate over real rows
// and returns canned values for the other counters.
type fakeStore struct {
	subs      []*models.Subscription
	byStatus  map[models.ReminderStatus]int64
	canned    int64
	freePlans []string
	err       error
}

func (f *fakeStore) CountOverdueSubscriptions(context.Context, time.Time) (int64, error) {
	return f.canned, f.err
}

func (f *fakeStore) CountOrphanedCancellations(_ context.Context, cutoff time.Time) (int64, error) {
	r := window.Before("period_end_date", cutoff)
	var n int64
	for _, s := range f.subs {
		if s.IsActive && s.CancelAtPeriodEnd && r.Contains(s.PeriodEndDate) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountMissingPaymentProfile(_ context.Context, free []string) (int64, error) {
	f.freePlans = free
	return f.canned, nil
}

func (f *fakeStore) CountStaleBoosts(context.Context, time.Time) (int64, error) { return f.canned, nil }

func (f *fakeStore) ReminderStatusCounts(context.Context, time.Time) (map[models.ReminderStatus]int64, error) {
	return f.byStatus, nil
}

func (f *fakeStore) CountStuckReminders(context.Context, time.Time) (int64, error) { return f.canned, nil }

func (f *fakeStore) CountFailedRemindersSince(context.Context, time.Time) (int64, error) {
	return f.byStatus[models.ReminderStatusFailed], nil
}

func (f *fakeStore) CountRenewable(context.Context, window.Range) (int64, error) { return 4, nil }

func (f *fakeStore) CountUsersAwaitingDowngrade(context.Context, []string) (int64, error) {
	return f.canned, nil
}

func testConfig() *config.Config {
	return &config.Config{Plans: config.PlansConfig{FreeTiers: types.FreeTiers{
		types.UserTypeJobseeker: "Free",
		types.UserTypeEmployer:  "Starter",
	}}}
}

func TestCheck_OrphanedCancellation(t *testing.T) {
	twoDaysAgo := now.Add(-48 * time.Hour)
	hourAgo := now.Add(-time.Hour)
	st := &fakeStore{
		subs: []*models.Subscription{
			{ID: "orphan", IsActive: true, CancelAtPeriodEnd: true, PeriodEndDate: &twoDaysAgo},
			{ID: "recent", IsActive: true, CancelAtPeriodEnd: true, PeriodEndDate: &hourAgo},
			{ID: "done", IsActive: false, CancelAtPeriodEnd: false, PeriodEndDate: &twoDaysAgo},
		},
		byStatus: map[models.ReminderStatus]int64{},
	}
	rep, err := NewService(testConfig(), st, nil, zaptest.NewLogger(t).Sugar()).Check(context.Background(), now)
	require.NoError(t, err)
	require.EqualValues(t, 1, rep.OrphanedCancellations)
	require.EqualValues(t, 4, rep.UpcomingReminders)
	require.Zero(t, rep.ReminderSuccessRate)
	require.ElementsMatch(t, []string{"Free", "Starter"}, st.freePlans)
	require.Equal(t, []string{"1 cancellations past period end still active"}, rep.Warnings)
}

func TestCheck_ReminderRateAndGauges(t *testing.T) {
	st := &fakeStore{
		byStatus: map[models.ReminderStatus]int64{
			models.ReminderStatusSent:    17,
			models.ReminderStatusFailed:  6,
			models.ReminderStatusPending: 1,
		},
		canned: 2,
	}
	reg := prometheus.NewRegistry()
	m, err := metrics.NewJobMetrics(reg)
	require.NoError(t, err)

	rep, err := NewService(testConfig(), st, m, zaptest.NewLogger(t).Sugar()).Check(context.Background(), now)
	require.NoError(t, err)
	require.EqualValues(t, 24, rep.RemindersTotal)
	require.EqualValues(t, 17, rep.RemindersSent)
	require.Equal(t, 70.8, rep.ReminderSuccessRate)
	require.Len(t, rep.Warnings, 5)

	require.Equal(t, len(rep.Gauges()), countSeries(t, reg, "lifecycle_health_gauge"))
}

func TestCheck_QueryFailure(t *testing.T) {
	st := &fakeStore{err: errors.New("connection refused"), byStatus: map[models.ReminderStatus]int64{}}
	_, err := NewService(testConfig(), st, nil, zaptest.NewLogger(t).Sugar()).Check(context.Background(), now)
	require.ErrorContains(t, err, "overdue subscriptions")
}

func TestSuccessRate(t *testing.T) {
	require.Zero(t, successRate(0, 0))
	require.Equal(t, 100.0, successRate(3, 3))
	require.Equal(t, 66.7, successRate(2, 3))
}

func countSeries(t *testing.T, g prometheus.Gatherer, name string) int {
	t.Helper()
	n, err := testutil.GatherAndCount(g, name)
	require.NoError(t, err)
	return n
}
