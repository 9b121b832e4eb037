package window

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type boostRow struct {
	ID          string
	IsBoosted   bool
	BoostExpiry *time.Time
}

func dryRunDB(t *testing.T) (*gorm.DB, *[]string) {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=test dbname=test sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	var sqls []string
	capture := func(tx *gorm.DB) { sqls = append(sqls, tx.Statement.SQL.String()) }
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:capture_query", capture))
	return db, &sqls
}

func TestRange_Contains(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time { v := now.Add(d); return &v }

	tests := []struct {
		name string
		r    Range
		t    *time.Time
		want bool
	}{
		{name: "between lower bound inclusive", r: Between("f", now, now.Add(time.Hour)), t: at(0), want: true},
		{name: "between upper bound exclusive", r: Between("f", now, now.Add(time.Hour)), t: at(time.Hour), want: false},
		{name: "between inside", r: Between("f", now, now.Add(time.Hour)), t: at(time.Minute), want: true},
		{name: "between before", r: Between("f", now, now.Add(time.Hour)), t: at(-time.Second), want: false},
		{name: "before is strict", r: Before("f", now), t: at(0), want: false},
		{name: "before earlier", r: Before("f", now), t: at(-time.Nanosecond), want: true},
		{name: "at or before includes bound", r: AtOrBefore("f", now), t: at(0), want: true},
		{name: "at or before later", r: AtOrBefore("f", now), t: at(time.Nanosecond), want: false},
		{name: "since includes bound", r: Since("f", now), t: at(0), want: true},
		{name: "since earlier", r: Since("f", now), t: at(-time.Second), want: false},
		{name: "nil never matches", r: Range{Field: "f"}, t: nil, want: false},
		{name: "unbounded matches set value", r: Range{Field: "f"}, t: at(0), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.r.Contains(tt.t))
		})
	}
}

func TestScan_BuildsWindowPredicate(t *testing.T) {
	db, sqls := dryRunDB(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	rows, err := Scan[boostRow](context.Background(), db, Before("boost_expiry", now), clause.Eq{Column: "is_boosted", Value: true})
	require.NoError(t, err)
	require.Empty(t, rows)
	require.Len(t, *sqls, 1)
	require.Contains(t, (*sqls)[0], `"boost_expiry" < $1`)
	require.Contains(t, (*sqls)[0], `"is_boosted" = $2`)
}

func TestCount_BetweenAndUnbounded(t *testing.T) {
	db, sqls := dryRunDB(t)
	now := time.Now()

	_, err := Count[boostRow](context.Background(), db, Between("boost_expiry", now, now.Add(24*time.Hour)))
	require.NoError(t, err)
	_, err = Count[boostRow](context.Background(), db, Range{Field: "boost_expiry"})
	require.NoError(t, err)

	require.Len(t, *sqls, 2)
	require.Contains(t, (*sqls)[0], `"boost_expiry" >= $1 AND "boost_expiry" < $2`)
	require.Contains(t, (*sqls)[1], `"boost_expiry" IS NOT NULL`)
}

func TestRange_String(t *testing.T) {
	lo := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "f in [2025-01-01T00:00:00Z, 2025-01-02T00:00:00Z)", Between("f", lo, lo.AddDate(0, 0, 1)).String())
	require.Equal(t, "f in (-inf, 2025-01-01T00:00:00Z]", AtOrBefore("f", lo).String())
}
