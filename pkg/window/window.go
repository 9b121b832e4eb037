// Package window selects records whose timestamp field falls inside a
// half-open or closed time range. A Range is both a pure predicate and a
// gorm clause.Expression, so the in-memory and SQL views cannot drift.
package window

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Bound is one end of a Range.
type Bound struct {
	At        time.Time
	Inclusive bool
}

// Range matches Field values between Lo and Hi. A nil bound is unbounded.
// A NULL field never matches.
type Range struct {
	Field string
	Lo    *Bound
	Hi    *Bound
}

// Between is [lo, hi).
func Between(field string, lo, hi time.Time) Range {
	return Range{Field: field, Lo: &Bound{At: lo, Inclusive: true}, Hi: &Bound{At: hi}}
}

// Before is (-inf, t).
func Before(field string, t time.Time) Range {
	return Range{Field: field, Hi: &Bound{At: t}}
}

// AtOrBefore is (-inf, t].
func AtOrBefore(field string, t time.Time) Range {
	return Range{Field: field, Hi: &Bound{At: t, Inclusive: true}}
}

// Since is [t, +inf).
func Since(field string, t time.Time) Range {
	return Range{Field: field, Lo: &Bound{At: t, Inclusive: true}}
}

// Contains reports whether t lies in the range.
func (r Range) Contains(t *time.Time) bool {
	if t == nil {
		return false
	}
	if r.Lo != nil {
		if t.Before(r.Lo.At) || (!r.Lo.Inclusive && t.Equal(r.Lo.At)) {
			return false
		}
	}
	if r.Hi != nil {
		if t.After(r.Hi.At) || (!r.Hi.Inclusive && t.Equal(r.Hi.At)) {
			return false
		}
	}
	return true
}

// Build implements clause.Expression.
func (r Range) Build(builder clause.Builder) {
	var exprs []clause.Expression
	if r.Lo != nil {
		if r.Lo.Inclusive {
			exprs = append(exprs, clause.Gte{Column: r.Field, Value: r.Lo.At})
		} else {
			exprs = append(exprs, clause.Gt{Column: r.Field, Value: r.Lo.At})
		}
	}
	if r.Hi != nil {
		if r.Hi.Inclusive {
			exprs = append(exprs, clause.Lte{Column: r.Field, Value: r.Hi.At})
		} else {
			exprs = append(exprs, clause.Lt{Column: r.Field, Value: r.Hi.At})
		}
	}
	if len(exprs) == 0 {
		builder.WriteQuoted(r.Field)
		builder.WriteString(" IS NOT NULL")
		return
	}
	clause.And(exprs...).Build(builder)
}

func (r Range) String() string {
	lo, hi := "(-inf", "+inf)"
	if r.Lo != nil {
		lo = "(" + r.Lo.At.Format(time.RFC3339)
		if r.Lo.Inclusive {
			lo = "[" + r.Lo.At.Format(time.RFC3339)
		}
	}
	if r.Hi != nil {
		hi = r.Hi.At.Format(time.RFC3339) + ")"
		if r.Hi.Inclusive {
			hi = r.Hi.At.Format(time.RFC3339) + "]"
		}
	}
	return fmt.Sprintf("%s in %s, %s", r.Field, lo, hi)
}

// Scan returns a snapshot of the T rows inside r that also satisfy conds.
// It never mutates; rows may change before the caller acts on them.
func Scan[T any](ctx context.Context, db *gorm.DB, r Range, conds ...clause.Expression) ([]*T, error) {
	var rows []*T
	if err := where(db.WithContext(ctx).Model(new(T)), r, conds).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("scan %s: %w", r, err)
	}
	return rows, nil
}

// Count returns how many T rows are inside r and satisfy conds.
func Count[T any](ctx context.Context, db *gorm.DB, r Range, conds ...clause.Expression) (int64, error) {
	var n int64
	if err := where(db.WithContext(ctx).Model(new(T)), r, conds).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", r, err)
	}
	return n, nil
}

func where(tx *gorm.DB, r Range, conds []clause.Expression) *gorm.DB {
	tx = tx.Where(r)
	for _, c := range conds {
		tx = tx.Where(c)
	}
	return tx
}
