// Package fanout runs one function per item with bounded concurrency and
// collects every item's outcome. A failing item never cancels its siblings.
package fanout

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// Outcome is the settled result of one item.
type Outcome[T any] struct {
	Item T
	Err  error
}

// Settle calls fn for every item, at most limit at a time (limit <= 0 means
// unbounded), and returns outcomes in input order. A panic in fn becomes
// that item's error.
func Settle[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) error) []Outcome[T] {
	outcomes := make([]Outcome[T], len(items))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		outcomes[i].Item = item
		g.Go(func() error {
			outcomes[i].Err = call(ctx, item, fn)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func call[T any](ctx context.Context, item T, fn func(ctx context.Context, item T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, item)
}

// Failed returns the outcomes that carry an error.
func Failed[T any](outcomes []Outcome[T]) []Outcome[T] {
	var failed []Outcome[T]
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}
