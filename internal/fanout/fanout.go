// Package fanout runs independent operations side by side and waits for all
// of them. A failing operation never cancels or hides its siblings.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/go-calendar-relay/internal/errors"
)

// Collect calls fn once per item concurrently and waits for every call.
// Results of successful calls are returned in input order. Failures are
// returned together as an *errors.AggregateError, also in input order.
func Collect[S any, R any](ctx context.Context, items []S, fn func(context.Context, S) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))
	ok := make([]bool, len(items))

	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			r, err := fn(ctx, item)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = r
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	collected := make([]R, 0, len(items))
	for i := range results {
		if ok[i] {
			collected = append(collected, results[i])
		}
	}
	return collected, errors.Aggregate(errs)
}

// Run is Collect for operations without a result.
func Run[S any](ctx context.Context, items []S, fn func(context.Context, S) error) error {
	_, err := Collect(ctx, items, func(ctx context.Context, item S) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})
	return err
}
