package search

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of one request in a batch.
type BatchResult[T any] struct {
	Index int
	Value T
	Err   error
}

// Batch runs fn for every request with at most concurrency in flight and
// returns the results in request order. A failing or panicking request only
// sets its own Err.
func Batch[R, T any](ctx context.Context, reqs []R, concurrency int, fn func(context.Context, R) (T, error)) []BatchResult[T] {
	results := make([]BatchResult[T], len(reqs))
	if len(reqs) == 0 {
		return results
	}

	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, req := range reqs {
		g.Go(func() error {
			results[i].Index = i
			defer func() {
				if p := recover(); p != nil {
					results[i].Err = fmt.Errorf("request %d panicked: %v", i, p)
				}
			}()
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Value, results[i].Err = fn(ctx, req)
			return nil // one failure never cancels the others
		})
	}
	_ = g.Wait()
	return results
}
