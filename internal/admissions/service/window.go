package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const (
	TicketWindowSize = 20
	NotifyWindowSize = 10
)

// forEachWindow runs fn over items in consecutive windows of size, waiting for
// every call in a window to settle before dispatching the next. The returned
// slice holds each item's error (nil on success); a panic in fn becomes that
// item's error. Items not started because ctx ended get ctx.Err().
func forEachWindow[T any](ctx context.Context, items []T, size int, fn func(ctx context.Context, i int, item T) error) []error {
	if size <= 0 {
		size = 1
	}
	errs := make([]error, len(items))

	for start := 0; start < len(items); start += size {
		if err := ctx.Err(); err != nil {
			for i := start; i < len(items); i++ {
				errs[i] = err
			}
			break
		}

		end := min(start+size, len(items))
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("panic: %v", r)
					}
					errs[i] = err
				}()
				return fn(ctx, i, items[i])
			})
		}
		_ = g.Wait()
	}

	return errs
}
