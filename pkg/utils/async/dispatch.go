package async

import (
	"context"
	"runtime/debug"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/m-mizutani/csvpull/pkg/utils/logging"
)

// Group runs handlers on goroutines with an upper bound on how many run at once
//
// Behavior:
//   - A failing or panicking handler does not cancel the others
//   - Panics are recovered, logged with a stack trace and turned into errors
//   - Wait returns the first handler error after all handlers have finished
type Group struct {
	ctx context.Context
	eg  errgroup.Group
}

// NewGroup creates a Group. A limit <= 0 means no limit.
func NewGroup(ctx context.Context, limit int) *Group {
	g := &Group{ctx: ctx}
	if limit > 0 {
		g.eg.SetLimit(limit)
	}
	return g
}

// Go starts handler, blocking while the group is at its limit
func (g *Group) Go(handler func(ctx context.Context) error) {
	g.eg.Go(func() error {
		return call(g.ctx, handler)
	})
}

// Wait blocks until every handler has returned
func (g *Group) Wait() error {
	return g.eg.Wait()
}

// Dispatch executes handler once per item with at most limit handlers running at once.
// onDone, if given, receives every item's error (nil on success, including recovered panics)
// as soon as that item finishes. The first error is also returned once all items are done.
func Dispatch[T any](ctx context.Context, limit int, items []T, handler func(ctx context.Context, idx int, item T) error, onDone func(idx int, err error)) error {
	g := NewGroup(ctx, limit)

	for i, item := range items {
		g.eg.Go(func() error {
			err := call(g.ctx, func(ctx context.Context) error {
				return handler(ctx, i, item)
			})
			if onDone != nil {
				onDone(i, err)
			}
			return err
		})
	}

	return g.Wait()
}

func call(ctx context.Context, handler func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			logging.From(ctx).Error("panic in async handler",
				"recover", r,
				"stack", string(stack))
			err = goerr.New("panic in async handler", goerr.V("recover", r))
		}
	}()

	return handler(ctx)
}
