package async_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/csvpull/pkg/utils/async"
	"github.com/m-mizutani/csvpull/pkg/utils/logging"
)

// safeBuffer is a thread-safe buffer for concurrent logging
type safeBuffer struct {
	b bytes.Buffer
	m sync.Mutex
}

func (sb *safeBuffer) Write(p []byte) (int, error) {
	sb.m.Lock()
	defer sb.m.Unlock()
	return sb.b.Write(p)
}

func (sb *safeBuffer) String() string {
	sb.m.Lock()
	defer sb.m.Unlock()
	return sb.b.String()
}

func TestGroup(t *testing.T) {
	t.Run("runs all handlers", func(t *testing.T) {
		var count atomic.Int32
		g := async.NewGroup(context.Background(), 2)
		for range 5 {
			g.Go(func(ctx context.Context) error {
				count.Add(1)
				return nil
			})
		}

		gt.NoError(t, g.Wait())
		gt.Equal(t, count.Load(), int32(5))
	})

	t.Run("error does not stop other handlers", func(t *testing.T) {
		var count atomic.Int32
		g := async.NewGroup(context.Background(), 1)
		g.Go(func(ctx context.Context) error {
			return errors.New("test error")
		})
		g.Go(func(ctx context.Context) error {
			count.Add(1)
			return nil
		})

		err := g.Wait()
		gt.Error(t, err)
		gt.String(t, err.Error()).Contains("test error")
		gt.Equal(t, count.Load(), int32(1))
	})

	t.Run("recovers from panic with stack trace", func(t *testing.T) {
		logBuf := &safeBuffer{}
		logger := slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelError}))
		ctx := logging.With(context.Background(), logger)

		g := async.NewGroup(ctx, 0)
		g.Go(func(ctx context.Context) error {
			panic("test panic with stack")
		})

		err := g.Wait()
		gt.Error(t, err)
		gt.String(t, err.Error()).Contains("panic in async handler")

		logOutput := logBuf.String()
		gt.String(t, logOutput).Contains("panic in async handler")
		gt.String(t, logOutput).Contains("test panic with stack")
		gt.String(t, logOutput).Contains("goroutine")
		gt.String(t, logOutput).Contains("dispatch_test.go")
	})

	t.Run("respects limit", func(t *testing.T) {
		var running, peak atomic.Int32
		g := async.NewGroup(context.Background(), 2)
		for range 6 {
			g.Go(func(ctx context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}

		gt.NoError(t, g.Wait())
		gt.True(t, peak.Load() <= 2)
	})

	t.Run("passes context to handlers", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(&safeBuffer{}, nil))
		ctx := logging.With(context.Background(), logger)

		g := async.NewGroup(ctx, 0)
		g.Go(func(ctx context.Context) error {
			gt.Value(t, logging.From(ctx)).Equal(logger)
			return nil
		})
		gt.NoError(t, g.Wait())
	})
}

func TestDispatch(t *testing.T) {
	t.Run("reports every item", func(t *testing.T) {
		items := []string{"a", "b", "fail", "d"}
		results := make([]error, len(items))
		seen := make([]string, len(items))

		err := async.Dispatch(context.Background(), 2, items,
			func(ctx context.Context, idx int, item string) error {
				seen[idx] = item
				if item == "fail" {
					return errors.New("item failed")
				}
				return nil
			},
			func(idx int, err error) {
				results[idx] = err
			},
		)

		gt.Error(t, err)
		gt.Value(t, seen).Equal(items)
		gt.NoError(t, results[0])
		gt.NoError(t, results[1])
		gt.Error(t, results[2])
		gt.NoError(t, results[3])
	})

	t.Run("panic is reported as item error", func(t *testing.T) {
		ctx := logging.With(context.Background(), slog.New(slog.NewTextHandler(&safeBuffer{}, nil)))
		results := make([]error, 2)

		err := async.Dispatch(ctx, 0, []int{1, 2},
			func(ctx context.Context, idx int, item int) error {
				if item == 2 {
					panic("boom")
				}
				return nil
			},
			func(idx int, err error) {
				results[idx] = err
			},
		)

		gt.Error(t, err)
		gt.NoError(t, results[0])
		gt.Error(t, results[1])
	})

	t.Run("panic is recovered once and reported once", func(t *testing.T) {
		logBuf := &safeBuffer{}
		ctx := logging.With(context.Background(), slog.New(slog.NewTextHandler(logBuf, nil)))
		var calls atomic.Int32

		err := async.Dispatch(ctx, 1, []int{1},
			func(ctx context.Context, idx int, item int) error {
				panic("single boom")
			},
			func(idx int, err error) {
				calls.Add(1)
				gt.Error(t, err)
			},
		)

		gt.Error(t, err)
		gt.Equal(t, calls.Load(), int32(1))
		gt.Equal(t, strings.Count(logBuf.String(), "panic in async handler"), 1)
	})

	t.Run("no items", func(t *testing.T) {
		err := async.Dispatch(context.Background(), 1, []int{},
			func(ctx context.Context, idx int, item int) error { return nil },
			nil,
		)
		gt.NoError(t, err)
	})
}
