package loader

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/paulmach/orb/geojson"
)

// Poster queues a function on the event loop. mapview.Loop satisfies it.
type Poster interface {
	Post(fn func()) bool
}

// FetchFunc loads one dataset.
type FetchFunc func(ctx context.Context, ref string) (*geojson.FeatureCollection, error)

// DoneFunc receives the outcome of a load on the event loop.
type DoneFunc func(fc *geojson.FeatureCollection, err error)

// Task is one in-flight load. Once cancelled, its result is dropped when
// it reaches the loop instead of being applied.
type Task struct {
	ref       string
	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}
}

// Start fetches ref on its own goroutine and posts done to the loop.
// done is never called for a cancelled task.
func Start(ctx context.Context, loop Poster, fetch FetchFunc, ref string, done DoneFunc) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		ref:    ref,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		fc, err := fetch(ctx, ref)
		if errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%s: %w", ref, ErrCancelled)
		}
		posted := loop.Post(func() {
			if t.cancelled.Load() {
				return
			}
			done(fc, err)
		})
		if !posted {
			t.cancelled.Store(true)
		}
	}()
	return t
}

// Ref is the dataset reference being loaded.
func (t *Task) Ref() string { return t.ref }

// Cancel stops the fetch and discards any result still on its way.
func (t *Task) Cancel() {
	t.cancelled.Store(true)
	t.cancel()
}

// Cancelled reports whether the result will be discarded.
func (t *Task) Cancelled() bool { return t.cancelled.Load() }

// Wait blocks until the fetch goroutine has handed off its result.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
