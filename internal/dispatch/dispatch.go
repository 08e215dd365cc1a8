// Package dispatch delivers decoded event records to a handler from a pool
// of workers, the way build workers report finished nodes concurrently.
package dispatch

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/papapumpkin/cascade/internal/event"
)

// ErrNoWorkers is returned when Run is asked to start fewer than one worker.
var ErrNoWorkers = errors.New("dispatch: workers must be at least 1")

// Handler consumes one record. It must be safe for concurrent use.
type Handler interface {
	Handle(res *event.Result, stage string)
}

// Run starts workers goroutines that hand each record from records to h.
// It returns nil once records is closed and drained, or ctx's error when
// ctx is cancelled first.
func Run(ctx context.Context, records <-chan event.Record, h Handler, workers int) error {
	if workers < 1 {
		return ErrNoWorkers
	}
	g, ctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case rec, ok := <-records:
					if !ok {
						return nil
					}
					h.Handle(rec.Result, rec.Stage)
				}
			}
		})
	}
	return g.Wait()
}
