// Package parallel drives a callback over a lazy sequence of work items on a
// fixed pool of goroutines, bounding how many items are held at once.
package parallel

import (
	"context"
	"fmt"
	"iter"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// DefaultInFlightPerWorker sizes MaxInFlight when it is left unset.
var DefaultInFlightPerWorker = 4

// Options configure a ForEach run.
type Options struct {
	Name        string             // Used in log output.
	Workers     int                // Number of worker goroutines, <=0 means runtime.NumCPU().
	MaxInFlight int                // Maximum items submitted but not yet completed, <=0 means Workers*DefaultInFlightPerWorker.
	Logger      logrus.FieldLogger // Defaults to the logrus standard logger.

	// Describe renders an item for failure log lines.  Defaults to %v.
	Describe func(item interface{}) string
}

func (opts Options) withDefaults() Options {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = opts.Workers * DefaultInFlightPerWorker
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Name == "" {
		opts.Name = "parallel"
	}
	return opts
}

// Result summarizes a completed run.
type Result struct {
	Submitted int64
	Succeeded int64
	Failed    int64
}

// ForEach invokes fn exactly once for every item produced by items, using
// opts.Workers goroutines.  The producer blocks whenever opts.MaxInFlight items
// are outstanding, so the sequence is consumed no faster than it is processed.
//
// A callback that returns an error or panics is logged and counted in
// Result.Failed; it does not affect any other item.  ForEach returns once
// every submitted item has completed.  If ctx is cancelled no further items
// are pulled from the sequence and ctx.Err() is returned after the in-flight
// items drain.
func ForEach[T any](ctx context.Context, items iter.Seq[T], opts Options, fn func(ctx context.Context, item T) error) (*Result, error) {
	opts = opts.withDefaults()

	var (
		sem     = semaphore.NewWeighted(int64(opts.MaxInFlight))
		jobs    = make(chan T)
		workers sync.WaitGroup
		result  = &Result{}
		failed  atomic.Int64
		ok      atomic.Int64
	)

	run := func(item T) {
		defer func() {
			if r := recover(); r != nil {
				failed.Add(1)
				opts.Logger.
					WithField("job", opts.Name).
					WithField("item", describe(opts, item)).
					WithField("stack", string(debug.Stack())).
					Errorf("Recovered from panic: %v", r)
			}
			sem.Release(1)
		}()
		if err := fn(ctx, item); err != nil {
			failed.Add(1)
			opts.Logger.
				WithField("job", opts.Name).
				WithField("item", describe(opts, item)).
				Errorf("Processing failed: %s", err)
			return
		}
		ok.Add(1)
	}

	for i := 0; i < opts.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for item := range jobs {
				run(item)
			}
		}()
	}

	var err error
	for item := range items {
		// Acquire may succeed on an already cancelled context.
		if err = ctx.Err(); err != nil {
			break
		}
		if err = sem.Acquire(ctx, 1); err != nil {
			break
		}
		result.Submitted++
		jobs <- item
	}
	close(jobs)
	workers.Wait()

	result.Failed = failed.Load()
	result.Succeeded = ok.Load()

	opts.Logger.
		WithField("job", opts.Name).
		WithField("submitted", result.Submitted).
		WithField("failed", result.Failed).
		Debug("Run finished")

	return result, err
}

// ForRange is ForEach over the integers [0, n).
func ForRange(ctx context.Context, n int, opts Options, fn func(ctx context.Context, i int) error) (*Result, error) {
	seq := func(yield func(int) bool) {
		for i := 0; i < n; i++ {
			if !yield(i) {
				return
			}
		}
	}
	return ForEach(ctx, seq, opts, fn)
}

// Slice adapts a slice to a sequence.
func Slice[T any](items []T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range items {
			if !yield(item) {
				return
			}
		}
	}
}

func describe[T any](opts Options, item T) string {
	if opts.Describe != nil {
		return opts.Describe(item)
	}
	if s, ok := any(item).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", item)
}
