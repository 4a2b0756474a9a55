// Package fileproc provides concurrent file processing with ordered result
// delivery.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/treegrep/treegrep/pkg/parser"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWindowMultiplier sizes the dispatch window relative to the worker
// count. Dispatch blocks once that many results are in flight but not yet
// emitted, bounding reorder-buffer memory.
const DefaultWindowMultiplier = 4

// Options tunes a MapOrdered run.
type Options struct {
	// Workers is the pool size (0 = number of logical CPUs).
	Workers int
	// Window bounds in-flight items between dispatch and emission
	// (0 = DefaultWindowMultiplier x workers).
	Window int
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

func (o Options) window(workers int) int {
	if o.Window > 0 {
		return o.Window
	}
	return workers * DefaultWindowMultiplier
}

type seqResult[T any] struct {
	seq int
	val T
	err error
}

// MapOrdered processes items on a fixed-size worker pool and hands each
// result to emit in input order, from a single goroutine, regardless of
// completion order. Each worker borrows a parser from a per-run pool. A
// cancelled context turns the remaining items into no-ops; every item is
// still emitted (with ctx.Err()) so the sequence stays gapless.
func MapOrdered[Q any, T any](
	ctx context.Context,
	items []Q,
	opts Options,
	fn func(*parser.Parser, Q) (T, error),
	emit func(Q, T, error),
) {
	if len(items) == 0 {
		return
	}

	workers := opts.workers()
	window := opts.window(workers)

	parsers := make(chan *parser.Parser, workers)
	for i := 0; i < workers; i++ {
		parsers <- parser.New()
	}
	defer func() {
		close(parsers)
		for p := range parsers {
			p.Close()
		}
	}()

	// tokens bounds dispatch: acquired before a task is scheduled, released
	// when its result has been emitted.
	tokens := make(chan struct{}, window)
	results := make(chan seqResult[T], window)

	// The reorder goroutine is the only caller of emit. It buffers
	// out-of-order arrivals and releases the next-in-sequence result as soon
	// as it is available.
	var emitWG sync.WaitGroup
	emitWG.Add(1)
	go func() {
		defer emitWG.Done()
		pending := make(map[int]seqResult[T], window)
		next := 0
		for r := range results {
			pending[r.seq] = r
			for {
				head, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				emit(items[head.seq], head.val, head.err)
				next++
				<-tokens
			}
		}
	}()

	p := pool.New().WithMaxGoroutines(workers)
	for seq, item := range items {
		tokens <- struct{}{}
		p.Go(func() {
			// Cancellation is checked at the top of each task; in-flight work
			// is never interrupted.
			if err := ctx.Err(); err != nil {
				var zero T
				results <- seqResult[T]{seq: seq, val: zero, err: err}
				return
			}

			psr := <-parsers
			val, err := fn(psr, item)
			parsers <- psr

			results <- seqResult[T]{seq: seq, val: val, err: err}
		})
	}
	p.Wait()
	close(results)
	emitWG.Wait()
}
