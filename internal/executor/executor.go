package executor

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/indigo-web/ember/http/status"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Pool is a fixed-size pool of workers. Tasks beyond the workers number wait in a
// queue of limited size; once it's full, submissions fail with status.ErrExecutorOverload.
type Pool struct {
	pool *ants.Pool
}

// New starts a pool of workers. Zero queue means tasks are never rejected, submitters
// wait for a free worker instead.
func New(workers, queue int, log *zap.Logger) (*Pool, error) {
	options := []ants.Option{
		ants.WithPreAlloc(true),
		ants.WithPanicHandler(func(p any) {
			// tasks submitted via Submit recover by themselves, so this fires only
			// for raw tasks passed to Go
			log.Error("worker task panicked", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
		}),
	}

	if queue > 0 {
		options = append(options, ants.WithMaxBlockingTasks(queue))
	}

	pool, err := ants.NewPool(workers, options...)
	if err != nil {
		return nil, err
	}

	return &Pool{pool: pool}, nil
}

// Go submits a fire-and-forget task
func (p *Pool) Go(task func()) error {
	err := p.pool.Submit(task)
	if errors.Is(err, ants.ErrPoolOverload) {
		return status.ErrExecutorOverload
	}

	return err
}

func (p *Pool) Running() int {
	return p.pool.Running()
}

// Release stops all the workers once they're done with their current tasks
func (p *Pool) Release() {
	p.pool.Release()
}

// Future is the result of a task that will be available once it's done
type Future[T any] struct {
	done   chan struct{}
	result T
	err    error
}

// Wait blocks until the task is done and returns its result
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.result, f.err
}

// Done returns a channel, which is closed when the task is finished
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Submit runs the task on the pool. A panic inside the task is converted into
// *status.ApplicationError, as well as a submission failure completes the future
// immediately with the error.
func Submit[T any](p *Pool, task func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	err := p.Go(func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = &status.ApplicationError{
					Err:   fmt.Errorf("panic: %v", r),
					Stack: debug.Stack(),
				}
			}
		}()

		f.result, f.err = task()
	})

	if err != nil {
		f.err = err
		close(f.done)
	}

	return f
}
