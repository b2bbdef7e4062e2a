package future

import (
	"context"
	"sync"
)

type result[T any] struct {
	v   T
	err error
}

// Future is a single-shot result that completes exactly once.
type Future[T any] struct {
	doneChannel chan struct{}
	res         result[T]
	once        sync.Once
}

// New runs fn in a goroutine and completes the Future when fn returns.
func New[T any](fn func() (T, error)) *Future[T] {
	f := Pending[T]()
	go func() {
		v, err := fn()
		f.Complete(v, err)
	}()
	return f
}

// Pending creates a Future completed later by Complete. The module registry
// publishes pending futures before the work producing them starts.
func Pending[T any]() *Future[T] {
	return &Future[T]{doneChannel: make(chan struct{})}
}

// FromValue creates an already-completed Future with a value.
func FromValue[T any](v T) *Future[T] {
	f := Pending[T]()
	f.Complete(v, nil)
	return f
}

// FromError creates an already-completed Future with an error.
func FromError[T any](err error) *Future[T] {
	f := Pending[T]()
	var zero T
	f.Complete(zero, err)
	return f
}

// Await blocks until completion and returns the result.
func (f *Future[T]) Await() (T, error) {
	<-f.doneChannel
	return f.res.v, f.res.err
}

// AwaitContext waits for completion or for ctx to be done, whichever comes
// first.
func (f *Future[T]) AwaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.doneChannel:
		return f.res.v, f.res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// IsDone reports completion without blocking.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.doneChannel:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the Future completes.
func (f *Future[T]) Done() <-chan struct{} { return f.doneChannel }

// Complete sets the result; only the first call has an effect. It reports
// whether this call completed the Future.
func (f *Future[T]) Complete(v T, err error) bool {
	done := false
	f.once.Do(func() {
		f.res = result[T]{v: v, err: err}
		close(f.doneChannel)
		done = true
	})
	return done
}

// All waits for all futures and returns their values in order.
// If any future fails, it returns the first error encountered.
func All[T any](futures ...*Future[T]) *Future[[]T] {
	return New(func() ([]T, error) {
		out := make([]T, len(futures))
		for i, fut := range futures {
			v, err := fut.Await()
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	})
}
