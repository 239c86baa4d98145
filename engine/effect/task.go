package effect

import (
	"context"
	"sync"
)

// Task is a value that becomes available once. It is safe for concurrent use.
type Task[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
}

// NewTask creates a pending task.
func NewTask[T any]() *Task[T] {
	return &Task[T]{done: make(chan struct{})}
}

// CompletedTask creates a task that already holds v.
func CompletedTask[T any](v T) *Task[T] {
	t := NewTask[T]()
	t.Complete(v)
	return t
}

// Complete stores v and releases waiters. Only the first call has an effect.
func (t *Task[T]) Complete(v T) {
	t.once.Do(func() {
		t.value = v
		close(t.done)
	})
}

// IsCompleted reports whether the value is available.
func (t *Task[T]) IsCompleted() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed on completion.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Result returns the value without blocking.
func (t *Task[T]) Result() (T, bool) {
	if !t.IsCompleted() {
		var zero T
		return zero, false
	}
	return t.value, true
}

// Wait blocks until the value is available or ctx is done.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
