// Package task runs one-shot background work and delivers its result once,
// either to a waiter or to a completion callback.
package task

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// PanicError is returned by a task whose function panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Task is a handle on a function running in its own goroutine. The result
// is written once and never changes afterwards.
type Task[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc

	value T
	err   error

	mu        sync.Mutex
	finished  bool
	callbacks []func(T, error)
}

// Run starts fn on a new goroutine. The context passed to fn is canceled by
// Cancel, by the parent, or after fn returns.
func Run[T any](parent context.Context, fn func(ctx context.Context) (T, error)) *Task[T] {
	ctx, cancel := context.WithCancel(parent)
	t := &Task[T]{done: make(chan struct{}), cancel: cancel}
	go t.run(ctx, fn)
	return t
}

func (t *Task[T]) run(ctx context.Context, fn func(ctx context.Context) (T, error)) {
	var (
		value T
		err   error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Value: r, Stack: debug.Stack()}
			}
		}()
		value, err = fn(ctx)
	}()
	t.cancel()

	t.mu.Lock()
	t.value, t.err = value, err
	t.finished = true
	callbacks := t.callbacks
	t.callbacks = nil
	t.mu.Unlock()

	for _, cb := range callbacks {
		cb(value, err)
	}
	close(t.done)
}

// Done is closed when the task has finished and its completion callbacks
// have returned.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx ends. Giving up on the wait does
// not cancel the task.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel asks the task to stop by canceling its context. The task still
// finishes normally and reports whatever its function returned.
func (t *Task[T]) Cancel() {
	t.cancel()
}

// Then registers cb to receive the result exactly once. Callbacks registered
// before completion run on the task goroutine in registration order; after
// completion cb runs immediately on the caller's goroutine.
func (t *Task[T]) Then(cb func(T, error)) {
	t.mu.Lock()
	if !t.finished {
		t.callbacks = append(t.callbacks, cb)
		t.mu.Unlock()
		return
	}
	value, err := t.value, t.err
	t.mu.Unlock()
	cb(value, err)
}
