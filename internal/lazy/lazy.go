// Package lazy memoizes expensive, long-lived clients across many short-lived
// invocations.
package lazy

import (
	"context"
	"sync/atomic"
)

// Value is a get-or-create holder. Concurrent first calls may each construct a
// candidate; the first to be published wins and the others are passed to the
// discard func. Construction errors are not memoized.
type Value[T any] struct {
	ptr     atomic.Pointer[T]
	create  func(ctx context.Context) (T, error)
	discard func(T)
}

// New returns a Value built by create. discard may be nil.
func New[T any](create func(ctx context.Context) (T, error), discard func(T)) *Value[T] {
	return &Value[T]{create: create, discard: discard}
}

// Get returns the memoized value, creating it on first use.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	if p := v.ptr.Load(); p != nil {
		return *p, nil
	}

	candidate, err := v.create(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if v.ptr.CompareAndSwap(nil, &candidate) {
		return candidate, nil
	}

	// Lost the race.
	if v.discard != nil {
		v.discard(candidate)
	}
	return *v.ptr.Load(), nil
}

// Peek returns the memoized value without creating one.
func (v *Value[T]) Peek() (T, bool) {
	if p := v.ptr.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

// Close discards the memoized value, if any. A later Get creates a new one.
func (v *Value[T]) Close() {
	if p := v.ptr.Swap(nil); p != nil && v.discard != nil {
		v.discard(*p)
	}
}
