// Package registry queues completed extension connections until the
// executor claims them.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/user/webdriver-bridge/internal/drivererr"
)

// Registry is a FIFO of completed items plus an auto-reset availability
// signal. It is safe for concurrent use.
type Registry[T any] struct {
	mu    sync.Mutex
	items []T
	ready chan struct{}
}

// New creates an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{ready: make(chan struct{}, 1)}
}

// Register appends item and raises the availability signal.
func (r *Registry[T]) Register(item T) {
	r.mu.Lock()
	r.items = append(r.items, item)
	r.mu.Unlock()

	select {
	case r.ready <- struct{}{}:
	default:
	}
}

// Claim removes and returns the oldest item.
func (r *Registry[T]) Claim() (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if len(r.items) == 0 {
		return zero, drivererr.New(drivererr.NoConnectionAvailable, "no completed extension connection to claim")
	}
	item := r.items[0]
	r.items[0] = zero
	r.items = r.items[1:]
	return item, nil
}

// Await blocks until an item is queued, timeout elapses or ctx is done.
func (r *Registry[T]) Await(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		r.mu.Lock()
		n := len(r.items)
		if n == 0 {
			// Drop a stale signal left by an item that was already claimed.
			select {
			case <-r.ready:
			default:
			}
		}
		r.mu.Unlock()
		if n > 0 {
			return nil
		}

		select {
		case <-r.ready:
		case <-timer.C:
			return drivererr.New(drivererr.NoConnectionAvailable,
				fmt.Sprintf("no extension connection within %s", timeout))
		case <-ctx.Done():
			return drivererr.Wrap(drivererr.NoConnectionAvailable, "waiting for extension connection", ctx.Err())
		}
	}
}

// Len returns the number of queued items.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Drain removes and returns every queued item.
func (r *Registry[T]) Drain() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.items
	r.items = nil
	select {
	case <-r.ready:
	default:
	}
	return items
}
