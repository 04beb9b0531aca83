// Package callhandle models one outstanding asynchronous call to the transport engine.
//
// A Handle carries no payload. It is the anchor for everything that has to
// happen once the call finishes: completion callbacks run exactly once, and
// resources handed over with Own are closed at that point, whether the call
// succeeded or failed.
//
// Callbacks run on the goroutine that calls Complete. A callback registered
// after completion runs immediately on the registering goroutine.
package callhandle

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Handle is a completion future for a single engine call.
type Handle struct {
	mu        sync.Mutex
	done      chan struct{}
	completed bool
	err       error
	callbacks []func(error)
}

// New creates a pending Handle.
func New() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Complete marks the call finished. Only the first call has any effect.
func (h *Handle) Complete(err error) {
	h.mu.Lock()
	if h.completed {
		h.mu.Unlock()
		return
	}
	h.completed = true
	h.err = err
	callbacks := h.callbacks
	h.callbacks = nil
	close(h.done)
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn(err)
	}
}

// OnComplete registers fn to run once with the completion error.
func (h *Handle) OnComplete(fn func(error)) {
	h.mu.Lock()
	if !h.completed {
		h.callbacks = append(h.callbacks, fn)
		h.mu.Unlock()
		return
	}
	err := h.err
	h.mu.Unlock()

	fn(err)
}

// Own transfers ownership of c to the handle. c is closed when the call completes.
// Close errors are passed to onCloseErr when it is non-nil.
func (h *Handle) Own(c io.Closer, onCloseErr func(error)) {
	h.OnComplete(func(error) {
		if err := c.Close(); err != nil && onCloseErr != nil {
			onCloseErr(err)
		}
	})
}

// Done is closed when the call completes.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// IsComplete reports whether the call has finished.
func (h *Handle) IsComplete() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Err returns the completion error. It is nil while the call is pending.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Wait blocks until the call completes or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return errors.Join(ErrNotCompleted, ctx.Err())
	}
}

// ErrNotCompleted is returned by Wait when the caller gave up before completion.
var ErrNotCompleted = errors.New("call has not completed")
