// Package shutdown coordinates console termination.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Hook releases one resource during shutdown.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Handler runs the registered hooks once, newest first.
type Handler struct {
	timeout time.Duration

	mu    sync.Mutex
	hooks []namedHook

	trigger     chan struct{}
	triggerOnce sync.Once
	done        chan struct{}
	runOnce     sync.Once
	err         error
}

// NewHandler creates a Handler whose hooks share a deadline of timeout.
func NewHandler(timeout time.Duration) *Handler {
	return &Handler{
		timeout: timeout,
		trigger: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// OnShutdown registers hook under name. Hooks run in reverse order of
// registration; a failing hook does not stop the others.
func (h *Handler) OnShutdown(name string, hook Hook) {
	h.mu.Lock()
	h.hooks = append(h.hooks, namedHook{name: name, fn: hook})
	h.mu.Unlock()
}

// Trigger starts shutdown without a signal. Safe to call more than once.
func (h *Handler) Trigger() {
	h.triggerOnce.Do(func() { close(h.trigger) })
}

// Triggered is closed once shutdown has been requested.
func (h *Handler) Triggered() <-chan struct{} {
	return h.trigger
}

// Wait blocks until SIGINT, SIGTERM, Trigger or the end of ctx, then runs
// the hooks.
func (h *Handler) Wait(ctx context.Context) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case <-sig:
	case <-h.trigger:
	case <-ctx.Done():
	}
	h.Trigger()
	return h.Run()
}

// Run executes the hooks once and returns their joined errors. Later calls
// return the same result.
func (h *Handler) Run() error {
	h.runOnce.Do(func() {
		defer close(h.done)

		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		h.mu.Lock()
		hooks := append([]namedHook(nil), h.hooks...)
		h.mu.Unlock()

		var errs []error
		for i := len(hooks) - 1; i >= 0; i-- {
			if err := hooks[i].fn(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", hooks[i].name, err))
			}
		}
		h.err = errors.Join(errs...)
	})
	return h.err
}

// Done is closed when Run has finished.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
