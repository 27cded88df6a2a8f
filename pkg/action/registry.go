package action

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Handler implements a named action. args are the action's arguments as stored in the tree.
type Handler func(ctx context.Context, args map[string]any) error

// Registry maps action names to handlers and implements ports.ActionInvoker.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	async    bool
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// Option configures a Registry.
type Option func(*Registry)

// WithAsync runs handlers on their own goroutine. Invoke returns once the handler is
// scheduled and handler errors are only logged. Use Wait to drain pending handlers.
func WithAsync() Option {
	return func(r *Registry) {
		r.async = true
	}
}

// WithLogger sets the logger used for asynchronous handler failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a new empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		handlers: make(map[string]Handler),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a handler. An existing handler with the same name is replaced.
func (r *Registry) Register(name string, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = fn
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Names returns the registered action names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Invoke dispatches act to its handler. An unknown action name is an error in both modes.
func (r *Registry) Invoke(ctx context.Context, act domain.Action) error {
	r.mu.RLock()
	fn, ok := r.handlers[act.Name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("action not found: %s", act.Name)
	}

	if !r.async {
		if err := fn(ctx, act.Args); err != nil {
			return fmt.Errorf("action %s: %w", act.Name, err)
		}
		return nil
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		// Detached from the caller's cancellation; the visit already happened.
		if err := fn(context.WithoutCancel(ctx), act.Args); err != nil {
			r.logger.Error("action failed", "action", act.Name, "err", err)
		}
	}()
	return nil
}

// Wait blocks until every asynchronously invoked handler has returned.
func (r *Registry) Wait() {
	r.wg.Wait()
}
