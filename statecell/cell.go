// Package statecell holds one application state value across invocations of
// a stateless process and gives its single owner exclusive, transactional
// access to it.
//
// A Cell starts empty and is populated once by Init, from the backend's
// persisted value and a Loader. Modify checks the value out, hands it to a
// transform and puts the result back only when the transform and the backend
// write both succeed; otherwise the previous value stays in place. While a
// value is checked out the cell refuses Read and Modify with ErrStateTaken.
//
// A Cell is meant for one logical owner. It does not serialise concurrent
// Modify calls; a second caller fails fast instead of waiting.
package statecell

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Loader builds the state value. persisted is the backend's value, or nil
// when the backend holds nothing yet.
type Loader[T any] func(ctx context.Context, persisted *T) (T, error)

// Cell is a persistent, single-owner container for a value of type T.
type Cell[T any] struct {
	mu      sync.Mutex
	backend Backend[T]
	loader  Loader[T]
	name    string

	value  T
	loaded bool
	taken  bool
}

// Option configures a Cell.
type Option func(*options)

type options struct {
	name string
}

// WithName labels the cell in log output.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// New creates an empty cell. loader is used whenever Read or Modify find the
// cell empty.
func New[T any](backend Backend[T], loader Loader[T], opts ...Option) *Cell[T] {
	o := options{name: "state"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cell[T]{
		backend: backend,
		loader:  loader,
		name:    o.name,
	}
}

// Init populates the cell once. Later calls return nil without touching the
// backend or calling loader. On failure the cell stays empty: loader errors
// are returned as they are, backend errors as *PersistenceError.
func (c *Cell[T]) Init(ctx context.Context, loader Loader[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initLocked(ctx, loader)
}

func (c *Cell[T]) initLocked(ctx context.Context, loader Loader[T]) error {
	logger := zerolog.Ctx(ctx).With().Str("cell", c.name).Logger()
	if c.loaded {
		logger.Debug().Msg("Already initialized")
		return nil
	}
	if loader == nil {
		return fmt.Errorf("%w: no loader", ErrUninitialized)
	}

	persisted, ok, err := c.backend.Load(ctx)
	if err != nil {
		return &PersistenceError{Op: "load", Err: err}
	}
	var prior *T
	if ok {
		prior = &persisted
		logger.Info().Msg("Loaded persisted state")
	}

	v, err := loader(ctx, prior)
	if err != nil {
		logger.Err(err).Msg("Loading state failed")
		return err
	}

	if err := c.backend.Store(ctx, v); err != nil {
		return &PersistenceError{Op: "store", Err: err}
	}

	c.value = v
	c.loaded = true
	logger.Info().Msg("State initialized")
	return nil
}

// Loaded reports whether Init has succeeded.
func (c *Cell[T]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Read initializes the cell if needed and returns its value.
func (c *Cell[T]) Read(ctx context.Context) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	if c.taken {
		return zero, ErrStateTaken
	}
	if err := c.initLocked(ctx, c.loader); err != nil {
		return zero, fmt.Errorf("%w: %w", ErrUninitialized, err)
	}
	return c.value, nil
}

// Modify replaces the value with the result of f.
//
// f owns the value while it runs and may block. The result is stored through
// the backend and only then committed. If f fails, panics, or the backend
// write fails, the cell holds the original value again. f errors are
// returned as *TransformError, write errors as *PersistenceError.
func (c *Cell[T]) Modify(ctx context.Context, f func(context.Context, T) (T, error)) (err error) {
	prev, err := c.take(ctx)
	if err != nil {
		return err
	}
	logger := zerolog.Ctx(ctx).With().Str("cell", c.name).Logger()

	committed := false
	defer func() {
		if !committed {
			c.restore(prev)
		}
	}()

	next, err := f(ctx, prev)
	if err != nil {
		logger.Err(err).Msg("Transform failed, keeping previous state")
		return &TransformError{Err: err}
	}

	if err := c.backend.Store(ctx, next); err != nil {
		logger.Err(err).Msg("Persisting state failed, keeping previous state")
		return &PersistenceError{Op: "store", Err: err}
	}

	c.mu.Lock()
	c.value = next
	c.taken = false
	committed = true
	c.mu.Unlock()
	return nil
}

func (c *Cell[T]) take(ctx context.Context) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	if c.taken {
		return zero, ErrStateTaken
	}
	if err := c.initLocked(ctx, c.loader); err != nil {
		return zero, fmt.Errorf("%w: %w", ErrUninitialized, err)
	}
	v := c.value
	c.value = zero
	c.taken = true
	return v, nil
}

func (c *Cell[T]) restore(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.taken = false
}
