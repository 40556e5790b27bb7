package statecell

import "context"

// Backend is the durability strategy of a Cell.
type Backend[T any] interface {
	// Load returns the persisted value, or false when nothing was persisted.
	Load(ctx context.Context) (T, bool, error)
	// Store persists v. The cell only commits v once Store succeeded.
	Store(ctx context.Context, v T) error
}
