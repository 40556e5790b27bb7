package statecell

import (
	"context"
	"sync"
)

// MemoryBackend keeps the last stored value for the lifetime of the process.
// Cells created later in the same process over the same backend start from it.
type MemoryBackend[T any] struct {
	mu    sync.RWMutex
	value T
	set   bool
}

var _ Backend[struct{}] = (*MemoryBackend[struct{}])(nil)

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend[T any]() *MemoryBackend[T] {
	return &MemoryBackend[T]{}
}

func (b *MemoryBackend[T]) Load(context.Context) (T, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value, b.set, nil
}

func (b *MemoryBackend[T]) Store(_ context.Context, v T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = v
	b.set = true
	return nil
}
