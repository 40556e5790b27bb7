package statecell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend persists the value as a JSON document on local disk. Writes go
// to a temporary file in the same directory that is then renamed over the
// target, so a crash never leaves a half-written document behind.
type FileBackend[T any] struct {
	path   string
	sealer Sealer
}

var _ Backend[struct{}] = (*FileBackend[struct{}])(nil)

// FileOption configures a FileBackend.
type FileOption[T any] func(*FileBackend[T])

// WithSealer encrypts the document at rest.
func WithSealer[T any](s Sealer) FileOption[T] {
	return func(b *FileBackend[T]) {
		b.sealer = s
	}
}

// NewFileBackend persists to path. Missing parent directories are created
// on the first Store.
func NewFileBackend[T any](path string, opts ...FileOption[T]) *FileBackend[T] {
	b := &FileBackend[T]{path: path}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Path returns the document location.
func (b *FileBackend[T]) Path() string {
	return b.path
}

func (b *FileBackend[T]) Load(_ context.Context) (T, bool, error) {
	var v T
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("reading %s: %w", b.path, err)
	}
	if b.sealer != nil {
		if data, err = b.sealer.Open(data); err != nil {
			return v, false, fmt.Errorf("opening %s: %w", b.path, err)
		}
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("decoding %s: %w", b.path, err)
	}
	return v, true, nil
}

func (b *FileBackend[T]) Store(_ context.Context, v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if b.sealer != nil {
		if data, err = b.sealer.Seal(data); err != nil {
			return fmt.Errorf("sealing state: %w", err)
		}
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("replacing %s: %w", b.path, err)
	}
	return nil
}
