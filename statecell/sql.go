package statecell

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// DefaultStateKey is the row used when no key is configured.
const DefaultStateKey = "default"

type stateRow struct {
	bun.BaseModel `bun:"table:relay_state"`

	ID        string    `bun:"id,pk"`
	Document  []byte    `bun:"document,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// SQLBackend persists the value as one row of the relay_state table.
type SQLBackend[T any] struct {
	db     *bun.DB
	key    string
	sealer Sealer
}

var _ Backend[struct{}] = (*SQLBackend[struct{}])(nil)

// NewSQLBackend creates the relay_state table when it does not exist. An
// empty key means DefaultStateKey. sealer may be nil.
func NewSQLBackend[T any](ctx context.Context, db *bun.DB, key string, sealer Sealer) (*SQLBackend[T], error) {
	if key == "" {
		key = DefaultStateKey
	}
	if _, err := db.NewCreateTable().Model((*stateRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("creating relay_state table: %w", err)
	}
	return &SQLBackend[T]{db: db, key: key, sealer: sealer}, nil
}

func (b *SQLBackend[T]) Load(ctx context.Context) (T, bool, error) {
	var v T
	row := new(stateRow)
	err := b.db.NewSelect().Model(row).Where("id = ?", b.key).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("selecting state %q: %w", b.key, err)
	}

	data := row.Document
	if b.sealer != nil {
		if data, err = b.sealer.Open(data); err != nil {
			return v, false, fmt.Errorf("opening state %q: %w", b.key, err)
		}
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("decoding state %q: %w", b.key, err)
	}
	return v, true, nil
}

func (b *SQLBackend[T]) Store(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if b.sealer != nil {
		if data, err = b.sealer.Seal(data); err != nil {
			return fmt.Errorf("sealing state: %w", err)
		}
	}

	row := &stateRow{ID: b.key, Document: data, UpdatedAt: time.Now().UTC()}
	_, err = b.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("document = EXCLUDED.document").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upserting state %q: %w", b.key, err)
	}
	return nil
}
