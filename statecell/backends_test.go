package statecell_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/jrsteele09/go-calendar-relay/statecell"
)

func TestFileBackend_MissingFile(t *testing.T) {
	b := statecell.NewFileBackend[counter](filepath.Join(t.TempDir(), "state.json"))
	_, ok, err := b.Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	b := statecell.NewFileBackend[counter](path)
	ctx := context.Background()

	require.NoError(t, b.Store(ctx, counter{Name: "a", Count: 2}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"count": 2`)

	v, ok, err := statecell.NewFileBackend[counter](path).Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, counter{Name: "a", Count: 2}, v)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileBackend_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	c := statecell.New[counter](statecell.NewFileBackend[counter](path), func(context.Context, *counter) (counter, error) {
		return counter{}, nil
	})
	err := c.Init(context.Background(), nil)
	require.ErrorIs(t, err, statecell.ErrUninitialized)

	err = c.Init(context.Background(), func(context.Context, *counter) (counter, error) { return counter{}, nil })
	var perr *statecell.PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "load", perr.Op)
}

func TestFileBackend_SurvivesProcessRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()
	loader := func(_ context.Context, persisted *counter) (counter, error) {
		if persisted != nil {
			return *persisted, nil
		}
		return counter{Name: "first"}, nil
	}

	first := statecell.New[counter](statecell.NewFileBackend[counter](path), loader)
	require.NoError(t, first.Modify(ctx, increment))
	require.NoError(t, first.Modify(ctx, increment))

	second := statecell.New[counter](statecell.NewFileBackend[counter](path), loader)
	v, err := second.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, counter{Name: "first", Count: 2}, v)
}

func TestFileBackend_Sealed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()
	sealer, err := statecell.NewPassphraseSealer("correct horse")
	require.NoError(t, err)

	b := statecell.NewFileBackend(path, statecell.WithSealer[counter](sealer))
	require.NoError(t, b.Store(ctx, counter{Name: "secret-refresh-token", Count: 1}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(raw), "secret-refresh-token"))

	v, ok, err := b.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "secret-refresh-token", v.Name)

	wrong, err := statecell.NewPassphraseSealer("battery staple")
	require.NoError(t, err)
	_, _, err = statecell.NewFileBackend(path, statecell.WithSealer[counter](wrong)).Load(ctx)
	require.ErrorIs(t, err, statecell.ErrSealedData)
}

func TestPassphraseSealer(t *testing.T) {
	_, err := statecell.NewPassphraseSealer("")
	require.Error(t, err)

	s, err := statecell.NewPassphraseSealer("pw")
	require.NoError(t, err)

	a, err := s.Seal([]byte("hello"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("hello"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	plain, err := s.Open(a)
	require.NoError(t, err)
	require.Equal(t, "hello", string(plain))

	_, err = s.Open(a[:10])
	require.ErrorIs(t, err, statecell.ErrSealedData)

	a[len(a)-1] ^= 0xff
	_, err = s.Open(a)
	require.ErrorIs(t, err, statecell.ErrSealedData)
}

func setupSQL(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLBackend_RoundTrip(t *testing.T) {
	db := setupSQL(t)
	ctx := context.Background()

	b, err := statecell.NewSQLBackend[counter](ctx, db, "", nil)
	require.NoError(t, err)

	_, ok, err := b.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, b.Store(ctx, counter{Name: "x", Count: 1}))
	require.NoError(t, b.Store(ctx, counter{Name: "x", Count: 2}))

	again, err := statecell.NewSQLBackend[counter](ctx, db, statecell.DefaultStateKey, nil)
	require.NoError(t, err)
	v, ok, err := again.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, counter{Name: "x", Count: 2}, v)

	var rows int
	rows, err = db.NewSelect().Table("relay_state").Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, rows)
}

func TestSQLBackend_KeysAreIndependent(t *testing.T) {
	db := setupSQL(t)
	ctx := context.Background()

	a, err := statecell.NewSQLBackend[counter](ctx, db, "a", nil)
	require.NoError(t, err)
	b, err := statecell.NewSQLBackend[counter](ctx, db, "b", nil)
	require.NoError(t, err)

	require.NoError(t, a.Store(ctx, counter{Name: "a"}))
	_, ok, err := b.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLBackend_SealedWithCell(t *testing.T) {
	db := setupSQL(t)
	ctx := context.Background()
	sealer, err := statecell.NewPassphraseSealer("pw")
	require.NoError(t, err)

	b, err := statecell.NewSQLBackend[counter](ctx, db, "relay", sealer)
	require.NoError(t, err)
	c := statecell.New[counter](b, func(_ context.Context, p *counter) (counter, error) {
		if p != nil {
			return *p, nil
		}
		return counter{Name: "sql"}, nil
	})
	require.NoError(t, c.Modify(ctx, increment))

	fresh := statecell.New[counter](b, func(_ context.Context, p *counter) (counter, error) { return *p, nil })
	v, err := fresh.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, counter{Name: "sql", Count: 1}, v)
}
