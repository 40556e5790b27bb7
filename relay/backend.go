package relay

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/jrsteele09/go-calendar-relay/internal/config"
	"github.com/jrsteele09/go-calendar-relay/statecell"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewBackend returns the state backend selected by STATE_MODE. The closer
// releases database handles and must be called once the relay is done.
func NewBackend(ctx context.Context, c config.StateConfig) (statecell.Backend[AppState], io.Closer, error) {
	logger := zerolog.Ctx(ctx).With().Str("state_mode", string(c.GetStateMode())).Logger()

	sealer, err := newSealer(c)
	if err != nil {
		return nil, nil, err
	}

	switch c.GetStateMode() {
	case config.StateModeMemory:
		logger.Info().Msg("Keeping state in memory for the life of the process")
		return statecell.NewMemoryBackend[AppState](), nopCloser{}, nil

	case config.StateModeFile:
		logger.Info().Str("path", c.GetStateFile()).Bool("sealed", sealer != nil).Msg("Keeping state in a file")
		var opts []statecell.FileOption[AppState]
		if sealer != nil {
			opts = append(opts, statecell.WithSealer[AppState](sealer))
		}
		return statecell.NewFileBackend(c.GetStateFile(), opts...), nopCloser{}, nil

	case config.StateModeSQL:
		logger.Info().Str("dsn", c.GetStateDSN()).Bool("sealed", sealer != nil).Msg("Keeping state in a database")
		sqldb, err := sql.Open(sqliteshim.ShimName, c.GetStateDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("opening state database: %w", err)
		}
		db := bun.NewDB(sqldb, sqlitedialect.New())
		var s statecell.Sealer
		if sealer != nil {
			s = sealer
		}
		backend, err := statecell.NewSQLBackend[AppState](ctx, db, statecell.DefaultStateKey, s)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return backend, db, nil
	}
	return nil, nil, fmt.Errorf("unsupported state mode %q", c.GetStateMode())
}

func newSealer(c config.StateConfig) (*statecell.PassphraseSealer, error) {
	if c.GetStatePassphrase() == "" {
		return nil, nil
	}
	return statecell.NewPassphraseSealer(c.GetStatePassphrase())
}
