package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-calendar-relay/auth"
	"github.com/jrsteele09/go-calendar-relay/internal/config"
	"github.com/jrsteele09/go-calendar-relay/internal/errors"
	"github.com/jrsteele09/go-calendar-relay/internal/logging"
	"github.com/jrsteele09/go-calendar-relay/relay"
)

const (
	// ExitCodeError is returned for any failed run.
	ExitCodeError = 1
	// ExitCodeAuthRequired is returned while the user still has to enter a code.
	ExitCodeAuthRequired = 2
)

const defaultEnvFile = ".env"

// app is what every subcommand runs against. It is built once the flags
// are parsed.
type app struct {
	cfg    config.Config
	relay  *relay.Relay
	closer io.Closer
}

type rootOptions struct {
	envFile string
	// relayOpts are passed to relay.New; tests use them to fake the provider.
	relayOpts []relay.Option
}

// newRootCmd builds the command tree. The returned closer releases the state
// backend opened by whichever subcommand ran.
func newRootCmd(opts *rootOptions) (*cobra.Command, io.Closer) {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "relay",
		Short: "Relay calendar summaries from Outlook to Pushbullet",
		Long: `relay signs in to Microsoft Graph with the OAuth 2.0 device authorization
grant, reads the events of the signed-in user's calendar and pushes a daily
summary as a Pushbullet note.

The first run pushes a user code to your devices. Enter it at the
verification URL and the next run completes the sign in.

Examples:
  relay serve                 # Run the HTTP trigger server
  relay auth --wait           # Sign in and wait until the code is entered
  relay summary tomorrow      # Push tomorrow's events`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context(), opts); err != nil {
				return err
			}
			cmd.SetContext(log.Logger.WithContext(cmd.Context()))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", defaultEnvFile, "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(
		newServeCmd(a),
		newSummaryCmd(a),
		newAuthCmd(a),
		newWarmCmd(),
	)
	return rootCmd, a
}

func (a *app) open(ctx context.Context, opts *rootOptions) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}
	logging.Setup(cfg.GetLogLevel(), cfg.GetEnv())

	backend, closer, err := relay.NewBackend(ctx, cfg)
	if err != nil {
		return errors.Wrapf(err, "opening %s state", cfg.GetStateMode())
	}
	a.cfg = cfg
	a.closer = closer
	a.relay = relay.New(cfg, backend, opts.relayOpts...)
	return nil
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// Execute runs the command line and exits with the matching exit code.
func Execute() {
	rootCmd, closer := newRootCmd(&rootOptions{})
	err := rootCmd.ExecuteContext(context.Background())
	if cerr := closer.Close(); cerr != nil {
		log.Error().Err(cerr).Msg("Closing state backend")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode tells a run that only waits for the user apart from a failure.
func exitCode(err error) int {
	if isAwaitingUser(err) {
		return ExitCodeAuthRequired
	}
	return ExitCodeError
}

func isAwaitingUser(err error) bool {
	return errors.Is(err, auth.ErrCodePending) || errors.Is(err, errors.ErrNotAuthenticated)
}
