package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-calendar-relay/auth"
	"github.com/jrsteele09/go-calendar-relay/internal/errors"
	"github.com/jrsteele09/go-calendar-relay/internal/logging"
)

const defaultPollInterval = 5 * time.Second

type authOptions struct {
	status   bool
	wait     bool
	interval time.Duration
}

func newAuthCmd(a *app) *cobra.Command {
	opts := &authOptions{}
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in to Microsoft Graph",
		Long: `Advance the device authorization grant by one step.

The first step pushes a user code to your devices. Once the code has been
entered at the verification URL, the next step stores the tokens.

Examples:
  relay auth             # One step
  relay auth --wait      # Keep polling until the code is entered
  relay auth --status    # Show the stored session without contacting the provider`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _ := logging.WithRun(cmd.Context(), "auth")
			return a.authenticate(ctx, cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.status, "status", false, "show the stored session only")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "poll until the user code has been entered")
	cmd.Flags().DurationVar(&opts.interval, "interval", defaultPollInterval, "time between polls with --wait")
	return cmd
}

func (a *app) authenticate(ctx context.Context, out io.Writer, opts *authOptions) error {
	if opts.status {
		line, err := a.describeSession(ctx)
		if line != "" {
			fmt.Fprintln(out, line)
		}
		return err
	}

	var last string
	for {
		err := a.relay.Authenticate(ctx)
		if err != nil && !errors.Is(err, auth.ErrCodePending) {
			return err
		}
		line, err := a.describeSession(ctx)
		if line != "" && line != last {
			fmt.Fprintln(out, line)
			last = line
		}
		if err == nil || !opts.wait || !errors.Is(err, errors.ErrNotAuthenticated) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.interval):
		}
	}
}

// describeSession renders the stored session. It fails with
// errors.ErrNotAuthenticated unless the session holds tokens.
func (a *app) describeSession(ctx context.Context) (string, error) {
	s, err := a.relay.State(ctx)
	if err != nil {
		return "", err
	}
	switch session := s.Session.(type) {
	case auth.Authenticated:
		account := a.relay.Account(ctx)
		if account == "" {
			account = "unknown account"
		}
		return fmt.Sprintf("Signed in as %s, token expires %s", account, session.ExpiresAt.Format(time.RFC3339)), nil
	case auth.PendingUserCode:
		return fmt.Sprintf("Enter code %s at %s", session.UserCode, session.VerificationURL),
			errors.Wrapf(errors.ErrNotAuthenticated, "session is %s", session.State())
	default:
		return "Not signed in", errors.Wrapf(errors.ErrNotAuthenticated, "session is %s", s.Session.State())
	}
}
