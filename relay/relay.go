package relay

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	goauth2 "golang.org/x/oauth2"

	"github.com/jrsteele09/go-calendar-relay/auth"
	"github.com/jrsteele09/go-calendar-relay/calendar"
	"github.com/jrsteele09/go-calendar-relay/internal/config"
	"github.com/jrsteele09/go-calendar-relay/internal/errors"
	"github.com/jrsteele09/go-calendar-relay/notify"
	"github.com/jrsteele09/go-calendar-relay/statecell"
)

const (
	TitleAuthNeeded = "Auth needed"
	TitleCode       = "Code"
	TitleError      = "error"
)

// Hydrator builds the collaborators of a state from its settings. tokens
// yields the access token of the current session.
type Hydrator func(s Settings, tokens goauth2.TokenSource, client *http.Client) ([]notify.Notifier, []calendar.Calendar)

// DefaultHydrator wires one Pushbullet notifier and the Outlook calendar.
func DefaultHydrator(s Settings, tokens goauth2.TokenSource, client *http.Client) ([]notify.Notifier, []calendar.Calendar) {
	return []notify.Notifier{notify.NewPushbullet(s.PushbulletBaseURL, s.PushbulletToken, client)},
		[]calendar.Calendar{calendar.NewOutlook(s.GraphBaseURL, tokens, client)}
}

// Relay owns the application state cell and runs the relay operations
// against it.
type Relay struct {
	cfg        config.Config
	cell       *statecell.Cell[AppState]
	flow       *auth.DeviceFlow
	transport  auth.Transport
	clock      auth.Clock
	httpClient *http.Client
	hydrate    Hydrator
}

// Option configures a Relay.
type Option func(*Relay)

// WithTransport replaces the HTTP transport used for the identity provider.
func WithTransport(t auth.Transport) Option {
	return func(r *Relay) {
		r.transport = t
	}
}

// WithClock replaces the wall clock.
func WithClock(c auth.Clock) Option {
	return func(r *Relay) {
		r.clock = c
	}
}

// WithHTTPClient sets the client shared by the provider transport, the
// notifiers and the calendars.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Relay) {
		r.httpClient = c
	}
}

// WithHydrator replaces DefaultHydrator.
func WithHydrator(h Hydrator) Option {
	return func(r *Relay) {
		r.hydrate = h
	}
}

// New creates a relay whose state lives in backend. Nothing is loaded
// until the first operation or Init.
func New(cfg config.Config, backend statecell.Backend[AppState], opts ...Option) *Relay {
	r := &Relay{
		cfg:     cfg,
		clock:   auth.SystemClock,
		hydrate: DefaultHydrator,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.httpClient == nil {
		r.httpClient = &http.Client{Timeout: cfg.GetHTTPTimeout()}
	}
	if r.transport == nil {
		r.transport = auth.NewHTTPTransport(r.httpClient)
	}
	r.flow = auth.NewDeviceFlow(r.transport, r.clock, auth.WithScope(cfg.GetScope()))
	r.cell = statecell.New(backend, r.load, statecell.WithName("app"))
	return r
}

// Init loads the state now instead of on first use.
func (r *Relay) Init(ctx context.Context) error {
	return r.cell.Init(ctx, r.load)
}

// State returns the current state.
func (r *Relay) State(ctx context.Context) (AppState, error) {
	return r.cell.Read(ctx)
}

// load builds the state from the current configuration, keeping the
// persisted session when it belongs to the same client.
func (r *Relay) load(ctx context.Context, persisted *AppState) (AppState, error) {
	if err := config.Validate(r.cfg); err != nil {
		return AppState{}, err
	}
	settings := SettingsFrom(r.cfg)
	logger := zerolog.Ctx(ctx)

	var session auth.Session = auth.NewSession(settings.Client())
	switch {
	case persisted == nil || persisted.Session == nil:
		logger.Info().Msg("No persisted session, starting unauthenticated")
	case persisted.Session.Client() != settings.Client():
		logger.Warn().
			Str("persisted_client_id", persisted.Session.Client().ClientID).
			Str("client_id", settings.ClientID).
			Msg("Client configuration changed, discarding persisted session")
	default:
		session = persisted.Session
		logger.Info().Str("session_state", string(session.State())).Msg("Resuming persisted session")
	}

	return r.hydrated(AppState{Settings: settings, Session: session}), nil
}

func (r *Relay) hydrated(s AppState) AppState {
	s.Notifiers, s.Calendars = r.hydrate(s.Settings, r.TokenSource(), r.httpClient)
	return s
}

// Authenticate advances the auth session by one step and persists the
// result. When the step issues a new user code, the user is told through
// every notifier; if that fails nothing is persisted.
//
// The session produced by the step is kept even when the step fails, so a
// declined or expired device code is replaced on the next run.
func (r *Relay) Authenticate(ctx context.Context) error {
	var authErr error
	err := r.cell.Modify(ctx, func(ctx context.Context, s AppState) (AppState, error) {
		logger := zerolog.Ctx(ctx)
		logger.Info().Str("session_state", string(s.Session.State())).Msg("Authenticating")

		next, err := r.flow.Authenticate(ctx, s.Session)
		authErr = err
		if next == nil {
			return s, err
		}

		if code, message, ok := auth.UserCode(next); ok && isNewCode(s.Session, next) {
			logger.Info().Msg("Need to authenticate with code")
			if err := notify.All(ctx, s.Notifiers, TitleAuthNeeded, message); err != nil {
				return s, fmt.Errorf("sending auth instructions: %w", err)
			}
			if err := notify.All(ctx, s.Notifiers, TitleCode, code); err != nil {
				return s, fmt.Errorf("sending user code: %w", err)
			}
		}

		s.Session = next
		return s, nil
	})
	if err != nil {
		return err
	}
	return authErr
}

func isNewCode(prev, next auth.Session) bool {
	p, ok := prev.(auth.PendingUserCode)
	if !ok {
		return true
	}
	n := next.(auth.PendingUserCode)
	return p.DeviceCode != n.DeviceCode
}

// Events lists the events of every calendar between after and before.
// Calendars are queried concurrently; failures are aggregated.
func (r *Relay) Events(ctx context.Context, after, before time.Time) ([]calendar.Event, error) {
	s, err := r.cell.Read(ctx)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().
		Int("calendars", len(s.Calendars)).
		Time("after", after).
		Time("before", before).
		Msg("Getting events")
	return calendar.Collect(ctx, s.Calendars, after, before)
}

// Notify sends a message through every notifier.
func (r *Relay) Notify(ctx context.Context, title, body string) error {
	s, err := r.cell.Read(ctx)
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Debug().Int("notifiers", len(s.Notifiers)).Str("title", title).Msg("Notifying")
	return notify.All(ctx, s.Notifiers, title, body)
}

// ReportFailure logs err and tries to tell the user about it. A failure to
// do so is only logged.
func (r *Relay) ReportFailure(ctx context.Context, err error) {
	logger := zerolog.Ctx(ctx)
	logger.Error().Err(err).Msg("Run failed")
	if nerr := r.Notify(ctx, TitleError, err.Error()); nerr != nil {
		logger.Error().Err(nerr).Msg("Failed to report error")
	}
}

// Account names the signed-in user, or "" if there is none.
func (r *Relay) Account(ctx context.Context) string {
	s, err := r.cell.Read(ctx)
	if err != nil {
		return ""
	}
	if a, ok := s.Session.(auth.Authenticated); ok {
		return a.Account()
	}
	return ""
}

// TokenSource yields the access token of the session currently held by the
// relay. It fails with errors.ErrNotAuthenticated before authentication and
// errors.ErrTokenExpired once the token has expired.
func (r *Relay) TokenSource() goauth2.TokenSource {
	return sessionTokenSource{r: r}
}

type sessionTokenSource struct {
	r *Relay
}

func (ts sessionTokenSource) Token() (*goauth2.Token, error) {
	s, err := ts.r.cell.Read(context.Background())
	if err != nil {
		return nil, err
	}
	a, ok := s.Session.(auth.Authenticated)
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotAuthenticated, "session is %s", s.Session.State())
	}
	if a.Expired(ts.r.clock.Now()) {
		return nil, errors.Wrapf(errors.ErrTokenExpired, "expired at %s", a.ExpiresAt.Format(time.RFC3339))
	}
	return a.Token(), nil
}
