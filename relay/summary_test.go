package relay_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-calendar-relay/auth"
	"github.com/jrsteele09/go-calendar-relay/calendar"
	"github.com/jrsteele09/go-calendar-relay/internal/config"
	relayerrors "github.com/jrsteele09/go-calendar-relay/internal/errors"
	"github.com/jrsteele09/go-calendar-relay/relay"
	"github.com/jrsteele09/go-calendar-relay/statecell"
)

func at(h, m int) time.Time {
	return time.Date(2026, 10, 19, h, m, 0, 0, time.UTC)
}

func TestRelay_Summary(t *testing.T) {
	f := setupRelay(t)
	f.persist(t, auth.Authenticated{ClientConfig: testClient(), AccessToken: "T1", RefreshToken: "R1", ExpiresAt: t0.Add(time.Hour)})
	f.calendar.events = []calendar.Event{
		{Category: calendar.Work, Title: "Review", Start: at(14, 0), End: at(15, 0)},
		{Category: calendar.PersonalCategory(calendar.Chore), Title: "Laundry", Start: at(9, 0), End: at(9, 30)},
	}

	require.NoError(t, f.relay.Summary(context.Background(), relay.SummaryToday))
	require.Empty(t, f.calls, "a valid token needs no refresh")
	require.Equal(t, at(0, 0), f.calendar.after)
	require.Equal(t, at(0, 0).Add(24*time.Hour), f.calendar.before)
	require.Equal(t, []message{{
		title: "Today's Events",
		body:  "\"Laundry\" (Personal: Chore)\n09:00AM - 09:30AM\n\n\"Review\" (Work)\n02:00PM - 03:00PM",
	}}, f.notifier.sent())
}

func TestRelay_SummaryTomorrowWithoutEvents(t *testing.T) {
	f := setupRelay(t)
	f.persist(t, auth.Authenticated{ClientConfig: testClient(), AccessToken: "T1", ExpiresAt: t0.Add(time.Hour)})

	require.NoError(t, f.relay.Summary(context.Background(), relay.SummaryTomorrow))
	require.Equal(t, at(0, 0).Add(24*time.Hour), f.calendar.after)
	require.Equal(t, []message{{"Tomorrow's Events", "No events"}}, f.notifier.sent())
}

func TestRelay_SummaryStopsWhenAuthenticationIsPending(t *testing.T) {
	f := setupRelay(t, deviceCodeBody)

	err := f.relay.Summary(context.Background(), relay.SummaryToday)
	require.ErrorIs(t, err, relayerrors.ErrNotAuthenticated)

	f.responses = []string{`{"error":"authorization_pending"}`}
	err = f.relay.Summary(context.Background(), relay.SummaryToday)
	require.ErrorIs(t, err, auth.ErrCodePending)
	require.Len(t, f.notifier.sent(), 2, "only the code notifications were sent")
}

func TestRelay_SummaryUnknownKind(t *testing.T) {
	f := setupRelay(t)
	err := f.relay.Summary(context.Background(), relay.SummaryKind("yesterday"))
	require.ErrorIs(t, err, relay.ErrUnknownSummary)
}

func TestParseSummaryKind(t *testing.T) {
	k, err := relay.ParseSummaryKind(" Tomorrow ")
	require.NoError(t, err)
	require.Equal(t, relay.SummaryTomorrow, k)

	_, err = relay.ParseSummaryKind("")
	require.ErrorIs(t, err, relay.ErrUnknownSummary)
}

func TestSummaryKind_Window(t *testing.T) {
	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	// 03:00 UTC on the 20th is still the evening of the 19th in Denver.
	now := time.Date(2026, 10, 20, 3, 0, 0, 0, time.UTC)
	start, end := relay.SummaryToday.Window(now, denver)
	require.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, denver), start)
	require.Equal(t, 24*time.Hour, end.Sub(start))

	start, _ = relay.SummaryTomorrow.Window(now, denver)
	require.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, denver), start)
}

func TestSummaryKind_WindowAcrossDSTChange(t *testing.T) {
	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	// Clocks go back on 2026-11-01 and forward on 2026-03-08 in Denver.
	start, end := relay.SummaryToday.Window(time.Date(2026, 11, 1, 18, 0, 0, 0, time.UTC), denver)
	require.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, denver), start)
	require.Equal(t, time.Date(2026, 11, 2, 0, 0, 0, 0, denver), end)
	require.Equal(t, 25*time.Hour, end.Sub(start))

	start, end = relay.SummaryTomorrow.Window(time.Date(2026, 3, 7, 18, 0, 0, 0, time.UTC), denver)
	require.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, denver), start)
	require.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, denver), end)
	require.Equal(t, 23*time.Hour, end.Sub(start))
}

func TestFormatSummary(t *testing.T) {
	require.Equal(t, "No events", relay.FormatSummary(nil, time.UTC))

	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)
	got := relay.FormatSummary([]calendar.Event{
		{Category: calendar.Work, Title: "Standup", Start: at(20, 0), End: at(21, 30)},
	}, denver)
	require.Equal(t, "\"Standup\" (Work)\n02:00PM - 03:30PM", got)
}

func TestAppState_RoundTrip(t *testing.T) {
	settings := relay.Settings{
		ClientID:          testClientID,
		LoginBaseURL:      testLoginBaseURL,
		GraphBaseURL:      testGraphBaseURL,
		PushbulletToken:   "pb",
		PushbulletBaseURL: "https://pb.example/v2",
		Timezone:          "UTC",
	}
	sessions := []auth.Session{
		auth.NewSession(testClient()),
		auth.PendingUserCode{ClientConfig: testClient(), DeviceCode: "D1", UserCode: "U1", VerificationURL: "https://x/v", Message: "go there"},
		auth.Authenticated{ClientConfig: testClient(), AccessToken: "T1", RefreshToken: "R1", IDToken: "I1", ExpiresAt: t0},
	}
	for _, s := range sessions {
		t.Run(string(s.State()), func(t *testing.T) {
			in := relay.AppState{Settings: settings, Session: s}
			data, err := json.Marshal(in)
			require.NoError(t, err)

			var out relay.AppState
			require.NoError(t, json.Unmarshal(data, &out))
			require.Equal(t, in, out)
		})
	}

	t.Run("collaborators are not persisted", func(t *testing.T) {
		data, err := json.Marshal(relay.AppState{Settings: settings, Session: sessions[0], Notifiers: nil})
		require.NoError(t, err)
		require.JSONEq(t, `{
			"settings": {"client_id":"abc","login_base_url":"`+testLoginBaseURL+`","graph_base_url":"`+testGraphBaseURL+`",
				"pushbullet_token":"pb","pushbullet_base_url":"https://pb.example/v2","timezone":"UTC"},
			"session": {"state":"unauthenticated","client_id":"abc","login_base_url":"`+testLoginBaseURL+`","graph_base_url":"`+testGraphBaseURL+`"}
		}`, string(data))
	})

	t.Run("unknown session state", func(t *testing.T) {
		var out relay.AppState
		err := json.Unmarshal([]byte(`{"settings":{},"session":{"state":"half_done"}}`), &out)
		require.ErrorIs(t, err, auth.ErrUnknownType)
	})
}

func TestNewBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		t.Setenv(config.StateModeVar, "")
		t.Setenv(config.StatePassphraseVar, "")
		b, closer, err := relay.NewBackend(ctx, config.New())
		require.NoError(t, err)
		defer closer.Close()
		require.IsType(t, &statecell.MemoryBackend[relay.AppState]{}, b)
	})

	t.Run("sealed file survives a restart", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		t.Setenv(config.StateModeVar, "file")
		t.Setenv(config.StateFileVar, path)
		t.Setenv(config.StatePassphraseVar, "pw")

		b, closer, err := relay.NewBackend(ctx, config.New())
		require.NoError(t, err)
		defer closer.Close()
		f := setupRelayWith(t, b, deviceCodeBody)
		require.NoError(t, f.relay.Authenticate(ctx))

		again := setupRelayWith(t, statecell.NewFileBackend(path, statecell.WithSealer[relay.AppState](mustSealer(t, "pw"))))
		require.Equal(t, "D1", again.session(t).(auth.PendingUserCode).DeviceCode)
	})

	t.Run("sql", func(t *testing.T) {
		t.Setenv(config.StateModeVar, "SQL")
		t.Setenv(config.StateDSNVar, "file::memory:?cache=shared")
		t.Setenv(config.StatePassphraseVar, "")

		b, closer, err := relay.NewBackend(ctx, config.New())
		require.NoError(t, err)
		defer closer.Close()

		f := setupRelayWith(t, b, deviceCodeBody)
		require.NoError(t, f.relay.Authenticate(ctx))
		again := setupRelayWith(t, b)
		require.Equal(t, "U1", again.session(t).(auth.PendingUserCode).UserCode)
	})

	t.Run("unknown mode", func(t *testing.T) {
		t.Setenv(config.StateModeVar, "redis")
		_, _, err := relay.NewBackend(ctx, config.New())
		require.Error(t, err)
	})
}

func mustSealer(t *testing.T, passphrase string) statecell.Sealer {
	t.Helper()
	s, err := statecell.NewPassphraseSealer(passphrase)
	require.NoError(t, err)
	return s
}

func TestRelay_PersistenceFailureKeepsSession(t *testing.T) {
	setEnv(t)
	b := &failingBackend{MemoryBackend: statecell.NewMemoryBackend[relay.AppState]()}
	f := setupRelayWith(t, b, deviceCodeBody)
	require.NoError(t, f.relay.Init(context.Background()))

	b.fail = true
	err := f.relay.Authenticate(context.Background())
	var perr *statecell.PersistenceError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, auth.NewSession(testClient()), f.session(t))
}

type failingBackend struct {
	*statecell.MemoryBackend[relay.AppState]
	fail bool
}

func (b *failingBackend) Store(ctx context.Context, v relay.AppState) error {
	if b.fail {
		return errors.New("read-only filesystem")
	}
	return b.MemoryBackend.Store(ctx, v)
}
