package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	goauth2 "golang.org/x/oauth2"

	"github.com/jrsteele09/go-calendar-relay/auth"
	"github.com/jrsteele09/go-calendar-relay/calendar"
	"github.com/jrsteele09/go-calendar-relay/internal/config"
	relayerrors "github.com/jrsteele09/go-calendar-relay/internal/errors"
	"github.com/jrsteele09/go-calendar-relay/notify"
	"github.com/jrsteele09/go-calendar-relay/relay"
	"github.com/jrsteele09/go-calendar-relay/server"
	"github.com/jrsteele09/go-calendar-relay/statecell"
)

type fakeRelay struct {
	authErr    error
	summaryErr error
	kinds      []relay.SummaryKind
	reported   []error
	panics     bool
}

func (f *fakeRelay) Authenticate(context.Context) error {
	if f.panics {
		panic("boom")
	}
	return f.authErr
}

func (f *fakeRelay) Summary(_ context.Context, kind relay.SummaryKind) error {
	f.kinds = append(f.kinds, kind)
	return f.summaryErr
}

func (f *fakeRelay) ReportFailure(_ context.Context, err error) {
	f.reported = append(f.reported, err)
}

func setupServer(t *testing.T) (*fakeRelay, *server.Server) {
	t.Helper()
	t.Setenv("ENV", "TEST")
	r := &fakeRelay{}
	return r, server.New(config.New(), r)
}

func do(t *testing.T, s *server.Server, method, path string) (*httptest.ResponseRecorder, server.Result) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var res server.Result
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	}
	return rec, res
}

func TestExecute(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		_, s := setupServer(t)
		rec, res := do(t, s, http.MethodPost, "/execute")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, server.Result{Success: true}, res)
		require.NotEmpty(t, rec.Header().Get(server.RequestIDHeader))
	})

	t.Run("failure is reported", func(t *testing.T) {
		r, s := setupServer(t)
		r.authErr = errors.New("provider unreachable")
		rec, res := do(t, s, http.MethodPost, "/execute")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.False(t, res.Success)
		require.Equal(t, "provider unreachable", res.Errors)
		require.Equal(t, []error{r.authErr}, r.reported)
	})

	t.Run("pending authorization is not a failure", func(t *testing.T) {
		r, s := setupServer(t)
		r.authErr = &auth.ProviderError{Code: "authorization_pending"}
		rec, res := do(t, s, http.MethodPost, "/execute")
		require.Equal(t, http.StatusAccepted, rec.Code)
		require.False(t, res.Success)
		require.Empty(t, r.reported)
	})

	t.Run("wrong method", func(t *testing.T) {
		_, s := setupServer(t)
		rec, _ := do(t, s, http.MethodGet, "/execute")
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("panic", func(t *testing.T) {
		r, s := setupServer(t)
		r.panics = true
		rec, res := do(t, s, http.MethodPost, "/execute")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.False(t, res.Success)
	})

	t.Run("request id is kept", func(t *testing.T) {
		_, s := setupServer(t)
		req := httptest.NewRequest(http.MethodPost, "/execute", nil)
		req.Header.Set(server.RequestIDHeader, "req-1")
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		require.Equal(t, "req-1", rec.Header().Get(server.RequestIDHeader))
	})
}

func TestSummary(t *testing.T) {
	t.Run("today", func(t *testing.T) {
		r, s := setupServer(t)
		rec, res := do(t, s, http.MethodPost, "/summary/today")
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, res.Success)
		require.Equal(t, []relay.SummaryKind{relay.SummaryToday}, r.kinds)
	})

	t.Run("unknown kind", func(t *testing.T) {
		r, s := setupServer(t)
		rec, res := do(t, s, http.MethodPost, "/summary/yesterday")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.False(t, res.Success)
		require.Empty(t, r.kinds)
	})

	t.Run("not authenticated yet", func(t *testing.T) {
		r, s := setupServer(t)
		r.summaryErr = relayerrors.Wrapf(relayerrors.ErrNotAuthenticated, "session is pending_user_code")
		rec, _ := do(t, s, http.MethodPost, "/summary/tomorrow")
		require.Equal(t, http.StatusAccepted, rec.Code)
		require.Empty(t, r.reported)
	})
}

func TestHealth(t *testing.T) {
	_, s := setupServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	require.Equal(t, []string{"POST /execute", "POST /summary/{kind}", "GET /healthz"}, s.Routes())
}

type titleRecorder struct {
	mu     sync.Mutex
	titles []string
}

func (n *titleRecorder) Notify(_ context.Context, title, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
	return nil
}

func TestExecute_OverlappingRunsAreSerialised(t *testing.T) {
	t.Setenv("ENV", "TEST")
	t.Setenv(config.ClientIDVar, "abc")
	t.Setenv(config.LoginBaseURLVar, "https://login.example.com/tenant/oauth2/v2.0")
	t.Setenv(config.GraphBaseURLVar, "")
	t.Setenv(config.PushbulletTokenVar, "pb-token")
	t.Setenv(config.PushbulletBaseURLVar, "https://api.pushbullet.example/v2")
	t.Setenv(config.SummaryTimezoneVar, "UTC")
	t.Setenv(config.StateModeVar, "")

	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	var active, maxActive, calls atomic.Int32
	transport := auth.TransportFunc(func(_ context.Context, _ string, _ []auth.Field) (string, error) {
		n := active.Add(1)
		defer active.Add(-1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		entered <- struct{}{}
		<-release
		if calls.Add(1) == 1 {
			return `{"device_code":"D1","user_code":"U1","verification_uri":"https://x/v","message":"go there"}`, nil
		}
		return `{"error":"authorization_pending"}`, nil
	})

	notifier := &titleRecorder{}
	r := relay.New(config.New(), statecell.NewMemoryBackend[relay.AppState](),
		relay.WithTransport(transport),
		relay.WithHydrator(func(relay.Settings, goauth2.TokenSource, *http.Client) ([]notify.Notifier, []calendar.Calendar) {
			return []notify.Notifier{notifier}, nil
		}),
	)
	s := server.New(config.New(), r)

	codes := make(chan int, 2)
	post := func() {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/execute", nil))
		codes <- rec.Code
	}

	go post()
	<-entered
	go post()
	// Give the second request time to queue behind the first.
	time.Sleep(50 * time.Millisecond)
	close(release)
	<-entered

	got := []int{<-codes, <-codes}
	sort.Ints(got)
	require.Equal(t, []int{http.StatusOK, http.StatusAccepted}, got)
	require.EqualValues(t, 1, maxActive.Load())
	require.Equal(t, []string{relay.TitleAuthNeeded, relay.TitleCode}, notifier.titles)
}
