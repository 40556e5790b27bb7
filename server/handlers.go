package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-calendar-relay/auth"
	"github.com/jrsteele09/go-calendar-relay/internal/errors"
	"github.com/jrsteele09/go-calendar-relay/internal/logging"
	"github.com/jrsteele09/go-calendar-relay/relay"
)

// Result is the body of every trigger response.
type Result struct {
	Success bool   `json:"success"`
	Errors  string `json:"errors,omitempty"`
}

// ExecuteHandler runs one authentication step.
func (s *Server) ExecuteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, _ := logging.WithRun(r.Context(), "execute")
		s.run(w, r.WithContext(ctx), s.relay.Authenticate)
	}
}

// SummaryHandler sends the summary named by the {kind} path segment.
func (s *Server) SummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := relay.ParseSummaryKind(r.PathValue("kind"))
		if err != nil {
			writeResult(w, http.StatusBadRequest, err)
			return
		}
		ctx, _ := logging.WithRun(r.Context(), "summary")
		s.run(w, r.WithContext(ctx), func(ctx context.Context) error {
			return s.relay.Summary(ctx, kind)
		})
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// run executes fn once no other trigger run is in flight, then responds
// with its outcome. Overlapping requests wait their turn.
func (s *Server) run(w http.ResponseWriter, r *http.Request, fn func(context.Context) error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.respond(w, r, fn(r.Context()))
}

// respond maps the outcome of a run to a status code. A run that is only
// waiting for the user to enter the code is not reported as a failure.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		writeResult(w, http.StatusOK, nil)
	case errors.Is(err, auth.ErrCodePending), errors.Is(err, errors.ErrNotAuthenticated):
		zerolog.Ctx(r.Context()).Info().Err(err).Msg("Waiting for the user to authenticate")
		writeResult(w, http.StatusAccepted, err)
	default:
		s.relay.ReportFailure(r.Context(), err)
		writeResult(w, http.StatusInternalServerError, err)
	}
}

func writeResult(w http.ResponseWriter, status int, err error) {
	res := Result{Success: err == nil}
	if err != nil {
		res.Errors = err.Error()
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
