package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-calendar-relay/auth"
	"github.com/jrsteele09/go-calendar-relay/calendar"
	"github.com/jrsteele09/go-calendar-relay/internal/errors"
)

// SummaryKind selects the day a summary covers.
type SummaryKind string

const (
	SummaryToday    SummaryKind = "today"
	SummaryTomorrow SummaryKind = "tomorrow"
)

// ErrUnknownSummary is returned for summary kinds other than today and tomorrow.
var ErrUnknownSummary = errors.New("unknown summary kind")

const (
	noEventsBody = "No events"
	timeLayout   = "03:04PM"
)

// ParseSummaryKind accepts "today" and "tomorrow".
func ParseSummaryKind(s string) (SummaryKind, error) {
	switch k := SummaryKind(strings.ToLower(strings.TrimSpace(s))); k {
	case SummaryToday, SummaryTomorrow:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSummary, s)
}

// Title is the notification title of the summary.
func (k SummaryKind) Title() string {
	if k == SummaryTomorrow {
		return "Tomorrow's Events"
	}
	return "Today's Events"
}

// Window returns the local day the summary covers, from midnight to the next
// midnight. Days with a DST change are 23 or 25 hours long.
func (k SummaryKind) Window(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if k == SummaryTomorrow {
		start = start.AddDate(0, 0, 1)
	}
	return start, start.AddDate(0, 0, 1)
}

// Summary authenticates, then sends one notification listing the events of
// the selected day in start order. Without an authenticated session it
// stops after the authentication step with errors.ErrNotAuthenticated.
func (r *Relay) Summary(ctx context.Context, kind SummaryKind) error {
	if _, err := ParseSummaryKind(string(kind)); err != nil {
		return err
	}
	if err := r.Authenticate(ctx); err != nil {
		return errors.Wrapf(err, "authenticating")
	}

	s, err := r.cell.Read(ctx)
	if err != nil {
		return err
	}
	if _, ok := s.Session.(auth.Authenticated); !ok {
		return errors.Wrapf(errors.ErrNotAuthenticated, "session is %s", s.Session.State())
	}
	loc, err := time.LoadLocation(s.Settings.Timezone)
	if err != nil {
		return errors.Wrapf(err, "summary timezone")
	}

	after, before := kind.Window(r.clock.Now(), loc)
	zerolog.Ctx(ctx).Info().
		Str("kind", string(kind)).
		Time("after", after).
		Time("before", before).
		Msg("Building summary")

	events, err := r.Events(ctx, after, before)
	if err != nil {
		return errors.Wrapf(err, "getting events")
	}
	return r.Notify(ctx, kind.Title(), FormatSummary(events, loc))
}

// FormatSummary renders events, one block per event:
//
//	"Title" (Category)
//	09:00AM - 10:30AM
func FormatSummary(events []calendar.Event, loc *time.Location) string {
	if len(events) == 0 {
		return noEventsBody
	}
	sorted := append([]calendar.Event(nil), events...)
	calendar.SortByStart(sorted)

	blocks := make([]string, 0, len(sorted))
	for _, e := range sorted {
		blocks = append(blocks, fmt.Sprintf("\"%s\" (%s)\n%s - %s",
			e.Title, e.Category, e.Start.In(loc).Format(timeLayout), e.End.In(loc).Format(timeLayout)))
	}
	return strings.Join(blocks, "\n\n")
}
