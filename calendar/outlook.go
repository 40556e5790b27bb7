package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	goauth2 "golang.org/x/oauth2"
)

const (
	calendarViewPath = "/me/calendar/calendarView"
	graphDateLayout  = "2006-01-02T15:04:05.9999999"
	maxGraphBody     = 8 << 20
)

// Outlook reads the signed-in user's default calendar through Microsoft
// Graph. Every request asks tokens for a fresh access token.
type Outlook struct {
	graphBaseURL string
	tokens       goauth2.TokenSource
	client       *http.Client
}

var _ Calendar = (*Outlook)(nil)

// NewOutlook creates a Graph calendar. client carries timeouts and
// transport; a nil client means http.DefaultClient.
func NewOutlook(graphBaseURL string, tokens goauth2.TokenSource, client *http.Client) *Outlook {
	return &Outlook{
		graphBaseURL: strings.TrimSuffix(graphBaseURL, "/"),
		tokens:       tokens,
		client:       client,
	}
}

// GraphError is a non-2xx Graph response.
type GraphError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

type graphDate struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEvent struct {
	Subject  string    `json:"subject"`
	Start    graphDate `json:"start"`
	End      graphDate `json:"end"`
	Location struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
}

type calendarViewResponse struct {
	Value []graphEvent `json:"value"`
}

// GetEvents lists the calendar view between after and before. All Outlook
// events are categorised as Work.
func (o *Outlook) GetEvents(ctx context.Context, after, before time.Time) ([]Event, error) {
	query := url.Values{}
	query.Set("startDateTime", after.UTC().Format(time.RFC3339))
	query.Set("endDateTime", before.UTC().Format(time.RFC3339))
	endpoint := o.graphBaseURL + calendarViewPath + "?" + query.Encode()

	logger := zerolog.Ctx(ctx)
	logger.Info().Str("url", endpoint).Msg("Fetching calendar view")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating calendar request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", `outlook.timezone="UTC"`)

	resp, err := o.httpClient(ctx).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching calendar view: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGraphBody))
	if err != nil {
		return nil, fmt.Errorf("reading calendar view: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, decodeGraphError(resp.StatusCode, body)
	}

	var view calendarViewResponse
	if err := json.Unmarshal(body, &view); err != nil {
		logger.Error().Err(err).Str("body", string(body)).Msg("Failed to parse calendar view")
		return nil, fmt.Errorf("decoding calendar view: %w", err)
	}

	events := make([]Event, 0, len(view.Value))
	for _, ge := range view.Value {
		start, err := parseGraphDate(ctx, ge.Start)
		if err != nil {
			return nil, fmt.Errorf("event %q start: %w", ge.Subject, err)
		}
		end, err := parseGraphDate(ctx, ge.End)
		if err != nil {
			return nil, fmt.Errorf("event %q end: %w", ge.Subject, err)
		}
		events = append(events, Event{
			Category: Work,
			Title:    ge.Subject,
			Start:    start,
			End:      end,
			Location: ge.Location.DisplayName,
		})
	}
	logger.Info().Int("count", len(events)).Msg("Got events from outlook")
	return events, nil
}

func (o *Outlook) httpClient(ctx context.Context) *http.Client {
	if o.client != nil {
		ctx = context.WithValue(ctx, goauth2.HTTPClient, o.client)
	}
	return goauth2.NewClient(ctx, o.tokens)
}

func decodeGraphError(status int, body []byte) error {
	var envelope struct {
		Error GraphError `json:"error"`
	}
	_ = json.Unmarshal(body, &envelope)
	gerr := envelope.Error
	gerr.StatusCode = status
	if gerr.Message == "" {
		gerr.Message = strings.TrimSpace(string(body))
	}
	return &gerr
}

// parseGraphDate reads Graph's zone-less timestamps in the zone they name.
// Unknown zones are read as UTC.
func parseGraphDate(ctx context.Context, d graphDate) (time.Time, error) {
	loc := time.UTC
	if d.TimeZone != "" && d.TimeZone != "UTC" {
		l, err := time.LoadLocation(d.TimeZone)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Str("time_zone", d.TimeZone).Msg("Unknown time zone, assuming UTC")
		} else {
			loc = l
		}
	}
	t, err := time.ParseInLocation(graphDateLayout, d.DateTime, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
