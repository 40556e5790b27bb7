package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPushbulletURL is the public Pushbullet API.
const DefaultPushbulletURL = "https://api.pushbullet.com/v2"

const (
	pushesPath        = "/pushes"
	accessTokenHeader = "Access-Token"
	pushTypeNote      = "note"
	defaultTimeout    = 30 * time.Second
	maxErrorBody      = 64 << 10
)

// Pushbullet pushes notes to every device of one Pushbullet account.
type Pushbullet struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ Notifier = (*Pushbullet)(nil)

// NewPushbullet creates a notifier. A nil client gets a 30 second timeout.
func NewPushbullet(baseURL, token string, client *http.Client) *Pushbullet {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if baseURL == "" {
		baseURL = DefaultPushbulletURL
	}
	return &Pushbullet{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

type push struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PushbulletError is a rejected push. Type, Message and Cat come from the
// API's error object when the body carried one.
type PushbulletError struct {
	StatusCode int     `json:"-"`
	Type       string  `json:"type"`
	Message    string  `json:"message"`
	Param      *string `json:"param,omitempty"`
	Cat        string  `json:"cat"`
}

func (e *PushbulletError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("pushbullet: status %d", e.StatusCode)
	}
	return fmt.Sprintf("pushbullet: status %d: %s: %s", e.StatusCode, e.Type, e.Message)
}

// Notify posts a note push.
func (p *Pushbullet) Notify(ctx context.Context, title, body string) error {
	url := p.baseURL + pushesPath
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("url", url).Str("title", title).Msg("Sending push")

	payload, err := json.Marshal(push{Type: pushTypeNote, Title: title, Body: body})
	if err != nil {
		return fmt.Errorf("encoding push: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(accessTokenHeader, p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		perr := decodePushbulletError(resp)
		logger.Error().Err(perr).Msg("Push rejected")
		return perr
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func decodePushbulletError(resp *http.Response) *PushbulletError {
	var envelope struct {
		Error PushbulletError `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(raw, &envelope)

	perr := envelope.Error
	perr.StatusCode = resp.StatusCode
	if perr.Message == "" {
		perr.Message = strings.TrimSpace(string(raw))
	}
	return &perr
}
