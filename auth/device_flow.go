package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-calendar-relay/internal/logging"
	"github.com/jrsteele09/go-calendar-relay/internal/utils"
	"github.com/jrsteele09/go-calendar-relay/oauth2"
)

// CalendarsReadScope grants read access to the signed-in user's calendars.
const CalendarsReadScope = "https://graph.microsoft.com/Calendars.Read"

// DefaultScope asks for an id token, a refresh token and calendar access.
var DefaultScope = strings.Join([]string{oidc.ScopeOpenID, oidc.ScopeOfflineAccess, CalendarsReadScope}, " ")

// DeviceFlow drives a Session through the device authorization grant.
type DeviceFlow struct {
	transport Transport
	clock     Clock
	scope     string
}

// FlowOption configures a DeviceFlow.
type FlowOption func(*DeviceFlow)

// WithScope overrides DefaultScope. Blank scopes are ignored.
func WithScope(scope string) FlowOption {
	return func(f *DeviceFlow) {
		if strings.TrimSpace(scope) != "" {
			f.scope = scope
		}
	}
}

// NewDeviceFlow creates a flow. A nil clock means SystemClock.
func NewDeviceFlow(transport Transport, clock Clock, opts ...FlowOption) *DeviceFlow {
	if clock == nil {
		clock = SystemClock
	}
	f := &DeviceFlow{
		transport: transport,
		clock:     clock,
		scope:     DefaultScope,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Scope returns the scope requested from the provider.
func (f *DeviceFlow) Scope() string {
	return f.scope
}

// Authenticate performs the one transition the current state calls for.
//
// The returned Session is always usable, also when err is non-nil: it is the
// unchanged input, except that a declined or expired device code restarts
// from Unauthenticated so the next attempt requests a fresh code.
func (f *DeviceFlow) Authenticate(ctx context.Context, s Session) (Session, error) {
	switch s := s.(type) {
	case Unauthenticated:
		return f.requestDeviceCode(ctx, s)
	case PendingUserCode:
		return f.pollToken(ctx, s)
	case Authenticated:
		return f.refresh(ctx, s)
	case nil:
		return nil, ErrNoSession
	default:
		return s, fmt.Errorf("%w: %T", ErrUnknownType, s)
	}
}

func (f *DeviceFlow) requestDeviceCode(ctx context.Context, s Unauthenticated) (Session, error) {
	endpoint := s.LoginBaseURL + oauth2.DeviceCodePath
	logger := zerolog.Ctx(ctx).With().Str("client_id", s.ClientID).Logger()
	logger.Info().Str("endpoint", endpoint).Msg("Requesting device code")

	body, err := f.transport.PostForm(ctx, endpoint, []Field{
		{oauth2.FieldClientID, s.ClientID},
		{oauth2.FieldScope, f.scope},
	})
	if err != nil {
		return s, err
	}

	var resp oauth2.DeviceCodeResponse
	if err := decodeResponse(endpoint, body, &resp); err != nil {
		logger.Err(err).Msg("Device code request failed")
		return s, err
	}
	if resp.DeviceCode == "" || resp.UserCode == "" {
		return s, &ProtocolError{Endpoint: endpoint, Reason: "device_code or user_code missing"}
	}

	logger.Info().Str("verification_uri", resp.VerificationURI).Msg("Device code issued, waiting for user")
	return PendingUserCode{
		ClientConfig:    s.ClientConfig,
		DeviceCode:      resp.DeviceCode,
		UserCode:        resp.UserCode,
		VerificationURL: resp.VerificationURI,
		Message:         resp.Message,
	}, nil
}

func (f *DeviceFlow) pollToken(ctx context.Context, s PendingUserCode) (Session, error) {
	endpoint := s.LoginBaseURL + oauth2.TokenPath
	logger := zerolog.Ctx(ctx).With().Str("client_id", s.ClientID).Logger()
	logger.Debug().Str("endpoint", endpoint).Msg("Polling for device code token")

	body, err := f.transport.PostForm(ctx, endpoint, []Field{
		{oauth2.FieldClientID, s.ClientID},
		{oauth2.FieldGrantType, string(oauth2.DeviceCodeGrant)},
		{oauth2.FieldDeviceCode, s.DeviceCode},
	})
	if err != nil {
		return s, err
	}

	var resp oauth2.TokenResponse
	if err := decodeResponse(endpoint, body, &resp); err != nil {
		switch {
		case errors.Is(err, ErrCodeDeclined), errors.Is(err, ErrCodeExpired):
			logger.Warn().Err(err).Msg("Device code no longer usable, restarting")
			return Unauthenticated{ClientConfig: s.ClientConfig}, err
		case errors.Is(err, ErrCodePending):
			logger.Info().Msg("Still waiting for the user to enter the code")
		default:
			logger.Err(err).Msg("Token poll failed")
		}
		return s, err
	}
	if err := validateToken(endpoint, resp); err != nil {
		return s, err
	}

	now := f.clock.Now()
	logger.Info().Int("expires_in", resp.ExpiresIn).Msg("Device code exchanged for tokens")
	return Authenticated{
		ClientConfig: s.ClientConfig,
		AccessToken:  resp.AccessToken,
		RefreshToken: utils.Value(resp.RefreshToken),
		IDToken:      utils.Value(resp.IdToken),
		ExpiresAt:    expiry(now, resp.ExpiresIn),
	}, nil
}

func (f *DeviceFlow) refresh(ctx context.Context, s Authenticated) (Session, error) {
	now := f.clock.Now()
	if !s.Expired(now) {
		return s, nil
	}

	endpoint := s.LoginBaseURL + oauth2.TokenPath
	logger := zerolog.Ctx(ctx).With().Str("client_id", s.ClientID).Logger()
	logger.Info().
		Time("expired_at", s.ExpiresAt).
		Str("refresh_token", logging.Redact(s.RefreshToken)).
		Msg("Access token expired, refreshing")

	body, err := f.transport.PostForm(ctx, endpoint, []Field{
		{oauth2.FieldClientID, s.ClientID},
		{oauth2.FieldGrantType, string(oauth2.RefreshTokenGrant)},
		{oauth2.FieldRefreshToken, s.RefreshToken},
		{oauth2.FieldScope, f.scope},
	})
	if err != nil {
		return s, err
	}

	var resp oauth2.TokenResponse
	if err := decodeResponse(endpoint, body, &resp); err != nil {
		logger.Err(err).Msg("Token refresh failed")
		return s, err
	}
	if err := validateToken(endpoint, resp); err != nil {
		return s, err
	}

	// Refreshing only once ExpiresAt <= now, with expires_in > 0 enforced by
	// validateToken, makes the new expiry strictly later than the old one.
	return Authenticated{
		ClientConfig: s.ClientConfig,
		AccessToken:  resp.AccessToken,
		RefreshToken: utils.ValueOr(resp.RefreshToken, s.RefreshToken),
		IDToken:      utils.ValueOr(resp.IdToken, s.IDToken),
		ExpiresAt:    expiry(now, resp.ExpiresIn),
	}, nil
}

// decodeResponse tries the provider error shape first and only then the
// success payload.
func decodeResponse(endpoint, body string, out any) error {
	var perr oauth2.ErrorResponse
	if err := json.Unmarshal([]byte(body), &perr); err == nil && perr.Error != "" {
		return &ProviderError{Code: perr.Error, Description: perr.ErrorDescription}
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return &ProtocolError{Endpoint: endpoint, Reason: "malformed payload", Err: err}
	}
	return nil
}

func validateToken(endpoint string, resp oauth2.TokenResponse) error {
	if resp.AccessToken == "" {
		return &ProtocolError{Endpoint: endpoint, Reason: "access_token missing"}
	}
	if resp.ExpiresIn <= 0 {
		return &ProtocolError{Endpoint: endpoint, Reason: fmt.Sprintf("invalid expires_in %d", resp.ExpiresIn)}
	}
	return nil
}

func expiry(now time.Time, expiresIn int) time.Time {
	return now.Add(time.Duration(expiresIn) * time.Second).UTC()
}
