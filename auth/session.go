package auth

import (
	"time"
)

// State names a Session variant. It is also the discriminator of a
// persisted Record.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StatePendingUserCode State = "pending_user_code"
	StateAuthenticated   State = "authenticated"
)

// ClientConfig is the configuration every session carries unchanged from one
// state to the next.
type ClientConfig struct {
	ClientID     string
	LoginBaseURL string
	GraphBaseURL string
}

// Client returns the configuration triple. It is promoted to every state.
func (c ClientConfig) Client() ClientConfig {
	return c
}

// Session is the device authorization grant state machine. Values are never
// mutated: a transition yields a new Session.
//
// Implementations are Unauthenticated, PendingUserCode and Authenticated.
type Session interface {
	Client() ClientConfig
	State() State
	isSession()
}

// Unauthenticated has no device code and no tokens yet.
type Unauthenticated struct {
	ClientConfig
}

// PendingUserCode waits for the user to enter UserCode at VerificationURL.
type PendingUserCode struct {
	ClientConfig
	DeviceCode      string
	UserCode        string
	VerificationURL string
	// Message is the provider's instruction text, suitable for a notification.
	Message string
}

// Authenticated holds a token set. ExpiresAt is when AccessToken stops working.
type Authenticated struct {
	ClientConfig
	AccessToken  string
	RefreshToken string
	IDToken      string
	ExpiresAt    time.Time
}

// NewSession starts a session for the given configuration.
func NewSession(cfg ClientConfig) Session {
	return Unauthenticated{ClientConfig: cfg}
}

func (Unauthenticated) State() State { return StateUnauthenticated }
func (PendingUserCode) State() State { return StatePendingUserCode }
func (Authenticated) State() State   { return StateAuthenticated }

func (Unauthenticated) isSession() {}
func (PendingUserCode) isSession() {}
func (Authenticated) isSession()   {}

// Expired reports whether the access token is no longer valid at now.
func (a Authenticated) Expired(now time.Time) bool {
	return !a.ExpiresAt.After(now)
}

// UserCode returns the code the user has to enter, if the session waits for one.
func UserCode(s Session) (code, message string, ok bool) {
	p, ok := s.(PendingUserCode)
	if !ok {
		return "", "", false
	}
	return p.UserCode, p.Message, true
}
