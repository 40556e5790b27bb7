package auth

import (
	"errors"
	"fmt"

	"github.com/jrsteele09/go-calendar-relay/oauth2"
)

var (
	// ErrCodePending: the user has not entered the code yet. Poll again later
	// with the same session.
	ErrCodePending = errors.New("authorization pending")
	// ErrCodeDeclined: the user declined. The session restarts from Unauthenticated.
	ErrCodeDeclined = errors.New("authorization declined")
	// ErrCodeBad: the provider did not recognise the device code.
	ErrCodeBad = errors.New("bad verification code")
	// ErrCodeExpired: the device code timed out. The session restarts from Unauthenticated.
	ErrCodeExpired = errors.New("device code expired")
	// ErrProvider matches provider errors with any other code.
	ErrProvider = errors.New("provider error")

	ErrNoSession   = errors.New("no auth session")
	ErrNoIDToken   = errors.New("session has no id token")
	ErrUnknownType = errors.New("unknown session state")
)

// ProviderError is a structured error returned by the identity provider.
// errors.Is matches it against the ErrCode* sentinel for its code, or
// ErrProvider for codes without a sentinel.
type ProviderError struct {
	Code        oauth2.ErrorCode
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s: %s", e.Kind(), e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind(), e.Code, e.Description)
}

// Kind is the sentinel error classifying Code.
func (e *ProviderError) Kind() error {
	switch e.Code {
	case oauth2.AuthorizationPending:
		return ErrCodePending
	case oauth2.AuthorizationDeclined:
		return ErrCodeDeclined
	case oauth2.BadVerificationCode:
		return ErrCodeBad
	case oauth2.ExpiredToken:
		return ErrCodeExpired
	}
	return ErrProvider
}

func (e *ProviderError) Is(target error) bool {
	return e.Kind() == target
}

// TransportError is a network failure, or a non-2xx response whose body is
// not a structured provider error.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("POST %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("POST %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is a response body that matches neither the provider error
// shape nor the expected success payload.
type ProtocolError struct {
	Endpoint string
	Reason   string
	Err      error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected response from %s: %s: %v", e.Endpoint, e.Reason, e.Err)
	}
	return fmt.Sprintf("unexpected response from %s: %s", e.Endpoint, e.Reason)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
