package auth

import (
	"fmt"
	"time"
)

// Record is the flat, persisted form of a Session. State selects which of
// the optional fields are meaningful.
type Record struct {
	State        State  `json:"state"`
	ClientID     string `json:"client_id"`
	LoginBaseURL string `json:"login_base_url"`
	GraphBaseURL string `json:"graph_base_url"`

	DeviceCode      string `json:"device_code,omitempty"`
	UserCode        string `json:"user_code,omitempty"`
	VerificationURL string `json:"verification_url,omitempty"`
	Message         string `json:"message,omitempty"`

	AccessToken  string     `json:"access_token,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	IDToken      string     `json:"id_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// RecordOf flattens s. A nil session yields the zero Record.
func RecordOf(s Session) Record {
	if s == nil {
		return Record{}
	}
	c := s.Client()
	r := Record{
		State:        s.State(),
		ClientID:     c.ClientID,
		LoginBaseURL: c.LoginBaseURL,
		GraphBaseURL: c.GraphBaseURL,
	}
	switch s := s.(type) {
	case PendingUserCode:
		r.DeviceCode = s.DeviceCode
		r.UserCode = s.UserCode
		r.VerificationURL = s.VerificationURL
		r.Message = s.Message
	case Authenticated:
		expiresAt := s.ExpiresAt.UTC()
		r.AccessToken = s.AccessToken
		r.RefreshToken = s.RefreshToken
		r.IDToken = s.IDToken
		r.ExpiresAt = &expiresAt
	}
	return r
}

// Session rebuilds the Session the record was made from.
func (r Record) Session() (Session, error) {
	cfg := ClientConfig{
		ClientID:     r.ClientID,
		LoginBaseURL: r.LoginBaseURL,
		GraphBaseURL: r.GraphBaseURL,
	}
	switch r.State {
	case StateUnauthenticated:
		return Unauthenticated{ClientConfig: cfg}, nil
	case StatePendingUserCode:
		return PendingUserCode{
			ClientConfig:    cfg,
			DeviceCode:      r.DeviceCode,
			UserCode:        r.UserCode,
			VerificationURL: r.VerificationURL,
			Message:         r.Message,
		}, nil
	case StateAuthenticated:
		a := Authenticated{
			ClientConfig: cfg,
			AccessToken:  r.AccessToken,
			RefreshToken: r.RefreshToken,
			IDToken:      r.IDToken,
		}
		if r.ExpiresAt != nil {
			a.ExpiresAt = r.ExpiresAt.UTC()
		}
		return a, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, r.State)
}
