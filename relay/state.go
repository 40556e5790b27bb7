// Package relay keeps the calendar integration authenticated and relays
// calendar events as notifications.
package relay

import (
	"encoding/json"
	"fmt"

	"github.com/jrsteele09/go-calendar-relay/auth"
	"github.com/jrsteele09/go-calendar-relay/calendar"
	"github.com/jrsteele09/go-calendar-relay/internal/config"
	"github.com/jrsteele09/go-calendar-relay/notify"
)

// Settings is the configuration a state value was built from.
type Settings struct {
	ClientID          string `json:"client_id"`
	LoginBaseURL      string `json:"login_base_url"`
	GraphBaseURL      string `json:"graph_base_url"`
	PushbulletToken   string `json:"pushbullet_token"`
	PushbulletBaseURL string `json:"pushbullet_base_url"`
	Timezone          string `json:"timezone"`
}

// SettingsFrom reads Settings from c. c is expected to be validated.
func SettingsFrom(c config.Config) Settings {
	return Settings{
		ClientID:          c.GetClientID(),
		LoginBaseURL:      c.GetLoginBaseURL(),
		GraphBaseURL:      c.GetGraphBaseURL(),
		PushbulletToken:   c.GetPushbulletToken(),
		PushbulletBaseURL: c.GetPushbulletBaseURL(),
		Timezone:          c.GetSummaryTimezone(),
	}
}

// Client is the configuration triple every auth session carries.
func (s Settings) Client() auth.ClientConfig {
	return auth.ClientConfig{
		ClientID:     s.ClientID,
		LoginBaseURL: s.LoginBaseURL,
		GraphBaseURL: s.GraphBaseURL,
	}
}

// AppState is the value held in the relay's state cell.
//
// Notifiers and Calendars are rebuilt from Settings whenever a state is
// loaded; they are never persisted.
type AppState struct {
	Settings  Settings
	Session   auth.Session
	Notifiers []notify.Notifier
	Calendars []calendar.Calendar
}

type appStateDocument struct {
	Settings Settings    `json:"settings"`
	Session  auth.Record `json:"session"`
}

func (s AppState) MarshalJSON() ([]byte, error) {
	return json.Marshal(appStateDocument{
		Settings: s.Settings,
		Session:  auth.RecordOf(s.Session),
	})
}

func (s *AppState) UnmarshalJSON(data []byte) error {
	var doc appStateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	session, err := doc.Session.Session()
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	*s = AppState{Settings: doc.Settings, Session: session}
	return nil
}
