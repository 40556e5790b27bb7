package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate checks the settings the relay cannot run without and reports all
// problems at once.
func Validate(c Config) error {
	cerr := &ConfigError{}

	required := []struct {
		name  string
		value string
	}{
		{ClientIDVar, c.GetClientID()},
		{PushbulletTokenVar, c.GetPushbulletToken()},
		{PushbulletBaseURLVar, c.GetPushbulletBaseURL()},
		{LoginBaseURLVar, c.GetLoginBaseURL()},
	}
	for _, r := range required {
		if r.value == "" {
			cerr.Missing = append(cerr.Missing, r.name)
		}
	}

	for _, u := range []struct {
		name  string
		value string
	}{
		{LoginBaseURLVar, c.GetLoginBaseURL()},
		{GraphBaseURLVar, c.GetGraphBaseURL()},
		{PushbulletBaseURLVar, c.GetPushbulletBaseURL()},
	} {
		if u.value == "" {
			continue
		}
		if parsed, err := url.Parse(u.value); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("%s=%q", u.name, u.value))
		}
	}

	switch c.GetStateMode() {
	case StateModeMemory, StateModeFile, StateModeSQL:
	default:
		cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("%s=%q", StateModeVar, c.GetStateMode()))
	}

	if _, err := time.LoadLocation(c.GetSummaryTimezone()); err != nil {
		cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("%s=%q", SummaryTimezoneVar, c.GetSummaryTimezone()))
	}

	if len(cerr.Missing) > 0 || len(cerr.Invalid) > 0 {
		return cerr
	}
	return nil
}
