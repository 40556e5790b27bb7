package config

import "time"

type Config interface {
	EnvConfig
	AuthConfig
	NotifyConfig
	StateConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetSummaryTimezone() string
	GetHTTPTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
	Auth
	Notify
	State
}

func New() Config {
	return mainConfig{}
}

// Load reads an optional .env file into the environment, then validates
// the required settings. Settings already present in the environment win.
func Load(envFile string) (Config, error) {
	if err := LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	c := New()
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}
