package config

import (
	"fmt"
	"os"
	"time"
)

const (
	portEnvVar         = "PORT"
	appNameVar         = "APP_NAME"
	envVar             = "ENV"
	logLevelVar        = "LOG_LEVEL"
	SummaryTimezoneVar = "SUMMARY_TIMEZONE"
	httpTimeoutVar     = "HTTP_TIMEOUT"

	defaultHTTPTimeout = 30 * time.Second
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Calendar Relay")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, "DEV")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetSummaryTimezone is the IANA zone used to find "today" and to format
// event times in summaries.
func (EnvVars) GetSummaryTimezone() string {
	return GetEnv(SummaryTimezoneVar, "UTC")
}

func (EnvVars) GetHTTPTimeout() time.Duration {
	d, err := time.ParseDuration(GetEnv(httpTimeoutVar, ""))
	if err != nil || d <= 0 {
		return defaultHTTPTimeout
	}
	return d
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
