package config

import (
	"fmt"
	"strings"

	"github.com/jrsteele09/go-calendar-relay/internal/errors"
)

// ConfigError reports every missing or invalid setting found while loading.
type ConfigError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("required environment variables missing: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid settings: %s", strings.Join(e.Invalid, ", ")))
	}
	return strings.Join(parts, "; ")
}

func (e *ConfigError) Is(target error) bool {
	switch target {
	case errors.ErrMissingSetting:
		return len(e.Missing) > 0
	case errors.ErrInvalidSetting:
		return len(e.Invalid) > 0
	}
	return false
}
