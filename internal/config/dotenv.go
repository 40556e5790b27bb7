package config

import (
	"os"

	"github.com/subosito/gotenv"

	"github.com/jrsteele09/go-calendar-relay/internal/errors"
)

// LoadDotEnv loads variables from path without overriding ones already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return errors.Wrapf(gotenv.Load(path), "loading %s", path)
}
