package utils

import "strings"

// FirstString returns the first non-blank string value found under keys.
func FirstString(values map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := values[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
