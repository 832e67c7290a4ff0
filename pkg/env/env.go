package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of the environment variable, or the
// fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
