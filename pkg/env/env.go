package env

import (
	"os"
	"strings"
)

// Get reads an environment variable, falling back when it is unset or blank.
// Whitespace-only values count as unset.
func Get(key, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}
