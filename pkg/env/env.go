package env

import "os"

// Get returns the value of the named environment variable, falling back to
// def when unset or empty.
func Get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
