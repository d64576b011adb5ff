package environ

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Prefix is prepended to every variable name looked up by this package
const Prefix = "SNAPKEEPER_"

func lookup(key string) (string, bool) {
	return os.LookupEnv(Prefix + key)
}

func GetString(key, fallback string) string {
	if value, ok := lookup(key); ok {
		return value
	}

	return fallback
}

func GetInt(key string, fallback int) int {
	if value, ok := lookup(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}

	return fallback
}

func GetBool(key string, fallback bool) bool {
	if value, ok := lookup(key); ok {
		return value == "true"
	}

	return fallback
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// GetStringSlice splits a comma separated variable
func GetStringSlice(key string, fallback []string) []string {
	value, ok := lookup(key)
	if !ok || value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
