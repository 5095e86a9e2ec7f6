// Package envutil reads typed environment variables. Unset, blank or
// unparsable values fall back to the supplied default.
package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func lookup[T any](name string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func String(name, def string) string {
	return lookup(name, def, func(s string) (string, error) { return s, nil })
}

func Int(name string, def int) int { return lookup(name, def, strconv.Atoi) }

func Float(name string, def float64) float64 {
	return lookup(name, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// Bool understands 1/0, true/false, yes/no and on/off.
func Bool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// Duration accepts Go duration strings ("30s") or a bare number of seconds.
func Duration(name string, def time.Duration) time.Duration {
	return lookup(name, def, func(s string) (time.Duration, error) {
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		secs, err := strconv.Atoi(s)
		return time.Duration(secs) * time.Second, err
	})
}
