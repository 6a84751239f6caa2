package jwtx

import (
	"regexp"
	"strconv"
	"time"
)

// DefaultLifetime is used when a configured lifetime string does not parse.
const DefaultLifetime = 900 * time.Second

var lifetimePattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseLifetime parses a duration string of the fixed grammar
// "<integer><s|m|h|d>" (e.g. "15m", "7d"). Anything else falls back to
// DefaultLifetime rather than failing; a misconfigured lifetime should not
// keep the service from starting.
func ParseLifetime(s string) time.Duration {
	m := lifetimePattern.FindStringSubmatch(s)
	if m == nil {
		return DefaultLifetime
	}

	value, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		// Only reachable when the integer overflows int64.
		return DefaultLifetime
	}

	switch m[2] {
	case "s":
		return time.Duration(value) * time.Second
	case "m":
		return time.Duration(value) * time.Minute
	case "h":
		return time.Duration(value) * time.Hour
	case "d":
		return time.Duration(value) * 24 * time.Hour
	}
	return DefaultLifetime
}
