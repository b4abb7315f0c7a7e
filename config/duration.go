package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ttlPattern is the accepted TTL grammar: a positive integer followed by a
// single unit letter. time.ParseDuration is not used because it has no day
// unit and accepts compound forms this config deliberately rejects.
var ttlPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseTTL parses a TTL string such as "15m" or "7d" into a duration.
// Valid units are s, m, h and d. The zero value "0s" is rejected along with
// everything the grammar does not match.
func ParseTTL(s string) (time.Duration, error) {
	m := ttlPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid TTL %q: want <number><s|m|h|d>", s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid TTL %q: %w", s, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid TTL %q: must be positive", s)
	}

	var unit time.Duration
	switch m[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}
	return time.Duration(n) * unit, nil
}
