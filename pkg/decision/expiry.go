package decision

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Lifetime windows are written as <number><unit>, case-insensitive.
var windowPattern = regexp.MustCompile(`^(\d+)([hdwy])$`)

var (
	// ErrInvalidFormat reports an expires value that does not match the
	// <number><unit> grammar.
	ErrInvalidFormat = errors.New("expected format: <number><unit> where unit is h/d/w/y (e.g. '1d', '2w', '48h', '1y')")

	// ErrInvalidTimestamp reports an unparsable creation timestamp.
	ErrInvalidTimestamp = errors.New("invalid creation timestamp")
)

// ParseWindow converts a lifetime window such as "1d", "2w", "48h" or "1y"
// into a duration. A year is exactly 365 days, a week exactly 7; calendar
// arithmetic is deliberately not used so that expiry stays a pure offset
// from creation time.
func ParseWindow(value string) (time.Duration, error) {
	m := windowPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(value)))
	if m == nil {
		return 0, ErrInvalidFormat
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, ErrInvalidFormat
	}

	switch m[2] {
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "w":
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case "y":
		return time.Duration(n) * 365 * 24 * time.Hour, nil
	}
	return 0, ErrInvalidFormat
}

// ComputeExpiry resolves an expires label and an RFC3339 creation timestamp
// to the absolute instant the cluster expires. A trailing "Z" is treated as
// UTC; numeric offsets parse under standard RFC3339 rules.
func ComputeExpiry(expiresValue, creationTimestamp string) (time.Time, error) {
	delta, err := ParseWindow(expiresValue)
	if err != nil {
		return time.Time{}, err
	}

	created, err := time.Parse(time.RFC3339, strings.TrimSpace(creationTimestamp))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidTimestamp, creationTimestamp)
	}

	return created.Add(delta), nil
}

// FormatRemaining renders a time-to-expiry floored to whole days when at
// least one full day remains, otherwise whole hours.
func FormatRemaining(remaining time.Duration) string {
	days := int(remaining.Hours()) / 24
	if days > 0 {
		return fmt.Sprintf("%dd", days)
	}
	hours := int(remaining.Hours())
	if hours < 0 {
		hours = 0
	}
	return fmt.Sprintf("%dh", hours)
}
