package config

import (
	"fmt"
	"strings"
	"time"

	"lookaway/internal/reminder"
)

// ParseDurationField parses a non-negative Go duration string found at path.
// A blank value is 0.
func ParseDurationField(path, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%w: %s: %v", reminder.ErrInvalidArgument, path, err)
	case d < 0:
		return 0, fmt.Errorf("%w: %s: duration must be >= 0", reminder.ErrInvalidArgument, path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def for blank or zero values.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}
