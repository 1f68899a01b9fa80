// Package desktop shows reminders through the freedesktop notification
// service on Linux and through beeep on other systems.
package desktop

import (
	"path/filepath"
	"strings"
	"time"

	"lookaway/internal/reminder"
)

type Config struct {
	AppName string
	Icon    string
	// ExpireTimeout is how long the popup stays up; 0 lets the server decide.
	ExpireTimeout time.Duration
}

// Notifier opens a fresh session-bus connection for each popup and closes it
// afterwards, so a restarted notification daemon never leaves it stale.
type Notifier struct {
	cfg Config
}

func New(cfg Config) *Notifier {
	if strings.TrimSpace(cfg.AppName) == "" {
		cfg.AppName = "LookAway"
	}
	if cfg.Icon == "" {
		cfg.Icon = "dialog-information"
	}
	return &Notifier{cfg: cfg}
}

// urgency follows the freedesktop hint values: 1 normal, 2 critical.
func urgency(kind reminder.Kind) byte {
	if kind == reminder.KindLong {
		return 2
	}
	return 1
}

func expireMillis(d time.Duration) int32 {
	if d <= 0 {
		return -1
	}
	return int32(d / time.Millisecond)
}

// iconFile keeps icon only when it names a PNG file. Stock theme names such
// as "dialog-information" mean nothing outside freedesktop.
func iconFile(icon string) string {
	if strings.EqualFold(filepath.Ext(icon), ".png") {
		return icon
	}
	return ""
}
