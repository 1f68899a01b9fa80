package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

const appDir = "lookaway"

// Default returns a complete settings record with stock values.
func Default() Config {
	return Config{
		ReminderIntervalMinutes: 20,
		LongBreakInterval:       3,
		SnoozeMinutes:           5,
		FirstRun:                true,
		QuietHours:              QuietHoursConfig{Enabled: true, Start: "23:00", End: "07:00"},
		Messages: []string{
			"Time for a break! Look away from your screen for 20 seconds.",
			"Take a moment to rest your eyes. Look at something 20 feet away.",
			"Eye break time! Blink several times and look into the distance.",
			"Give your eyes a rest. Focus on something far away for a moment.",
			"Break time! Close your eyes for a few seconds or look outside.",
		},
		BreakTypes: BreakTypesConfig{
			QuickBreak: BreakTypeConfig{DurationSeconds: 20, Description: "Quick eye rest - look away for 20 seconds"},
			LongBreak:  BreakTypeConfig{DurationSeconds: 300, Description: "Long break - step away from computer for 5 minutes"},
		},
		Notifications: NotificationsConfig{Desktop: true},
		EmailSettings: EmailSettings{SMTPPort: 587},
		TelegramSettings: TelegramSettings{
			PollTimeout: "10s",
		},
		Delivery: DeliveryConfig{
			Timeout:       "30s",
			RetryMax:      2,
			RetryBase:     "1s",
			RetryMaxDelay: "10s",
			RatePerSec:    2,
		},
		Driver: DriverConfig{PollInterval: "30s"},
		Logging: LoggingConfig{
			Level:    "info",
			Console:  true,
			Telegram: LoggingTelegram{MinLevel: "warn", RatePerSec: 1},
		},
		Tray: TrayConfig{Enabled: true},
	}
}

// DefaultPath is <user config dir>/lookaway/settings.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir, "settings.yaml"), nil
}

// DataDir is where the history store lives by default.
func DataDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appDir), nil
}

// ExpandPath resolves a leading "~" and cleans p.
func ExpandPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	out, err := homedir.Expand(p)
	if err != nil {
		return "", err
	}
	return filepath.Clean(out), nil
}
