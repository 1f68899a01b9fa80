package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"lookaway/internal/reminder"
)

// ToSettings maps the file record onto the scheduler snapshot.
func (c *Config) ToSettings() (reminder.Settings, error) {
	loc, err := c.Location()
	if err != nil {
		return reminder.Settings{}, err
	}
	timeout, err := ParseDurationOrDefault("delivery.timeout", c.Delivery.Timeout, 30*time.Second)
	if err != nil {
		return reminder.Settings{}, err
	}

	set := reminder.Settings{
		IntervalMinutes:   c.ReminderIntervalMinutes,
		LongBreakEveryN:   c.LongBreakInterval,
		DNDManualOverride: c.DoNotDisturb,
		EnabledChannels:   c.EnabledChannels(),
		Messages:          cleanMessages(c.Messages),
		ShortBreak: reminder.BreakType{
			Duration:    time.Duration(c.BreakTypes.QuickBreak.DurationSeconds) * time.Second,
			Description: c.BreakTypes.QuickBreak.Description,
		},
		LongBreak: reminder.BreakType{
			Duration:    time.Duration(c.BreakTypes.LongBreak.DurationSeconds) * time.Second,
			Description: c.BreakTypes.LongBreak.Description,
		},
		SnoozeMinutes:  c.SnoozeMinutes,
		ChannelTimeout: timeout,
		Location:       loc,
	}
	if c.QuietHours.Enabled {
		start, err := reminder.ParseClock(c.QuietHours.Start)
		if err != nil {
			return reminder.Settings{}, fmt.Errorf("quiet_hours.start: %w", err)
		}
		end, err := reminder.ParseClock(c.QuietHours.End)
		if err != nil {
			return reminder.Settings{}, fmt.Errorf("quiet_hours.end: %w", err)
		}
		set.QuietHours = &reminder.QuietHours{Start: start, End: end}
	}
	if err := set.Validate(); err != nil {
		return reminder.Settings{}, err
	}
	return set, nil
}

// EnabledChannels lists enabled channels in fixed delivery order.
func (c *Config) EnabledChannels() []reminder.ChannelID {
	var out []reminder.ChannelID
	if c.Notifications.Desktop {
		out = append(out, reminder.ChannelDesktop)
	}
	if c.Notifications.Email {
		out = append(out, reminder.ChannelEmail)
	}
	if c.Notifications.Telegram {
		out = append(out, reminder.ChannelTelegram)
	}
	return out
}

func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Driver.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: driver.timezone: %v", reminder.ErrInvalidArgument, err)
	}
	return loc, nil
}

// PollInterval is the tick cadence. It is clamped to [1s, 60s].
func (c *Config) PollInterval() (time.Duration, error) {
	d, err := ParseDurationOrDefault("driver.poll_interval", c.Driver.PollInterval, 30*time.Second)
	if err != nil {
		return 0, err
	}
	return min(max(d, time.Second), time.Minute), nil
}

// TelegramChatID parses telegram_settings.chat_id. 0 means unset.
func (c *Config) TelegramChatID() (int64, error) {
	s := strings.TrimSpace(c.TelegramSettings.ChatID)
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: telegram_settings.chat_id %q is not a number", reminder.ErrInvalidArgument, s)
	}
	return id, nil
}

// Validate checks everything the daemon needs before it applies c.
func Validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", reminder.ErrInvalidArgument)
	}
	if _, err := c.ToSettings(); err != nil {
		return err
	}
	if _, err := c.PollInterval(); err != nil {
		return err
	}
	if _, err := c.TelegramChatID(); err != nil {
		return err
	}
	if c.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
		case "", "none", "sqlite", "sqlite3", "file":
		default:
			return fmt.Errorf("%w: storage.driver %q (want sqlite or file)", reminder.ErrInvalidArgument, c.Storage.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	for _, p := range []struct{ path, raw string }{
		{"delivery.retry_base", c.Delivery.RetryBase},
		{"delivery.retry_max_delay", c.Delivery.RetryMaxDelay},
		{"telegram_settings.poll_timeout", c.TelegramSettings.PollTimeout},
	} {
		if _, err := ParseDurationField(p.path, p.raw); err != nil {
			return err
		}
	}
	if c.Delivery.RetryMax < 0 {
		return fmt.Errorf("%w: delivery.retry_max must be >= 0", reminder.ErrInvalidArgument)
	}
	return nil
}

func cleanMessages(in []string) []string {
	out := make([]string, 0, len(in))
	for _, m := range in {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
