package config

// Config is the on-disk settings record. Keys missing from the file keep
// the values from Default().
type Config struct {
	ReminderIntervalMinutes int  `json:"reminder_interval_minutes" yaml:"reminder_interval_minutes"`
	LongBreakInterval       int  `json:"long_break_interval" yaml:"long_break_interval"`
	SnoozeMinutes           int  `json:"snooze_minutes" yaml:"snooze_minutes"`
	DoNotDisturb            bool `json:"do_not_disturb" yaml:"do_not_disturb"`
	FirstRun                bool `json:"first_run" yaml:"first_run"`

	QuietHours QuietHoursConfig `json:"quiet_hours" yaml:"quiet_hours"`
	Messages   []string         `json:"messages" yaml:"messages"`
	BreakTypes BreakTypesConfig `json:"break_types" yaml:"break_types"`

	Notifications    NotificationsConfig `json:"notifications" yaml:"notifications"`
	EmailSettings    EmailSettings       `json:"email_settings" yaml:"email_settings"`
	TelegramSettings TelegramSettings    `json:"telegram_settings" yaml:"telegram_settings"`

	Delivery DeliveryConfig `json:"delivery" yaml:"delivery"`
	Driver   DriverConfig   `json:"driver" yaml:"driver"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Storage  *StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`
	Tray     TrayConfig     `json:"tray" yaml:"tray"`
}

// QuietHoursConfig uses "HH:MM" (24h) wall-clock times in driver.timezone.
type QuietHoursConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Start   string `json:"start" yaml:"start"`
	End     string `json:"end" yaml:"end"`
}

type BreakTypesConfig struct {
	QuickBreak BreakTypeConfig `json:"quick_break" yaml:"quick_break"`
	LongBreak  BreakTypeConfig `json:"long_break" yaml:"long_break"`
}

type BreakTypeConfig struct {
	DurationSeconds int    `json:"duration_seconds" yaml:"duration_seconds"`
	Description     string `json:"description" yaml:"description"`
}

type NotificationsConfig struct {
	Desktop  bool `json:"desktop" yaml:"desktop"`
	Email    bool `json:"email" yaml:"email"`
	Telegram bool `json:"telegram" yaml:"telegram"`
}

// EmailSettings configures the SMTP channel. An empty password is looked up
// in the OS keyring.
type EmailSettings struct {
	SMTPServer string `json:"smtp_server" yaml:"smtp_server"`
	SMTPPort   int    `json:"smtp_port" yaml:"smtp_port"`
	Email      string `json:"email" yaml:"email"`
	Password   string `json:"password" yaml:"password"`
	Recipient  string `json:"recipient" yaml:"recipient"`
}

// TelegramSettings configures the bot. An empty bot_token is looked up in
// the OS keyring.
type TelegramSettings struct {
	BotToken     string  `json:"bot_token" yaml:"bot_token"`
	ChatID       string  `json:"chat_id" yaml:"chat_id"`
	OwnerUserIDs []int64 `json:"owner_user_ids" yaml:"owner_user_ids"`
	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout" yaml:"poll_timeout"`
	// Commands enables /status, /pause... from owner accounts.
	Commands bool `json:"commands" yaml:"commands"`
}

// DeliveryConfig bounds channel sends. Durations are Go duration strings.
type DeliveryConfig struct {
	Timeout       string `json:"timeout" yaml:"timeout"`
	RetryMax      int    `json:"retry_max" yaml:"retry_max"`
	RetryBase     string `json:"retry_base" yaml:"retry_base"`
	RetryMaxDelay string `json:"retry_max_delay" yaml:"retry_max_delay"`
	RatePerSec    int    `json:"rate_per_sec" yaml:"rate_per_sec"`
}

type DriverConfig struct {
	PollInterval string `json:"poll_interval" yaml:"poll_interval"`
	// Timezone is an IANA name; empty means the system zone.
	Timezone string `json:"timezone" yaml:"timezone"`
}

type LoggingConfig struct {
	Level    string          `json:"level" yaml:"level"`
	Console  bool            `json:"console" yaml:"console"`
	File     LoggingFile     `json:"file" yaml:"file"`
	Telegram LoggingTelegram `json:"telegram" yaml:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	MinLevel   string `json:"min_level" yaml:"min_level"`
	RatePerSec int    `json:"rate_per_sec" yaml:"rate_per_sec"`
}

// StorageConfig enables the break history log.
//
// Example:
//
//	storage: { driver: sqlite, path: ~/.local/share/lookaway/history.db }
type StorageConfig struct {
	Driver      string `json:"driver" yaml:"driver"`
	Path        string `json:"path" yaml:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty" yaml:"busy_timeout,omitempty"`
}

type TrayConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}
