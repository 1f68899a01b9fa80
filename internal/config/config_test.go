package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"lookaway/internal/reminder"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoadYAMLMergesDefaults(t *testing.T) {
	t.Parallel()

	p := writeFile(t, t.TempDir(), "settings.yaml", `
reminder_interval_minutes: 25
notifications:
  desktop: true
  telegram: true
telegram_settings:
  chat_id: "12345"
  owner_user_ids: [987654321012]
quiet_hours:
  enabled: true
  start: "22:00"
  end: "07:00"
`)
	m := NewConfigManager(p)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	if cfg.ReminderIntervalMinutes != 25 {
		t.Fatalf("interval=%d", cfg.ReminderIntervalMinutes)
	}
	if cfg.LongBreakInterval != 3 || cfg.SnoozeMinutes != 5 || len(cfg.Messages) != 5 {
		t.Fatalf("defaults not kept: %+v", cfg)
	}
	if cfg.TelegramSettings.OwnerUserIDs[0] != 987654321012 {
		t.Fatalf("owner id=%d", cfg.TelegramSettings.OwnerUserIDs[0])
	}
	if m.Get() != cfg {
		t.Fatalf("Load() should commit")
	}

	set, err := cfg.ToSettings()
	if err != nil {
		t.Fatalf("ToSettings() err=%v", err)
	}
	if want := []reminder.ChannelID{reminder.ChannelDesktop, reminder.ChannelTelegram}; !slices.Equal(set.EnabledChannels, want) {
		t.Fatalf("channels=%v, want %v", set.EnabledChannels, want)
	}
	if set.QuietHours == nil || set.QuietHours.Start != (reminder.ClockTime{Hour: 22}) {
		t.Fatalf("quiet hours=%v", set.QuietHours)
	}
	if set.LongBreak.Duration != 5*time.Minute || set.ChannelTimeout != 30*time.Second {
		t.Fatalf("settings=%+v", set)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	p := writeFile(t, t.TempDir(), "settings.json", `{"reminder_interval_minutes": 20, "sleep_hourz": {}}`)
	_, err := NewConfigManager(p).Load()
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Load() err=%v, want ErrUnavailable", err)
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"second document", `{"snooze_minutes": 5}{"snooze_minutes": 6}`},
		{"second document with unknown key", `{"snooze_minutes": 5}{"bogus": 1}`},
		{"stray token", `{"snooze_minutes": 5} 42`},
		{"stray brace", `{"snooze_minutes": 5}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := writeFile(t, t.TempDir(), "settings.json", tt.body)
			if _, err := NewConfigManager(p).Load(); err == nil || !strings.Contains(err.Error(), "trailing") {
				t.Fatalf("Load() err=%v, want trailing data error", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewConfigManager(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Load() err=%v, want ErrUnavailable", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Config){
		"interval":   func(c *Config) { c.ReminderIntervalMinutes = 0 },
		"quiet":      func(c *Config) { c.QuietHours.Start = "25:00" },
		"quiet same": func(c *Config) { c.QuietHours.Start, c.QuietHours.End = "07:00", "07:00" },
		"timezone":   func(c *Config) { c.Driver.Timezone = "Mars/Olympus" },
		"chat id":    func(c *Config) { c.TelegramSettings.ChatID = "@channel" },
		"storage":    func(c *Config) { c.Storage = &StorageConfig{Driver: "postgres"} },
		"timeout":    func(c *Config) { c.Delivery.Timeout = "soon" },
		"no msgs":    func(c *Config) { c.Messages = []string{"  "} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			if err := Validate(&cfg); !errors.Is(err, reminder.ErrInvalidArgument) {
				t.Fatalf("Validate() err=%v, want ErrInvalidArgument", err)
			}
		})
	}
	def := Default()
	if err := Validate(&def); err != nil {
		t.Fatalf("Default() invalid: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"settings.yaml", "settings.json"} {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "nested", name)
			m := NewConfigManager(p)
			cfg := Default()
			cfg.FirstRun = false
			cfg.TelegramSettings.OwnerUserIDs = []int64{1234567890123}
			cfg.Storage = &StorageConfig{Driver: "file", Path: "/tmp/x"}
			if err := m.Save(&cfg); err != nil {
				t.Fatalf("Save() err=%v", err)
			}
			got, err := m.Parse()
			if err != nil {
				t.Fatalf("Parse() err=%v", err)
			}
			if hashConfig(got) != hashConfig(&cfg) {
				t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", got, cfg)
			}
		})
	}
}

func TestReloadPublishesOnlyChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeFile(t, dir, "settings.yaml", "reminder_interval_minutes: 20\n")
	m := NewConfigManager(p)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	changed, err := m.Reload(context.Background())
	if err != nil || changed {
		t.Fatalf("unchanged reload: changed=%v err=%v", changed, err)
	}

	writeFile(t, dir, "settings.yaml", "reminder_interval_minutes: 30\n")
	changed, err = m.Reload(context.Background())
	if err != nil || !changed {
		t.Fatalf("changed reload: changed=%v err=%v", changed, err)
	}
	select {
	case cfg := <-sub:
		if cfg.ReminderIntervalMinutes != 30 {
			t.Fatalf("published interval=%d", cfg.ReminderIntervalMinutes)
		}
	default:
		t.Fatalf("nothing published")
	}

	writeFile(t, dir, "settings.yaml", "reminder_interval_minutes: -1\n")
	if _, err := m.Reload(context.Background()); err == nil {
		t.Fatalf("invalid file should be rejected")
	}
	if m.Get().ReminderIntervalMinutes != 30 {
		t.Fatalf("rejected config replaced the last good one")
	}

	m.SetValidator(func(ctx context.Context, cfg *Config) error { return errors.New("nope") })
	writeFile(t, dir, "settings.yaml", "reminder_interval_minutes: 40\n")
	if _, err := m.Reload(context.Background()); err == nil {
		t.Fatalf("validator error should reject")
	}
}

func TestWatchPicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "settings.yaml", "snooze_minutes: 5\n")
	m := NewConfigManager(p)
	m.debounce = 20 * time.Millisecond
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	sub := m.Subscribe(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-sub:
			if cfg.SnoozeMinutes != 9 {
				t.Fatalf("snooze=%d", cfg.SnoozeMinutes)
			}
			return
		case <-tick.C:
			// rewrite until the watcher is up
			writeFile(t, dir, "settings.yaml", "snooze_minutes: 9\n")
		case <-deadline:
			t.Fatalf("no config published")
		}
	}
}

func TestSummarizeConfigChangeHidesSecrets(t *testing.T) {
	t.Parallel()

	a := Default()
	b := Default()
	b.TelegramSettings.BotToken = "123:SECRET"
	b.EmailSettings.Password = "hunter2"
	b.ReminderIntervalMinutes = 45

	changed, attrs := SummarizeConfigChange(&a, &b)
	if want := []string{"email", "reminder", "telegram"}; !slices.Equal(changed, want) {
		t.Fatalf("changed=%v, want %v", changed, want)
	}
	if len(attrs) == 0 {
		t.Fatalf("no attrs")
	}
	same, _ := SummarizeConfigChange(&a, &a)
	if len(same) != 0 {
		t.Fatalf("identical configs reported %v", same)
	}
}

func TestExpandPath(t *testing.T) {
	t.Parallel()

	got, err := ExpandPath("~/x/../y.yaml")
	if err != nil {
		t.Fatalf("ExpandPath() err=%v", err)
	}
	if strings.HasPrefix(got, "~") || !strings.HasSuffix(got, "y.yaml") {
		t.Fatalf("ExpandPath()=%q", got)
	}
	if got, _ := ExpandPath("  "); got != "" {
		t.Fatalf("blank path=%q", got)
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	if d, err := ParseDurationOrDefault("x", "", 3*time.Second); err != nil || d != 3*time.Second {
		t.Fatalf("default: %v %v", d, err)
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatalf("negative should fail")
	}
	if d, err := ParseDurationField("x", " 2m "); err != nil || d != 2*time.Minute {
		t.Fatalf("2m: %v %v", d, err)
	}
}
