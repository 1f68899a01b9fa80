package config

import (
	"reflect"
	"sort"
	"strings"

	logx "lookaway/pkg/logx"
)

// SummarizeConfigChange returns the changed sections and safe structured
// attrs for logging. Passwords and bot tokens are reported only as *_set flags.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.ReminderIntervalMinutes != newCfg.ReminderIntervalMinutes ||
		oldCfg.LongBreakInterval != newCfg.LongBreakInterval ||
		oldCfg.SnoozeMinutes != newCfg.SnoozeMinutes ||
		oldCfg.DoNotDisturb != newCfg.DoNotDisturb {
		changed = append(changed, "reminder")
		attrs = append(attrs,
			logx.Int("reminder.interval_minutes", newCfg.ReminderIntervalMinutes),
			logx.Int("reminder.long_break_interval", newCfg.LongBreakInterval),
			logx.Int("reminder.snooze_minutes", newCfg.SnoozeMinutes),
			logx.Bool("reminder.do_not_disturb", newCfg.DoNotDisturb),
		)
	}

	if oldCfg.QuietHours != newCfg.QuietHours {
		changed = append(changed, "quiet_hours")
		attrs = append(attrs,
			logx.Bool("quiet_hours.enabled", newCfg.QuietHours.Enabled),
			logx.String("quiet_hours.window", newCfg.QuietHours.Start+"-"+newCfg.QuietHours.End),
		)
	}

	if !reflect.DeepEqual(oldCfg.Messages, newCfg.Messages) || oldCfg.BreakTypes != newCfg.BreakTypes {
		changed = append(changed, "messages")
		attrs = append(attrs, logx.Int("messages.count", len(newCfg.Messages)))
	}

	if oldCfg.Notifications != newCfg.Notifications {
		changed = append(changed, "notifications")
		ids := newCfg.EnabledChannels()
		names := make([]string, 0, len(ids))
		for _, id := range ids {
			names = append(names, string(id))
		}
		attrs = append(attrs, logx.Strings("notifications.enabled", names))
	}

	oe, ne := oldCfg.EmailSettings, newCfg.EmailSettings
	if oe.SMTPServer != ne.SMTPServer || oe.SMTPPort != ne.SMTPPort || oe.Email != ne.Email ||
		oe.Recipient != ne.Recipient || (oe.Password != "") != (ne.Password != "") {
		changed = append(changed, "email")
		attrs = append(attrs,
			logx.String("email.smtp_server", ne.SMTPServer),
			logx.Int("email.smtp_port", ne.SMTPPort),
			logx.Bool("email.password_set", ne.Password != ""),
		)
	}

	ot, nt := oldCfg.TelegramSettings, newCfg.TelegramSettings
	if strings.TrimSpace(ot.ChatID) != strings.TrimSpace(nt.ChatID) ||
		!reflect.DeepEqual(ot.OwnerUserIDs, nt.OwnerUserIDs) ||
		strings.TrimSpace(ot.PollTimeout) != strings.TrimSpace(nt.PollTimeout) ||
		ot.Commands != nt.Commands ||
		(ot.BotToken != "") != (nt.BotToken != "") {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.chat_id_set", strings.TrimSpace(nt.ChatID) != ""),
			logx.Int("telegram.owner_count", len(nt.OwnerUserIDs)),
			logx.Bool("telegram.commands", nt.Commands),
			logx.Bool("telegram.token_set", nt.BotToken != ""),
		)
	}

	if oldCfg.Delivery != newCfg.Delivery {
		changed = append(changed, "delivery")
		attrs = append(attrs,
			logx.String("delivery.timeout", newCfg.Delivery.Timeout),
			logx.Int("delivery.retry_max", newCfg.Delivery.RetryMax),
			logx.Int("delivery.rate_per_sec", newCfg.Delivery.RatePerSec),
		)
	}

	if oldCfg.Driver != newCfg.Driver {
		changed = append(changed, "driver")
		attrs = append(attrs,
			logx.String("driver.poll_interval", newCfg.Driver.PollInterval),
			logx.String("driver.timezone", newCfg.Driver.Timezone),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	var oS, nS StorageConfig
	if oldCfg.Storage != nil {
		oS = *oldCfg.Storage
	}
	if newCfg.Storage != nil {
		nS = *newCfg.Storage
	}
	if oS != nS {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(nS.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(nS.Path) != ""),
		)
	}

	if oldCfg.Tray != newCfg.Tray {
		changed = append(changed, "tray")
		attrs = append(attrs, logx.Bool("tray.enabled", newCfg.Tray.Enabled))
	}

	sort.Strings(changed)
	return changed, attrs
}
