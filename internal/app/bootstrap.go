package app

import (
	"time"

	"lookaway/internal/config"
	"lookaway/internal/secrets"
	"lookaway/internal/transport/telegram"
	logx "lookaway/pkg/logx"
)

func logConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

// needsBot reports whether any feature uses the Telegram bot.
func needsBot(cfg *config.Config) bool {
	return cfg.Notifications.Telegram || cfg.TelegramSettings.Commands || cfg.Logging.Telegram.Enabled
}

// newBot returns nil (and no error) when the bot is not needed or no token
// is available.
func newBot(cfg *config.Config, sec *secrets.Store, log logx.Logger) (*telegram.Adapter, error) {
	if !needsBot(cfg) {
		return nil, nil
	}
	token, err := sec.Resolve(cfg.TelegramSettings.BotToken, secrets.TelegramBotToken)
	if err != nil {
		log.Warn("keyring lookup failed", logx.String("key", secrets.TelegramBotToken), logx.Err(err))
	}
	if token == "" {
		log.Warn("telegram features enabled but no bot token is configured")
		return nil, nil
	}
	poll, err := config.ParseDurationOrDefault("telegram_settings.poll_timeout", cfg.TelegramSettings.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	return telegram.New(telegram.Config{Token: token, PollTimeout: poll}, log.With(logx.String("comp", "telegram")))
}
