// Package channel builds the delivery registry from the settings file.
package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lookaway/internal/channel/desktop"
	"lookaway/internal/channel/email"
	"lookaway/internal/channel/telegram"
	"lookaway/internal/config"
	"lookaway/internal/reminder"
	"lookaway/internal/secrets"
	kit "lookaway/internal/transport"
	logx "lookaway/pkg/logx"
)

// Deps are the shared resources channels may use.
type Deps struct {
	Secrets *secrets.Store
	Bot     kit.Adapter // nil when no bot token is configured
	Log     logx.Logger
}

// Broken is registered in place of a channel that cannot be constructed, so
// the misconfiguration shows up as a failed delivery on every reminder.
type Broken struct {
	Reason string
}

func (b Broken) Send(ctx context.Context, text string, kind reminder.Kind) error {
	return Permanent(errors.New(b.Reason))
}

// Build creates one channel per enabled id, in settings order. Problems are
// returned as warnings; the registry is always usable.
func Build(cfg *config.Config, deps Deps) (*reminder.Registry, []error) {
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	rc := RetryConfig{
		RetryMax:   cfg.Delivery.RetryMax,
		RatePerSec: cfg.Delivery.RatePerSec,
	}
	rc.RetryBase, _ = config.ParseDurationField("delivery.retry_base", cfg.Delivery.RetryBase)
	rc.RetryMaxDelay, _ = config.ParseDurationField("delivery.retry_max_delay", cfg.Delivery.RetryMaxDelay)

	reg := reminder.NewRegistry()
	var warnings []error
	for _, id := range cfg.EnabledChannels() {
		ch, err := build(id, cfg, deps, log)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("channel %s: %w", id, err))
			ch = Broken{Reason: err.Error()}
		} else {
			ch = Retry(id, ch, rc, log.With(logx.String("channel", string(id))))
		}
		if err := reg.Register(id, ch); err != nil {
			warnings = append(warnings, err)
		}
	}
	return reg, warnings
}

func build(id reminder.ChannelID, cfg *config.Config, deps Deps, log logx.Logger) (reminder.Channel, error) {
	switch id {
	case reminder.ChannelDesktop:
		return desktop.New(desktop.Config{AppName: "LookAway", ExpireTimeout: 10 * time.Second}), nil

	case reminder.ChannelEmail:
		es := cfg.EmailSettings
		pass := es.Password
		if deps.Secrets != nil {
			p, err := deps.Secrets.Resolve(es.Password, secrets.EmailPassword)
			if err != nil {
				log.Warn("keyring lookup failed", logx.String("key", secrets.EmailPassword), logx.Err(err))
			}
			pass = p
		}
		return email.New(email.Config{
			Host:      strings.TrimSpace(es.SMTPServer),
			Port:      es.SMTPPort,
			Username:  strings.TrimSpace(es.Email),
			Password:  pass,
			From:      strings.TrimSpace(es.Email),
			Recipient: strings.TrimSpace(es.Recipient),
		})

	case reminder.ChannelTelegram:
		if deps.Bot == nil {
			return nil, errors.New("telegram bot is not configured (missing bot token)")
		}
		chatID, err := cfg.TelegramChatID()
		if err != nil {
			return nil, err
		}
		if chatID == 0 {
			return nil, errors.New("telegram_settings.chat_id is empty")
		}
		return telegram.New(deps.Bot, chatID), nil
	}
	return nil, fmt.Errorf("unknown channel %q", id)
}
