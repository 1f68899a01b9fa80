package app

import (
	"context"
	"fmt"

	"lookaway/internal/channel"
	"lookaway/internal/config"
	"lookaway/internal/reminder"
	"lookaway/internal/secrets"
	logx "lookaway/pkg/logx"
)

const probeMessage = "LookAway is set up. Reminders will arrive here."

// ProbeChannel sends one test notification through id using cfg, with the
// other channels switched off. The setup wizard uses it before saving.
func ProbeChannel(ctx context.Context, cfg *config.Config, sec *secrets.Store, id reminder.ChannelID, log logx.Logger) error {
	if log.IsZero() {
		log = logx.Nop()
	}
	cp := *cfg
	cp.Notifications = config.NotificationsConfig{
		Desktop:  id == reminder.ChannelDesktop,
		Email:    id == reminder.ChannelEmail,
		Telegram: id == reminder.ChannelTelegram,
	}
	cp.TelegramSettings.Commands = false
	cp.Logging.Telegram.Enabled = false

	deps := channel.Deps{Secrets: sec, Log: log}
	bot, err := newBot(&cp, sec, log)
	if err != nil {
		return err
	}
	if bot != nil {
		deps.Bot = bot
	}
	reg, _ := channel.Build(&cp, deps)
	ch, ok := reg.Get(id)
	if !ok {
		return fmt.Errorf("%w: unknown channel %q", reminder.ErrInvalidArgument, id)
	}
	return ch.Send(ctx, probeMessage, reminder.KindShort)
}
