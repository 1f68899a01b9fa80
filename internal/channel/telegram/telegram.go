// Package telegram delivers reminders as bot messages to one chat.
package telegram

import (
	"context"

	"lookaway/internal/reminder"
	kit "lookaway/internal/transport"
)

type Sender struct {
	bot    kit.Adapter
	chatID int64
}

func New(bot kit.Adapter, chatID int64) *Sender {
	return &Sender{bot: bot, chatID: chatID}
}

func (s *Sender) Send(ctx context.Context, text string, kind reminder.Kind) error {
	body := reminder.Title(kind) + "\n\n" + text
	_, err := s.bot.SendText(ctx, kit.ChatTarget{ChatID: s.chatID}, body, &kit.SendOptions{DisablePreview: true})
	return err
}
