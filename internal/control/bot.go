package control

import (
	"context"
	"strings"
	"sync"

	kit "lookaway/internal/transport"
	logx "lookaway/pkg/logx"
)

const botWorkers = 2

// BotCommands lists the commands remote users can see in the bot menu.
func (r *Router) BotCommands() []kit.BotCommand {
	var out []kit.BotCommand
	for _, c := range r.Commands() {
		if c.Access == AccessLocalOnly {
			continue
		}
		out = append(out, kit.BotCommand{Command: c.Name, Description: c.Description})
	}
	return out
}

// ServeBot answers slash commands arriving on updates until ctx is done or
// the channel closes. Replies go back to the originating chat.
func (r *Router) ServeBot(ctx context.Context, bot kit.Adapter, updates <-chan kit.Update) error {
	if mu, ok := bot.(kit.CommandMenuUpdater); ok {
		if err := mu.UpdateMenuCommands(ctx, r.BotCommands()); err != nil {
			r.log.Warn("bot menu update failed", logx.Err(err))
		}
	}

	jobs := make(chan *kit.Message, 32)
	var wg sync.WaitGroup
	wg.Add(botWorkers)
	for i := 0; i < botWorkers; i++ {
		go func() {
			defer wg.Done()
			for msg := range jobs {
				r.answer(ctx, bot, msg)
			}
		}()
	}
	defer func() {
		close(jobs)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			msg := up.Message
			if msg == nil || !strings.HasPrefix(strings.TrimSpace(msg.Text), "/") {
				continue
			}
			select {
			case jobs <- msg:
			default:
				_, _ = bot.SendText(ctx, kit.ChatTarget{ChatID: msg.ChatID}, "busy, try again", nil)
			}
		}
	}
}

func (r *Router) answer(ctx context.Context, bot kit.Adapter, msg *kit.Message) {
	reply := r.Execute(ctx, SourceTelegram, msg.FromID, msg.FromUsername, msg.Text)
	if reply == "" {
		return
	}
	if _, err := bot.SendText(ctx, kit.ChatTarget{ChatID: msg.ChatID}, reply, &kit.SendOptions{DisablePreview: true}); err != nil {
		r.log.Warn("bot reply failed", logx.Int64("chat_id", msg.ChatID), logx.Err(err))
	}
}
