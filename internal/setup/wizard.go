// Package setup is the interactive first-run wizard.
package setup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"lookaway/internal/config"
	"lookaway/internal/reminder"
	"lookaway/internal/secrets"
	logx "lookaway/pkg/logx"
)

// Tester sends a test notification on one channel using cfg.
type Tester func(ctx context.Context, cfg *config.Config, id reminder.ChannelID) error

type Options struct {
	In  io.Reader
	Out io.Writer
	// Password reads a line without echo; nil reads from In.
	Password func() (string, error)
	Secrets  *secrets.Store
	Test     Tester
	Log      logx.Logger
}

// TerminalPassword reads a hidden line from stdin.
func TerminalPassword() (string, error) {
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	return string(b), err
}

type Wizard struct {
	p   *prompter
	out io.Writer
	opt Options
	log logx.Logger
}

func New(opt Options) *Wizard {
	log := opt.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Wizard{
		p:   &prompter{in: bufio.NewReader(opt.In), out: opt.Out, password: opt.Password},
		out: opt.Out,
		opt: opt,
		log: log,
	}
}

// Run walks the user through the settings and updates cfg in place. Secrets
// go to the OS keyring when it is available, otherwise into cfg.
func (w *Wizard) Run(ctx context.Context, cfg *config.Config) error {
	w.banner()
	steps := []func(context.Context, *config.Config) error{
		w.basic,
		w.notifications,
		w.quietHours,
	}
	for _, step := range steps {
		if err := step(ctx, cfg); err != nil {
			return err
		}
	}
	adv, err := w.p.yesNo("Would you like to configure advanced settings?", false)
	if err != nil {
		return err
	}
	if adv {
		if err := w.advanced(ctx, cfg); err != nil {
			return err
		}
	}
	cfg.FirstRun = false

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, strings.Repeat("=", 60))
	fmt.Fprintln(w.out, "Setup completed successfully!")
	fmt.Fprintln(w.out, strings.Repeat("=", 60))
	return nil
}

func (w *Wizard) banner() {
	fmt.Fprintln(w.out, strings.Repeat("=", 60))
	fmt.Fprintln(w.out, "Welcome to LookAway - Eye Break Reminder Setup")
	fmt.Fprintln(w.out, strings.Repeat("=", 60))
	fmt.Fprintln(w.out, "This wizard will help you configure your eye break reminders.")
	fmt.Fprintln(w.out, "You can always modify these settings later.")
	fmt.Fprintln(w.out)
}

func (w *Wizard) section(title string) {
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, title)
	fmt.Fprintln(w.out, strings.Repeat("-", len(title)))
}

func (w *Wizard) basic(ctx context.Context, cfg *config.Config) error {
	w.section("BASIC REMINDER SETTINGS")
	n, err := w.p.intRange("Reminder interval in minutes", cfg.ReminderIntervalMinutes, 1, 480)
	if err != nil {
		return err
	}
	cfg.ReminderIntervalMinutes = n
	fmt.Fprintf(w.out, "Reminder interval set to %d minutes\n", n)
	return nil
}

func (w *Wizard) notifications(ctx context.Context, cfg *config.Config) error {
	w.section("NOTIFICATION METHODS")
	var err error
	if cfg.Notifications.Desktop, err = w.p.yesNo("Enable desktop notifications?", true); err != nil {
		return err
	}
	if cfg.Notifications.Email, err = w.p.yesNo("Enable email notifications?", cfg.Notifications.Email); err != nil {
		return err
	}
	if cfg.Notifications.Email {
		if err := w.email(ctx, cfg); err != nil {
			return err
		}
	}
	if cfg.Notifications.Telegram, err = w.p.yesNo("Enable Telegram notifications?", cfg.Notifications.Telegram); err != nil {
		return err
	}
	if cfg.Notifications.Telegram {
		if err := w.telegram(ctx, cfg); err != nil {
			return err
		}
	}
	if len(cfg.EnabledChannels()) == 0 {
		fmt.Fprintln(w.out, "Warning: no notification methods enabled. Enabling desktop notifications as fallback.")
		cfg.Notifications.Desktop = true
	}
	return nil
}

func (w *Wizard) email(ctx context.Context, cfg *config.Config) error {
	w.section("EMAIL CONFIGURATION")
	es := &cfg.EmailSettings
	var err error
	if es.SMTPServer, err = w.p.text("SMTP server (e.g. smtp.gmail.com)", es.SMTPServer); err != nil {
		return err
	}
	if es.SMTPPort, err = w.p.intRange("SMTP port", orInt(es.SMTPPort, 587), 1, 65535); err != nil {
		return err
	}
	if es.Email, err = w.p.text("Your email address", es.Email); err != nil {
		return err
	}
	fmt.Fprintln(w.out, "Gmail users: use an App Password instead of your regular password.")
	pass, err := w.p.secret("Email password")
	if err != nil {
		return err
	}
	es.Password = w.storeSecret(secrets.EmailPassword, pass)
	if es.Recipient, err = w.p.text("Send reminders to", orStr(es.Recipient, es.Email)); err != nil {
		return err
	}
	return w.maybeTest(ctx, cfg, reminder.ChannelEmail, "Test email configuration now?")
}

func (w *Wizard) telegram(ctx context.Context, cfg *config.Config) error {
	w.section("TELEGRAM CONFIGURATION")
	fmt.Fprintln(w.out, "1. Create a bot by messaging @BotFather on Telegram")
	fmt.Fprintln(w.out, "2. Copy the bot token it gives you")
	fmt.Fprintln(w.out, "3. Start a chat with your bot; @userinfobot tells you your chat ID")
	ts := &cfg.TelegramSettings
	tok, err := w.p.secret("Bot token")
	if err != nil {
		return err
	}
	ts.BotToken = w.storeSecret(secrets.TelegramBotToken, tok)
	for {
		if ts.ChatID, err = w.p.text("Your chat ID", ts.ChatID); err != nil {
			return err
		}
		if _, perr := cfg.TelegramChatID(); perr == nil && ts.ChatID != "" {
			break
		}
		fmt.Fprintln(w.out, "Please enter a numeric chat ID.")
	}
	cmds, err := w.p.yesNo("Allow controlling LookAway from this chat (/pause, /status ...)?", ts.Commands)
	if err != nil {
		return err
	}
	ts.Commands = cmds
	if cmds {
		id, _ := cfg.TelegramChatID()
		if id > 0 && !containsID(ts.OwnerUserIDs, id) {
			// private chats share the user's id
			ts.OwnerUserIDs = append(ts.OwnerUserIDs, id)
		}
	}
	return w.maybeTest(ctx, cfg, reminder.ChannelTelegram, "Test Telegram configuration now?")
}

func (w *Wizard) quietHours(ctx context.Context, cfg *config.Config) error {
	w.section("QUIET HOURS")
	fmt.Fprintln(w.out, "Set your sleep hours to avoid reminders during rest time.")
	qh := &cfg.QuietHours
	var err error
	if qh.Enabled, err = w.p.yesNo("Enable quiet hours?", true); err != nil {
		return err
	}
	if !qh.Enabled {
		return nil
	}
	for {
		start, err := w.clock("Quiet hours start (HH:MM)", orStr(qh.Start, "23:00"))
		if err != nil {
			return err
		}
		end, err := w.clock("Quiet hours end (HH:MM)", orStr(qh.End, "07:00"))
		if err != nil {
			return err
		}
		if start == end {
			fmt.Fprintln(w.out, "Start and end must differ.")
			continue
		}
		qh.Start, qh.End = start, end
		fmt.Fprintf(w.out, "Quiet hours set: %s to %s\n", start, end)
		return nil
	}
}

func (w *Wizard) clock(question, def string) (string, error) {
	for {
		s, err := w.p.text(question, def)
		if err != nil {
			return "", err
		}
		c, err := reminder.ParseClock(s)
		if err == nil {
			return c.String(), nil
		}
		fmt.Fprintln(w.out, "Please enter time in HH:MM format (e.g. 23:00).")
	}
}

func (w *Wizard) advanced(ctx context.Context, cfg *config.Config) error {
	w.section("ADVANCED SETTINGS")
	var err error
	if cfg.LongBreakInterval, err = w.p.intRange("Long break every N reminders", orInt(cfg.LongBreakInterval, 3), 1, 0); err != nil {
		return err
	}
	if cfg.SnoozeMinutes, err = w.p.intRange("Default snooze duration in minutes", orInt(cfg.SnoozeMinutes, 5), 1, 60); err != nil {
		return err
	}
	custom, err := w.p.yesNo("Would you like to add custom reminder messages?", false)
	if err != nil || !custom {
		return err
	}
	fmt.Fprintln(w.out, "Enter one message per line; an empty line finishes.")
	var msgs []string
	for i := 1; ; i++ {
		m, err := w.p.line(fmt.Sprintf("Message %d: ", i))
		if err != nil {
			return err
		}
		if m == "" {
			break
		}
		msgs = append(msgs, m)
	}
	if len(msgs) > 0 {
		cfg.Messages = msgs
		fmt.Fprintf(w.out, "Added %d custom messages\n", len(msgs))
	} else {
		fmt.Fprintln(w.out, "No custom messages added, keeping the current ones")
	}
	return nil
}

// storeSecret returns the value to keep in the settings file: empty when the
// keyring accepted it.
func (w *Wizard) storeSecret(key, value string) string {
	if value == "" || w.opt.Secrets == nil {
		return value
	}
	if err := w.opt.Secrets.Set(key, value); err != nil {
		w.log.Warn("keyring unavailable; storing secret in the settings file", logx.String("key", key), logx.Err(err))
		fmt.Fprintln(w.out, "The OS keyring is unavailable; the secret will be saved in the settings file.")
		return value
	}
	fmt.Fprintln(w.out, "Saved to the OS keyring.")
	return ""
}

func (w *Wizard) maybeTest(ctx context.Context, cfg *config.Config, id reminder.ChannelID, question string) error {
	if w.opt.Test == nil {
		return nil
	}
	ok, err := w.p.yesNo(question, false)
	if err != nil || !ok {
		return err
	}
	tctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := w.opt.Test(tctx, cfg, id); err != nil {
		fmt.Fprintf(w.out, "Test failed: %v\nPlease check your configuration; you can rerun setup later.\n", err)
		return nil
	}
	fmt.Fprintln(w.out, "Test message sent successfully!")
	return nil
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orStr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func containsID(ids []int64, id int64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
