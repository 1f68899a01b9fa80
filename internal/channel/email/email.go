// Package email delivers reminders over SMTP.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mail "github.com/wneessen/go-mail"

	"lookaway/internal/reminder"
)

type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	Recipient string
	Timeout   time.Duration
}

func (c Config) validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "smtp_server")
	}
	if c.Username == "" {
		missing = append(missing, "email")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if c.Recipient == "" {
		missing = append(missing, "recipient")
	}
	if len(missing) > 0 {
		return fmt.Errorf("email settings incomplete: missing %s", strings.Join(missing, ", "))
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("email settings: invalid smtp_port %d", c.Port)
	}
	return nil
}

type dialSender interface {
	DialAndSendWithContext(ctx context.Context, msgs ...*mail.Msg) error
}

// newClient is swapped in tests.
var newClient = func(c Config) (dialSender, error) {
	opts := []mail.Option{
		mail.WithPort(c.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(c.Username),
		mail.WithPassword(c.Password),
		mail.WithTimeout(c.Timeout),
	}
	if c.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	return mail.NewClient(c.Host, opts...)
}

// Sender connects per message; reminders are minutes apart so pooling is
// not worth holding an SMTP session open.
type Sender struct {
	cfg Config
}

func New(cfg Config) (*Sender, error) {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Sender{cfg: cfg}, nil
}

func (s *Sender) Send(ctx context.Context, text string, kind reminder.Kind) error {
	m, err := buildMessage(s.cfg, text, kind)
	if err != nil {
		return err
	}
	c, err := newClient(s.cfg)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		var se *mail.SendError
		if errors.As(err, &se) && !se.IsTemp() {
			return permanent{err}
		}
		return err
	}
	return nil
}

func buildMessage(c Config, text string, kind reminder.Kind) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(c.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(c.Recipient); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	m.Subject(reminder.Title(kind))
	m.SetBodyString(mail.TypeTextPlain, text)
	return m, nil
}

// permanent is recognised by the retry wrapper through Permanent() and is
// kept local to avoid an import cycle.
type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }
func (p permanent) Permanent() bool { return true }
