package reminder

import (
	"fmt"
	"time"
)

// Kind classifies a break.
type Kind int

const (
	KindShort Kind = iota
	KindLong
)

func (k Kind) String() string {
	if k == KindLong {
		return "long"
	}
	return "short"
}

// Title is the notification title used for a break of kind k.
func Title(k Kind) string {
	if k == KindLong {
		return "Time for a Long Break!"
	}
	return "Eye Break Reminder"
}

type ChannelID string

const (
	ChannelDesktop  ChannelID = "desktop"
	ChannelEmail    ChannelID = "email"
	ChannelTelegram ChannelID = "telegram"
)

type OutcomeStatus int

const (
	Delivered OutcomeStatus = iota
	Failed
)

func (s OutcomeStatus) String() string {
	if s == Failed {
		return "failed"
	}
	return "delivered"
}

type Outcome struct {
	Status OutcomeStatus
	Reason string // set when Failed
}

func (o Outcome) OK() bool { return o.Status == Delivered }

func (o Outcome) String() string {
	if o.OK() {
		return "delivered"
	}
	return "failed: " + o.Reason
}

type DeliveryResult struct {
	Channel ChannelID
	Outcome Outcome
	Elapsed time.Duration
}

// BreakEvent is produced by every fired (or silently counted) reminder.
type BreakEvent struct {
	ID         string
	FiredAt    time.Time
	Kind       Kind
	Seq        int
	Title      string
	Message    string
	Suppressed bool
	Results    []DeliveryResult // registry order; empty when Suppressed
}

// Delivered lists the channels that accepted the reminder.
func (e *BreakEvent) Delivered() []ChannelID {
	var out []ChannelID
	for _, r := range e.Results {
		if r.Outcome.OK() {
			out = append(out, r.Channel)
		}
	}
	return out
}

// Failures lists the results that did not deliver.
func (e *BreakEvent) Failures() []DeliveryResult {
	var out []DeliveryResult
	for _, r := range e.Results {
		if !r.Outcome.OK() {
			out = append(out, r)
		}
	}
	return out
}

type BreakType struct {
	Duration    time.Duration
	Description string
}

// Settings is the read-only configuration snapshot the scheduler runs on.
type Settings struct {
	IntervalMinutes   int
	LongBreakEveryN   int
	QuietHours        *QuietHours
	DNDManualOverride bool
	EnabledChannels   []ChannelID
	Messages          []string
	ShortBreak        BreakType
	LongBreak         BreakType
	SnoozeMinutes     int
	ChannelTimeout    time.Duration
	Location          *time.Location
}

const defaultChannelTimeout = 30 * time.Second

func (s Settings) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

func (s Settings) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

func (s Settings) channelTimeout() time.Duration {
	if s.ChannelTimeout <= 0 {
		return defaultChannelTimeout
	}
	return s.ChannelTimeout
}

// Validate reports the first malformed field, wrapped in ErrInvalidArgument.
func (s Settings) Validate() error {
	if s.IntervalMinutes < 1 {
		return fmt.Errorf("%w: interval_minutes must be >= 1 (got %d)", ErrInvalidArgument, s.IntervalMinutes)
	}
	if s.LongBreakEveryN < 1 {
		return fmt.Errorf("%w: long_break_every_n must be >= 1 (got %d)", ErrInvalidArgument, s.LongBreakEveryN)
	}
	if s.SnoozeMinutes < 1 {
		return fmt.Errorf("%w: snooze_minutes must be >= 1 (got %d)", ErrInvalidArgument, s.SnoozeMinutes)
	}
	if s.ChannelTimeout < 0 {
		return fmt.Errorf("%w: channel timeout must not be negative", ErrInvalidArgument)
	}
	if len(s.Messages) == 0 {
		return fmt.Errorf("%w: messages must not be empty", ErrInvalidArgument)
	}
	for i, m := range s.Messages {
		if m == "" {
			return fmt.Errorf("%w: messages[%d] is empty", ErrInvalidArgument, i)
		}
	}
	seen := map[ChannelID]bool{}
	for _, id := range s.EnabledChannels {
		if id == "" {
			return fmt.Errorf("%w: empty channel id", ErrInvalidArgument)
		}
		if seen[id] {
			return fmt.Errorf("%w: channel %q listed twice", ErrInvalidArgument, id)
		}
		seen[id] = true
	}
	if s.QuietHours != nil {
		if err := s.QuietHours.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Status is a read-only projection of the schedule state.
type Status struct {
	Paused          bool
	DoNotDisturb    bool
	SnoozedUntil    time.Time // zero when not snoozed
	NextDueAt       time.Time
	LastReminderAt  time.Time // zero before the first reminder
	ReminderCount   int
	IntervalMinutes int
	LongBreakEveryN int
	SnoozeMinutes   int
	InQuietHours    bool
	QuietHours      *QuietHours
	Channels        []ChannelID
}

// Snoozed reports whether a snooze is active at now.
func (s Status) Snoozed(now time.Time) bool {
	return !s.SnoozedUntil.IsZero() && now.Before(s.SnoozedUntil)
}
