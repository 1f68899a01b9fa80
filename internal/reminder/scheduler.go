// Package reminder owns the break schedule: when a reminder is due, whether it
// is a short or a long break, and fan-out delivery across channels.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	logx "lookaway/pkg/logx"
)

type scheduleState struct {
	lastReminderAt time.Time
	count          int
	nextDueAt      time.Time
	paused         bool
	remaining      time.Duration // time left until nextDueAt when paused
	dnd            bool
	snoozeUntil    time.Time
}

type pendingReload struct {
	settings Settings
	registry *Registry
}

// Scheduler is the single owner of the schedule state.
//
// tickMu keeps ticks from overlapping. mu guards state and is never held
// while channels are being called, so Status and control commands stay
// responsive during delivery.
type Scheduler struct {
	clock Clock
	log   logx.Logger
	newID func() string

	tickMu sync.Mutex

	mu       sync.RWMutex
	settings Settings
	registry *Registry
	pending  *pendingReload
	st       scheduleState
}

// New validates settings and starts the schedule at clock.Now().
func New(settings Settings, registry *Registry, clock Clock, log logx.Logger) (*Scheduler, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	now := clock.Now()
	return &Scheduler{
		clock:    clock,
		log:      log,
		newID:    uuid.NewString,
		settings: settings,
		registry: registry,
		st: scheduleState{
			nextDueAt: now.Add(settings.Interval()),
			dnd:       settings.DNDManualOverride,
		},
	}, nil
}

// Tick advances the schedule to now and returns the reminder it produced,
// if any. Delivery failures are reported in the event, never returned.
func (s *Scheduler) Tick(now time.Time) *BreakEvent {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	s.applyPendingLocked()
	if !s.st.snoozeUntil.IsZero() && !now.Before(s.st.snoozeUntil) {
		s.st.snoozeUntil = time.Time{}
		s.log.Debug("snooze expired")
	}

	set := s.settings
	local := now.In(set.location())
	action := Decide(Conditions{
		Paused:       s.st.paused,
		Snoozed:      !s.st.snoozeUntil.IsZero(),
		InQuietHours: set.QuietHours != nil && set.QuietHours.Contains(local),
		DoNotDisturb: s.st.dnd,
		Due:          !now.Before(s.st.nextDueAt),
	})

	switch action {
	case ActionSkipQuiet:
		target := set.QuietHours.WindowEnd(local).Add(set.Interval())
		if target.After(s.st.nextDueAt) {
			s.st.nextDueAt = target
			s.log.Debug("quiet hours, next reminder deferred", logx.Time("next_due_at", target))
		}
		s.mu.Unlock()
		return nil

	case ActionSuppress:
		ev := s.advanceLocked(now, set)
		ev.Suppressed = true
		s.mu.Unlock()
		s.log.Debug("reminder suppressed (do not disturb)", logx.Int("seq", ev.Seq))
		return ev

	case ActionFire:
		ev := s.advanceLocked(now, set)
		reg := s.registry
		s.mu.Unlock()
		ev.Results = deliver(context.Background(), reg, ev.Message, ev.Kind, set.channelTimeout())
		return ev

	default:
		s.mu.Unlock()
		return nil
	}
}

// advanceLocked counts one reminder and moves the deadline one interval past now.
func (s *Scheduler) advanceLocked(now time.Time, set Settings) *BreakEvent {
	s.st.count++
	seq := s.st.count
	kind := classify(seq, set.LongBreakEveryN)
	s.st.lastReminderAt = now
	s.st.nextDueAt = now.Add(set.Interval())
	return &BreakEvent{
		ID:      s.newID(),
		FiredAt: now,
		Kind:    kind,
		Seq:     seq,
		Title:   Title(kind),
		Message: composeMessage(set, kind, seq),
	}
}

func (s *Scheduler) applyPendingLocked() {
	p := s.pending
	if p == nil {
		return
	}
	s.pending = nil
	if p.settings.DNDManualOverride != s.settings.DNDManualOverride {
		s.st.dnd = p.settings.DNDManualOverride
	}
	s.settings = p.settings
	if p.registry != nil {
		s.registry = p.registry
	}
	s.log.Info("settings applied",
		logx.Int("interval_minutes", p.settings.IntervalMinutes),
		logx.Int("channels", s.registry.Len()),
	)
}

// Pause stops the clock. It reports whether the state changed.
func (s *Scheduler) Pause() bool {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.paused {
		return false
	}
	s.st.paused = true
	s.st.remaining = max(s.st.nextDueAt.Sub(now), 0)
	return true
}

// Resume restarts the clock with the time that was left at Pause and drops
// any snooze.
func (s *Scheduler) Resume() bool {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.st.paused {
		return false
	}
	s.st.paused = false
	s.st.snoozeUntil = time.Time{}
	s.st.nextDueAt = now.Add(s.st.remaining)
	s.st.remaining = 0
	return true
}

// Snooze suppresses reminders for the given minutes. A snooze only ever
// delays the next reminder: when it was due after the snooze ends anyway,
// the deadline is kept.
func (s *Scheduler) Snooze(minutes int) (time.Time, error) {
	if minutes <= 0 {
		return time.Time{}, fmt.Errorf("%w: snooze minutes must be positive (got %d)", ErrInvalidArgument, minutes)
	}
	now := s.clock.Now()
	until := now.Add(time.Duration(minutes) * time.Minute)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.snoozeUntil = until
	if until.After(s.st.nextDueAt) {
		s.st.nextDueAt = until
	}
	if s.st.paused {
		s.st.remaining = max(s.st.remaining, until.Sub(now))
	}
	return until, nil
}

// ToggleDoNotDisturb flips DND and returns the new value.
func (s *Scheduler) ToggleDoNotDisturb() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.dnd = !s.st.dnd
	return s.st.dnd
}

// Reload stages a new snapshot for the next tick. A nil registry keeps the
// current channels.
func (s *Scheduler) Reload(settings Settings, registry *Registry) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.pending = &pendingReload{settings: settings, registry: registry}
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) Status() Status {
	now := s.clock.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.settings
	st := Status{
		Paused:          s.st.paused,
		DoNotDisturb:    s.st.dnd,
		SnoozedUntil:    s.st.snoozeUntil,
		NextDueAt:       s.st.nextDueAt,
		LastReminderAt:  s.st.lastReminderAt,
		ReminderCount:   s.st.count,
		IntervalMinutes: set.IntervalMinutes,
		LongBreakEveryN: set.LongBreakEveryN,
		SnoozeMinutes:   set.SnoozeMinutes,
		Channels:        s.registry.IDs(),
	}
	if set.QuietHours != nil {
		q := *set.QuietHours
		st.QuietHours = &q
		st.InQuietHours = q.Contains(now.In(set.location()))
	}
	return st
}

// TestChannels sends a test message through every registered channel.
// The schedule is not touched.
func (s *Scheduler) TestChannels(ctx context.Context) []DeliveryResult {
	s.mu.RLock()
	reg := s.registry
	timeout := s.settings.channelTimeout()
	s.mu.RUnlock()
	return deliver(ctx, reg, testMessage, KindShort, timeout)
}
