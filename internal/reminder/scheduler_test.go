package reminder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// recordingChannel counts sends and returns err.
type recordingChannel struct {
	mu    sync.Mutex
	err   error
	texts []string
	kinds []Kind
}

func (r *recordingChannel) Send(ctx context.Context, text string, kind Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	r.kinds = append(r.kinds, kind)
	return r.err
}

func (r *recordingChannel) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts)
}

func testSettings() Settings {
	return Settings{
		IntervalMinutes: 20,
		LongBreakEveryN: 3,
		Messages:        []string{"Look away", "Blink"},
		ShortBreak:      BreakType{Duration: 20 * time.Second, Description: "Quick eye rest"},
		LongBreak:       BreakType{Duration: 5 * time.Minute, Description: "Long break"},
		SnoozeMinutes:   5,
		ChannelTimeout:  time.Second,
		Location:        time.UTC,
	}
}

func newTestScheduler(t *testing.T, set Settings, reg *Registry) (*Scheduler, *fakeClock) {
	t.Helper()
	clk := newFakeClock(t0)
	s, err := New(set, reg, clk, nilLog())
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	return s, clk
}

// runMinutes ticks once per minute for n minutes and collects fired events.
func runMinutes(s *Scheduler, clk *fakeClock, n int) []*BreakEvent {
	var out []*BreakEvent
	for i := 0; i < n; i++ {
		if ev := s.Tick(clk.Advance(time.Minute)); ev != nil {
			out = append(out, ev)
		}
	}
	return out
}

func TestTickFiresAtExactIntervals(t *testing.T) {
	t.Parallel()

	s, clk := newTestScheduler(t, testSettings(), nil)
	events := runMinutes(s, clk, 200)
	if len(events) != 10 {
		t.Fatalf("fired %d times, want 10", len(events))
	}
	for i, ev := range events {
		want := t0.Add(time.Duration(i+1) * 20 * time.Minute)
		if !ev.FiredAt.Equal(want) {
			t.Fatalf("event %d fired at %v, want %v", i, ev.FiredAt, want)
		}
		if ev.Seq != i+1 {
			t.Fatalf("event %d seq=%d", i, ev.Seq)
		}
	}
}

func TestLongBreakEveryN(t *testing.T) {
	t.Parallel()

	set := testSettings()
	set.IntervalMinutes = 1
	set.LongBreakEveryN = 4
	s, clk := newTestScheduler(t, set, nil)

	events := runMinutes(s, clk, 11)
	if len(events) != 11 {
		t.Fatalf("fired %d, want 11", len(events))
	}
	long := 0
	for i, ev := range events {
		wantLong := (i+1)%4 == 0
		if (ev.Kind == KindLong) != wantLong {
			t.Fatalf("event %d kind=%v", i+1, ev.Kind)
		}
		if ev.Kind == KindLong {
			long++
		}
	}
	if long != 11/4 {
		t.Fatalf("long breaks=%d, want %d", long, 11/4)
	}
}

func TestScenarioShortShortLong(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t, testSettings(), nil)
	want := []Kind{KindShort, KindShort, KindLong}
	for i, k := range want {
		ev := s.Tick(t0.Add(time.Duration(i+1) * 20 * time.Minute))
		if ev == nil {
			t.Fatalf("tick %d did not fire", i+1)
		}
		if ev.Kind != k {
			t.Fatalf("tick %d kind=%v, want %v", i+1, ev.Kind, k)
		}
	}
	if got := s.Status().ReminderCount; got != 3 {
		t.Fatalf("ReminderCount=%d, want 3", got)
	}
}

func TestPauseResumeNoElapsedIsNoop(t *testing.T) {
	t.Parallel()

	s, clk := newTestScheduler(t, testSettings(), nil)
	clk.Advance(7 * time.Minute)
	before := s.Status().NextDueAt
	if !s.Pause() {
		t.Fatalf("Pause() should change state")
	}
	if s.Pause() {
		t.Fatalf("second Pause() should be a no-op")
	}
	if !s.Resume() {
		t.Fatalf("Resume() should change state")
	}
	if s.Resume() {
		t.Fatalf("second Resume() should be a no-op")
	}
	if after := s.Status().NextDueAt; !after.Equal(before) {
		t.Fatalf("nextDueAt changed: %v -> %v", before, after)
	}
}

func TestPauseStopsTheClock(t *testing.T) {
	t.Parallel()

	s, clk := newTestScheduler(t, testSettings(), nil)
	clk.Advance(5 * time.Minute)
	s.Pause()

	for i := 0; i < 60; i++ {
		if ev := s.Tick(clk.Advance(time.Minute)); ev != nil {
			t.Fatalf("fired while paused at %v", ev.FiredAt)
		}
	}
	resumeAt := clk.Now()
	s.Resume()
	if got, want := s.Status().NextDueAt, resumeAt.Add(15*time.Minute); !got.Equal(want) {
		t.Fatalf("NextDueAt=%v, want %v", got, want)
	}
}

func TestSnoozeSuppressesThenFiresOnce(t *testing.T) {
	t.Parallel()

	s, clk := newTestScheduler(t, testSettings(), nil)
	clk.Advance(18 * time.Minute)
	until, err := s.Snooze(5)
	if err != nil {
		t.Fatalf("Snooze() err=%v", err)
	}
	if want := t0.Add(23 * time.Minute); !until.Equal(want) {
		t.Fatalf("until=%v, want %v", until, want)
	}

	var fired []time.Time
	for clk.Now().Before(t0.Add(50 * time.Minute)) {
		if ev := s.Tick(clk.Advance(time.Minute)); ev != nil {
			fired = append(fired, ev.FiredAt)
		}
	}
	want := []time.Time{t0.Add(23 * time.Minute), t0.Add(43 * time.Minute)}
	if len(fired) != len(want) {
		t.Fatalf("fired at %v, want %v", fired, want)
	}
	for i := range want {
		if !fired[i].Equal(want[i]) {
			t.Fatalf("fire %d at %v, want %v", i, fired[i], want[i])
		}
	}
	if !s.Status().SnoozedUntil.IsZero() {
		t.Fatalf("expired snooze should be cleared")
	}
}

func TestSnoozeNeverBringsReminderForward(t *testing.T) {
	t.Parallel()

	s, clk := newTestScheduler(t, testSettings(), nil)
	if fired := runMinutes(s, clk, 20); len(fired) != 1 {
		t.Fatalf("fired %d times in the first interval, want 1", len(fired))
	}
	before := s.Status().NextDueAt
	if _, err := s.Snooze(5); err != nil {
		t.Fatalf("Snooze() err=%v", err)
	}
	if after := s.Status().NextDueAt; !after.Equal(before) {
		t.Fatalf("NextDueAt moved from %v to %v", before, after)
	}

	fired := runMinutes(s, clk, 20)
	if len(fired) != 1 {
		t.Fatalf("fired %d times in the second interval, want 1", len(fired))
	}
	if want := t0.Add(40 * time.Minute); !fired[0].FiredAt.Equal(want) {
		t.Fatalf("second reminder at %v, want %v", fired[0].FiredAt, want)
	}
}

func TestSnoozeWhilePausedKeepsLongerRemaining(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		elapsed time.Duration
		snooze  int
		want    time.Duration // from resume
	}{
		{"snooze shorter than remaining", 2 * time.Minute, 5, 18 * time.Minute},
		{"snooze longer than remaining", 18 * time.Minute, 5, 5 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, clk := newTestScheduler(t, testSettings(), nil)
			clk.Advance(tt.elapsed)
			s.Pause()
			if _, err := s.Snooze(tt.snooze); err != nil {
				t.Fatalf("Snooze() err=%v", err)
			}
			resumeAt := clk.Advance(30 * time.Minute)
			s.Resume()
			if got, want := s.Status().NextDueAt, resumeAt.Add(tt.want); !got.Equal(want) {
				t.Fatalf("NextDueAt=%v, want %v", got, want)
			}
		})
	}
}

func TestResumeClearsSnooze(t *testing.T) {
	t.Parallel()

	s, clk := newTestScheduler(t, testSettings(), nil)
	clk.Advance(3 * time.Minute)
	s.Pause()
	if _, err := s.Snooze(60); err != nil {
		t.Fatalf("Snooze() err=%v", err)
	}
	if s.Status().SnoozedUntil.IsZero() {
		t.Fatalf("snooze not recorded")
	}
	s.Resume()
	if got := s.Status().SnoozedUntil; !got.IsZero() {
		t.Fatalf("SnoozedUntil=%v after Resume, want zero", got)
	}
}

func TestSnoozeRejectsNonPositive(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t, testSettings(), nil)
	for _, m := range []int{0, -5} {
		if _, err := s.Snooze(m); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("Snooze(%d) err=%v, want ErrInvalidArgument", m, err)
		}
	}
	if !s.Status().SnoozedUntil.IsZero() {
		t.Fatalf("rejected snooze must not change state")
	}
}

func TestFailingChannelDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	desktop := &recordingChannel{}
	email := &recordingChannel{err: errors.New("smtp: connection refused")}
	bot := &recordingChannel{}
	reg := NewRegistry()
	_ = reg.Register(ChannelDesktop, desktop)
	_ = reg.Register(ChannelEmail, email)
	_ = reg.Register(ChannelTelegram, bot)

	s, _ := newTestScheduler(t, testSettings(), reg)
	ev := s.Tick(t0.Add(20 * time.Minute))
	if ev == nil {
		t.Fatalf("expected a fire")
	}
	if len(ev.Results) != 3 {
		t.Fatalf("results=%d, want 3", len(ev.Results))
	}
	wantIDs := []ChannelID{ChannelDesktop, ChannelEmail, ChannelTelegram}
	for i, r := range ev.Results {
		if r.Channel != wantIDs[i] {
			t.Fatalf("result %d channel=%q, want %q", i, r.Channel, wantIDs[i])
		}
	}
	if !ev.Results[0].Outcome.OK() || !ev.Results[2].Outcome.OK() {
		t.Fatalf("healthy channels should deliver: %+v", ev.Results)
	}
	if ev.Results[1].Outcome.OK() || !strings.Contains(ev.Results[1].Outcome.Reason, "connection refused") {
		t.Fatalf("email outcome=%+v", ev.Results[1].Outcome)
	}
	if got := ev.Delivered(); len(got) != 2 {
		t.Fatalf("Delivered()=%v", got)
	}
	if desktop.count() != 1 || bot.count() != 1 {
		t.Fatalf("sends desktop=%d bot=%d", desktop.count(), bot.count())
	}
}

func TestChannelTimeoutAndPanicAreIsolated(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	reg := NewRegistry()
	_ = reg.Register(ChannelDesktop, ChannelFunc(func(ctx context.Context, text string, kind Kind) error {
		<-release // ignores ctx
		return nil
	}))
	_ = reg.Register(ChannelEmail, ChannelFunc(func(ctx context.Context, text string, kind Kind) error {
		panic("boom")
	}))
	ok := &recordingChannel{}
	_ = reg.Register(ChannelTelegram, ok)

	set := testSettings()
	set.ChannelTimeout = 50 * time.Millisecond
	s, _ := newTestScheduler(t, set, reg)

	start := time.Now()
	ev := s.Tick(t0.Add(20 * time.Minute))
	if time.Since(start) > 2*time.Second {
		t.Fatalf("tick blocked on a hung channel")
	}
	if r := ev.Results[0].Outcome; r.OK() || r.Reason != "timeout" {
		t.Fatalf("desktop outcome=%+v, want timeout", r)
	}
	if r := ev.Results[1].Outcome; r.OK() || !strings.HasPrefix(r.Reason, "panic: ") {
		t.Fatalf("email outcome=%+v, want panic", r)
	}
	if !ev.Results[2].Outcome.OK() {
		t.Fatalf("telegram outcome=%+v", ev.Results[2].Outcome)
	}
}

func TestQuietHoursSkipsPastWindow(t *testing.T) {
	t.Parallel()

	set := testSettings()
	set.QuietHours = &QuietHours{Start: ClockTime{22, 0}, End: ClockTime{7, 0}}
	clk := newFakeClock(time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC))
	s, err := New(set, nil, clk, nilLog())
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if got := s.Status().NextDueAt; !got.Equal(time.Date(2026, 3, 10, 22, 50, 0, 0, time.UTC)) {
		t.Fatalf("initial NextDueAt=%v", got)
	}

	at := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	clk.Set(at)
	if ev := s.Tick(at); ev != nil {
		t.Fatalf("fired inside quiet hours")
	}
	next := s.Status().NextDueAt
	morning := time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC)
	if next.Before(morning) {
		t.Fatalf("NextDueAt=%v, want >= %v", next, morning)
	}

	// Ticking through the night neither fires nor moves the deadline again.
	for now := at; now.Before(morning); now = now.Add(time.Minute) {
		if ev := s.Tick(now); ev != nil {
			t.Fatalf("fired at %v", now)
		}
	}
	if got := s.Status().NextDueAt; !got.Equal(next) {
		t.Fatalf("NextDueAt drifted %v -> %v", next, got)
	}
	if ev := s.Tick(next); ev == nil {
		t.Fatalf("expected a fire at %v", next)
	}
}

func TestDoNotDisturbCountsSilently(t *testing.T) {
	t.Parallel()

	ch := &recordingChannel{}
	reg := NewRegistry()
	_ = reg.Register(ChannelDesktop, ch)
	s, _ := newTestScheduler(t, testSettings(), reg)

	before := s.Status().NextDueAt
	if !s.ToggleDoNotDisturb() {
		t.Fatalf("ToggleDoNotDisturb() should enable DND")
	}
	if got := s.Status().NextDueAt; !got.Equal(before) {
		t.Fatalf("toggle moved NextDueAt")
	}

	if ev := s.Tick(t0.Add(10 * time.Minute)); ev != nil {
		t.Fatalf("DND should not produce events before due")
	}
	ev := s.Tick(t0.Add(20 * time.Minute))
	if ev == nil || !ev.Suppressed {
		t.Fatalf("expected suppressed event, got %+v", ev)
	}
	if len(ev.Results) != 0 || ch.count() != 0 {
		t.Fatalf("suppressed event must not deliver")
	}
	st := s.Status()
	if st.ReminderCount != 1 || !st.LastReminderAt.Equal(t0.Add(20*time.Minute)) {
		t.Fatalf("status after suppress: %+v", st)
	}
	if !st.NextDueAt.Equal(t0.Add(40 * time.Minute)) {
		t.Fatalf("NextDueAt=%v", st.NextDueAt)
	}

	s.ToggleDoNotDisturb()
	if ev := s.Tick(t0.Add(40 * time.Minute)); ev == nil || ev.Suppressed || ev.Seq != 2 {
		t.Fatalf("expected delivered fire #2, got %+v", ev)
	}
}

func TestDoNotDisturbSeededFromSettings(t *testing.T) {
	t.Parallel()

	set := testSettings()
	set.DNDManualOverride = true
	s, _ := newTestScheduler(t, set, nil)
	if !s.Status().DoNotDisturb {
		t.Fatalf("DND should start enabled")
	}
}

func TestReloadTakesEffectOnNextTick(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t, testSettings(), nil)
	next := testSettings()
	next.IntervalMinutes = 10
	next.DNDManualOverride = true

	newReg := NewRegistry()
	_ = newReg.Register(ChannelDesktop, &recordingChannel{})
	if err := s.Reload(next, newReg); err != nil {
		t.Fatalf("Reload() err=%v", err)
	}
	if st := s.Status(); st.IntervalMinutes != 20 || st.DoNotDisturb || len(st.Channels) != 0 {
		t.Fatalf("reload applied early: %+v", st)
	}

	s.Tick(t0.Add(time.Minute))
	st := s.Status()
	if st.IntervalMinutes != 10 || !st.DoNotDisturb || len(st.Channels) != 1 {
		t.Fatalf("reload not applied: %+v", st)
	}
	if !st.NextDueAt.Equal(t0.Add(20 * time.Minute)) {
		t.Fatalf("reload must keep NextDueAt, got %v", st.NextDueAt)
	}

	s.ToggleDoNotDisturb()
	ev := s.Tick(t0.Add(20 * time.Minute))
	if ev == nil {
		t.Fatalf("expected fire")
	}
	if got := s.Status().NextDueAt; !got.Equal(t0.Add(30 * time.Minute)) {
		t.Fatalf("new interval not used: %v", got)
	}
}

func TestReloadRejectsInvalidSettings(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t, testSettings(), nil)
	bad := testSettings()
	bad.Messages = nil
	if err := s.Reload(bad, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Reload() err=%v, want ErrInvalidArgument", err)
	}
	s.Tick(t0.Add(time.Minute))
	if s.Status().IntervalMinutes != 20 {
		t.Fatalf("rejected reload was applied")
	}
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Settings){
		"interval":  func(s *Settings) { s.IntervalMinutes = 0 },
		"long":      func(s *Settings) { s.LongBreakEveryN = 0 },
		"snooze":    func(s *Settings) { s.SnoozeMinutes = 0 },
		"messages":  func(s *Settings) { s.Messages = []string{""} },
		"duplicate": func(s *Settings) { s.EnabledChannels = []ChannelID{ChannelEmail, ChannelEmail} },
		"quiet":     func(s *Settings) { s.QuietHours = &QuietHours{Start: ClockTime{8, 0}, End: ClockTime{8, 0}} },
		"timeout":   func(s *Settings) { s.ChannelTimeout = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			set := testSettings()
			mutate(&set)
			if _, err := New(set, nil, newFakeClock(t0), nilLog()); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("New() err=%v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestMessagesRotateAndLongBreakDescribed(t *testing.T) {
	t.Parallel()

	ch := &recordingChannel{}
	reg := NewRegistry()
	_ = reg.Register(ChannelDesktop, ch)
	s, _ := newTestScheduler(t, testSettings(), reg)

	var evs []*BreakEvent
	for i := 1; i <= 4; i++ {
		evs = append(evs, s.Tick(t0.Add(time.Duration(i)*20*time.Minute)))
	}
	want := []string{
		"Look away\n\nReminder #1",
		"Blink\n\nReminder #2",
		"Long break (5 minutes)\n\nReminder #3",
		"Blink\n\nReminder #4",
	}
	for i, ev := range evs {
		if ev.Message != want[i] {
			t.Fatalf("message %d=%q, want %q", i+1, ev.Message, want[i])
		}
	}
	if evs[2].Title != "Time for a Long Break!" || evs[0].Title != "Eye Break Reminder" {
		t.Fatalf("titles: %q %q", evs[0].Title, evs[2].Title)
	}
	if evs[0].ID == "" || evs[0].ID == evs[1].ID {
		t.Fatalf("event ids should be unique")
	}
	if ch.kinds[2] != KindLong {
		t.Fatalf("channel saw kind %v", ch.kinds[2])
	}
}

func TestTestChannelsLeavesScheduleAlone(t *testing.T) {
	t.Parallel()

	ch := &recordingChannel{}
	reg := NewRegistry()
	_ = reg.Register(ChannelDesktop, ch)
	s, _ := newTestScheduler(t, testSettings(), reg)

	before := s.Status()
	res := s.TestChannels(context.Background())
	if len(res) != 1 || !res[0].Outcome.OK() {
		t.Fatalf("TestChannels()=%+v", res)
	}
	after := s.Status()
	if after.ReminderCount != before.ReminderCount || !after.NextDueAt.Equal(before.NextDueAt) {
		t.Fatalf("schedule touched: %+v -> %+v", before, after)
	}
}

func TestStatusDoesNotBlockDuringDelivery(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	reg := NewRegistry()
	_ = reg.Register(ChannelDesktop, ChannelFunc(func(ctx context.Context, text string, kind Kind) error {
		close(entered)
		<-release
		return nil
	}))
	set := testSettings()
	set.ChannelTimeout = 5 * time.Second
	s, _ := newTestScheduler(t, set, reg)

	var fired atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		fired.Store(s.Tick(t0.Add(20*time.Minute)) != nil)
	}()
	<-entered

	got := make(chan Status, 1)
	go func() {
		got <- s.Status()
		s.ToggleDoNotDisturb()
		s.ToggleDoNotDisturb()
	}()
	select {
	case st := <-got:
		if st.ReminderCount != 1 {
			t.Fatalf("ReminderCount=%d during delivery", st.ReminderCount)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Status() blocked during delivery")
	}
	close(release)
	<-done
	if !fired.Load() {
		t.Fatalf("tick should have fired")
	}
}
