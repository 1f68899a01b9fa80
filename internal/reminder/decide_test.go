package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	logx "lookaway/pkg/logx"
)

func nilLog() logx.Logger { return logx.Nop() }

func TestDecide(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   Conditions
		want Action
	}{
		{"nothing due", Conditions{}, ActionWait},
		{"due", Conditions{Due: true}, ActionFire},
		{"paused wins over everything", Conditions{Paused: true, Snoozed: true, InQuietHours: true, DoNotDisturb: true, Due: true}, ActionIdle},
		{"snoozed", Conditions{Snoozed: true, Due: true}, ActionIdle},
		{"paused and snoozed", Conditions{Paused: true, Snoozed: true}, ActionIdle},
		{"quiet beats dnd", Conditions{InQuietHours: true, DoNotDisturb: true, Due: true}, ActionSkipQuiet},
		{"quiet not due", Conditions{InQuietHours: true}, ActionSkipQuiet},
		{"dnd due", Conditions{DoNotDisturb: true, Due: true}, ActionSuppress},
		{"dnd not due", Conditions{DoNotDisturb: true}, ActionWait},
	}
	for _, tc := range cases {
		if got := Decide(tc.in); got != tc.want {
			t.Fatalf("%s: Decide()=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestQuietHoursContains(t *testing.T) {
	t.Parallel()

	night := QuietHours{Start: ClockTime{22, 0}, End: ClockTime{7, 0}}
	lunch := QuietHours{Start: ClockTime{12, 0}, End: ClockTime{13, 30}}
	at := func(h, m int) time.Time { return time.Date(2026, 6, 1, h, m, 0, 0, time.UTC) }

	cases := []struct {
		q    QuietHours
		t    time.Time
		want bool
	}{
		{night, at(21, 59), false},
		{night, at(22, 0), true},
		{night, at(23, 30), true},
		{night, at(0, 0), true},
		{night, at(6, 59), true},
		{night, at(7, 0), false},
		{lunch, at(11, 59), false},
		{lunch, at(12, 0), true},
		{lunch, at(13, 29), true},
		{lunch, at(13, 30), false},
	}
	for _, tc := range cases {
		if got := tc.q.Contains(tc.t); got != tc.want {
			t.Fatalf("%s.Contains(%s)=%v, want %v", tc.q, tc.t.Format("15:04"), got, tc.want)
		}
	}
}

func TestQuietHoursWindowEnd(t *testing.T) {
	t.Parallel()

	night := QuietHours{Start: ClockTime{22, 0}, End: ClockTime{7, 0}}
	lunch := QuietHours{Start: ClockTime{12, 0}, End: ClockTime{13, 30}}

	cases := []struct {
		q    QuietHours
		t    time.Time
		want time.Time
	}{
		{night, time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC), time.Date(2027, 1, 1, 7, 0, 0, 0, time.UTC)},
		{night, time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC), time.Date(2026, 1, 1, 7, 0, 0, 0, time.UTC)},
		{lunch, time.Date(2026, 1, 1, 12, 15, 0, 0, time.UTC), time.Date(2026, 1, 1, 13, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := tc.q.WindowEnd(tc.t); !got.Equal(tc.want) {
			t.Fatalf("%s.WindowEnd(%v)=%v, want %v", tc.q, tc.t, got, tc.want)
		}
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	good := map[string]ClockTime{"07:00": {7, 0}, "23:59": {23, 59}, "9:05": {9, 5}, " 00:00 ": {0, 0}}
	for in, want := range good {
		got, err := ParseClock(in)
		if err != nil || got != want {
			t.Fatalf("ParseClock(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"24:00", "7", "12:60", "ab:cd", ""} {
		if _, err := ParseClock(in); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("ParseClock(%q) err=%v, want ErrInvalidArgument", in, err)
		}
	}
}

func TestRegistryOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	noop := ChannelFunc(func(ctx context.Context, text string, kind Kind) error { return nil })
	for _, id := range []ChannelID{ChannelTelegram, ChannelDesktop} {
		if err := r.Register(id, noop); err != nil {
			t.Fatalf("Register(%q) err=%v", id, err)
		}
	}
	if err := r.Register(ChannelDesktop, noop); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("duplicate Register err=%v", err)
	}
	ids := r.IDs()
	if len(ids) != 2 || ids[0] != ChannelTelegram || ids[1] != ChannelDesktop {
		t.Fatalf("IDs()=%v", ids)
	}
}
