package reminder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

var hhmmRe = regexp.MustCompile(`^([0-1]?\d|2[0-3]):([0-5]\d)$`)

// ParseClock parses "HH:MM" (24h).
func ParseClock(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	m := hhmmRe.FindStringSubmatch(s)
	if m == nil {
		return ClockTime{}, fmt.Errorf("%w: invalid time %q (want HH:MM)", ErrInvalidArgument, s)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return ClockTime{Hour: h, Minute: mm}, nil
}

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

func (c ClockTime) minutes() int { return c.Hour*60 + c.Minute }

// on returns c on the calendar day of t, in t's location.
func (c ClockTime) on(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, t.Location())
}

// QuietHours is a recurring daily window [Start, End). When Start is after
// End the window crosses midnight.
type QuietHours struct {
	Start ClockTime
	End   ClockTime
}

func (q QuietHours) Validate() error {
	for _, c := range []ClockTime{q.Start, q.End} {
		if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
			return fmt.Errorf("%w: quiet hours time %d:%d out of range", ErrInvalidArgument, c.Hour, c.Minute)
		}
	}
	if q.Start == q.End {
		return fmt.Errorf("%w: quiet hours start and end are both %s", ErrInvalidArgument, q.Start)
	}
	return nil
}

func (q QuietHours) overnight() bool { return q.Start.minutes() > q.End.minutes() }

// Contains reports whether t (already in the target location) is inside the window.
func (q QuietHours) Contains(t time.Time) bool {
	tod := t.Hour()*60 + t.Minute()
	s, e := q.Start.minutes(), q.End.minutes()
	if q.overnight() {
		return tod >= s || tod < e
	}
	return tod >= s && tod < e
}

// WindowEnd returns the end of the window that contains t. The result is
// meaningful only when Contains(t).
func (q QuietHours) WindowEnd(t time.Time) time.Time {
	end := q.End.on(t)
	if q.overnight() && t.Hour()*60+t.Minute() >= q.Start.minutes() {
		y, m, d := t.Date()
		end = time.Date(y, m, d+1, q.End.Hour, q.End.Minute, 0, 0, t.Location())
	}
	return end
}

func (q QuietHours) String() string { return q.Start.String() + "-" + q.End.String() }
