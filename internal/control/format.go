package control

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"lookaway/internal/reminder"
	"lookaway/internal/storage"
)

type palette struct {
	ok, warn, bad, dim func(a ...interface{}) string
}

func newPalette(plain bool) palette {
	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if plain {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		ok:   mk(color.FgGreen),
		warn: mk(color.FgYellow),
		bad:  mk(color.FgRed, color.Bold),
		dim:  mk(color.Faint),
	}
}

func stateLabel(st reminder.Status, now time.Time, p palette) string {
	switch {
	case st.Paused:
		return p.warn("paused")
	case st.Snoozed(now):
		return p.warn("snoozed")
	case st.InQuietHours:
		return p.dim("quiet hours")
	case st.DoNotDisturb:
		return p.warn("do not disturb")
	}
	return p.ok("active")
}

// FormatStatus renders the schedule state as an aligned two-column table.
func FormatStatus(st reminder.Status, now time.Time, plain bool) string {
	p := newPalette(plain)
	t := uitable.New()
	t.MaxColWidth = 60

	t.AddRow("State:", stateLabel(st, now, p))
	switch {
	case st.Paused:
		t.AddRow("Next reminder:", "-")
	default:
		t.AddRow("Next reminder:", fmt.Sprintf("%s (%s)",
			st.NextDueAt.Format("15:04"), humanize.RelTime(st.NextDueAt, now, "ago", "from now")))
	}
	if st.Snoozed(now) {
		t.AddRow("Snoozed until:", st.SnoozedUntil.Format("15:04"))
	}
	if st.LastReminderAt.IsZero() {
		t.AddRow("Last reminder:", "never")
	} else {
		t.AddRow("Last reminder:", humanize.RelTime(st.LastReminderAt, now, "ago", "from now"))
	}
	t.AddRow("Reminders:", humanize.Comma(int64(st.ReminderCount)))
	t.AddRow("Interval:", fmt.Sprintf("every %d min, long break every %s", st.IntervalMinutes, humanize.Ordinal(st.LongBreakEveryN)))
	t.AddRow("Do not disturb:", onOff(st.DoNotDisturb))
	if st.QuietHours != nil {
		t.AddRow("Quiet hours:", st.QuietHours.String())
	} else {
		t.AddRow("Quiet hours:", "off")
	}
	t.AddRow("Channels:", channelList(st.Channels))
	return t.String()
}

// FormatResults renders one line per channel for a delivery attempt.
func FormatResults(res []reminder.DeliveryResult, plain bool) string {
	p := newPalette(plain)
	t := uitable.New()
	t.MaxColWidth = 70
	t.Wrap = true
	for _, r := range res {
		outcome := p.ok("delivered")
		if !r.Outcome.OK() {
			outcome = p.bad("failed") + " " + r.Outcome.Reason
		}
		t.AddRow(string(r.Channel)+":", outcome, p.dim(r.Elapsed.Round(time.Millisecond).String()))
	}
	return t.String()
}

// FormatHistory renders break records newest first.
func FormatHistory(recs []storage.BreakRecord, plain bool) string {
	if len(recs) == 0 {
		return "No breaks recorded yet."
	}
	p := newPalette(plain)
	t := uitable.New()
	t.MaxColWidth = 50
	t.Wrap = true
	t.AddRow("WHEN", "#", "KIND", "RESULT")
	for _, r := range recs {
		var result string
		switch {
		case r.Suppressed:
			result = p.dim("silent (do not disturb)")
		case len(r.Failures) == 0:
			result = p.ok(strings.Join(r.Delivered, ", "))
		default:
			var parts []string
			if len(r.Delivered) > 0 {
				parts = append(parts, p.ok(strings.Join(r.Delivered, ", ")))
			}
			for _, f := range r.Failures {
				parts = append(parts, p.bad(f.Channel)+" ("+f.Reason+")")
			}
			result = strings.Join(parts, "; ")
		}
		t.AddRow(r.At.Local().Format("Jan 02 15:04"), r.Seq, r.Kind, result)
	}
	return t.String()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func channelList(ids []reminder.ChannelID) string {
	if len(ids) == 0 {
		return "none"
	}
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = string(id)
	}
	return strings.Join(s, ", ")
}
