// Package tray shows the schedule state in the system tray and relays menu
// clicks as commands.
package tray

import (
	"context"
	"fmt"
	"image/color"
	"time"

	"fyne.io/systray"

	"lookaway/internal/eventbus"
	"lookaway/internal/reminder"
	logx "lookaway/pkg/logx"
)

const refreshEvery = 30 * time.Second

// Deps are the tray's collaborators. Exec runs a command line the same way
// the console does and returns the reply.
type Deps struct {
	Status func() reminder.Status
	Exec   func(ctx context.Context, line string) string
	Bus    eventbus.Bus
	Clock  reminder.Clock
	Log    logx.Logger
}

// Manager owns the tray menu.
type Manager struct {
	deps Deps
	log  logx.Logger

	statusItem *systray.MenuItem
	snoozeItem *systray.MenuItem
	pauseItem  *systray.MenuItem
	dndItem    *systray.MenuItem
	testItem   *systray.MenuItem
	reloadItem *systray.MenuItem
	quitItem   *systray.MenuItem
	lastIcon   color.RGBA
}

func New(deps Deps) *Manager {
	if deps.Clock == nil {
		deps.Clock = reminder.SystemClock{}
	}
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{deps: deps, log: log.With(logx.String("comp", "tray"))}
}

// Run blocks on the tray event loop until ctx is cancelled or Exit is
// clicked. It must be called from the main goroutine.
func (m *Manager) Run(ctx context.Context) {
	systray.Run(func() { m.onReady(ctx) }, func() { m.log.Debug("tray closed") })
}

func (m *Manager) onReady(ctx context.Context) {
	systray.SetTitle("LookAway")
	systray.SetTooltip("LookAway")

	st := m.deps.Status()
	m.statusItem = systray.AddMenuItem("Status: starting...", "")
	m.statusItem.Disable()
	systray.AddSeparator()
	m.snoozeItem = systray.AddMenuItem(fmt.Sprintf("Snooze %d min", st.SnoozeMinutes), "Skip reminders for a while")
	m.pauseItem = systray.AddMenuItem("Pause", "Stop reminders until resumed")
	m.dndItem = systray.AddMenuItemCheckbox("Do Not Disturb", "Count reminders silently", st.DoNotDisturb)
	systray.AddSeparator()
	m.testItem = systray.AddMenuItem("Test Notifications", "Send a test on every channel")
	m.reloadItem = systray.AddMenuItem("Reload Config", "Re-read the settings file")
	systray.AddSeparator()
	m.quitItem = systray.AddMenuItem("Exit", "Stop LookAway")

	m.refresh()
	go m.loop(ctx)
}

func (m *Manager) loop(ctx context.Context) {
	var events <-chan eventbus.Event
	if m.deps.Bus != nil {
		ch, unsub := m.deps.Bus.Subscribe(16)
		defer unsub()
		events = ch
	}
	t := time.NewTicker(refreshEvery)
	defer t.Stop()
	defer systray.Quit()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.refresh()
		case <-events:
			m.refresh()
		case <-m.snoozeItem.ClickedCh:
			m.exec(ctx, "snooze")
		case <-m.pauseItem.ClickedCh:
			if m.deps.Status().Paused {
				m.exec(ctx, "resume")
			} else {
				m.exec(ctx, "pause")
			}
		case <-m.dndItem.ClickedCh:
			m.exec(ctx, "dnd")
		case <-m.testItem.ClickedCh:
			go m.exec(ctx, "test")
		case <-m.reloadItem.ClickedCh:
			m.exec(ctx, "reload")
		case <-m.quitItem.ClickedCh:
			m.exec(ctx, "quit")
			return
		}
	}
}

func (m *Manager) exec(ctx context.Context, line string) {
	reply := m.deps.Exec(ctx, line)
	m.log.Info("tray action", logx.String("cmd", line), logx.String("reply", reply))
	m.refresh()
}

func (m *Manager) refresh() {
	l := labelsFor(m.deps.Status(), m.deps.Clock.Now())
	m.statusItem.SetTitle(l.status)
	m.snoozeItem.SetTitle(l.snooze)
	m.pauseItem.SetTitle(l.pause)
	if l.dnd {
		m.dndItem.Check()
	} else {
		m.dndItem.Uncheck()
	}
	systray.SetTooltip(l.tooltip)
	if l.icon != m.lastIcon {
		systray.SetIcon(icon(l.icon))
		m.lastIcon = l.icon
	}
}

type labels struct {
	status  string
	snooze  string
	pause   string
	tooltip string
	dnd     bool
	icon    color.RGBA
}

func labelsFor(st reminder.Status, now time.Time) labels {
	l := labels{
		snooze: fmt.Sprintf("Snooze %d min", st.SnoozeMinutes),
		pause:  "Pause",
		dnd:    st.DoNotDisturb,
		icon:   colorActive,
	}
	next := st.NextDueAt.Format("15:04")
	switch {
	case st.Paused:
		l.status = "Status: paused"
		l.pause = "Resume"
		l.icon = colorHeld
	case st.Snoozed(now):
		l.status = "Status: snoozed until " + st.SnoozedUntil.Format("15:04")
		l.icon = colorHeld
	case st.InQuietHours:
		l.status = "Status: quiet hours, next " + next
		l.icon = colorQuiet
	case st.DoNotDisturb:
		l.status = "Status: do not disturb, next " + next
		l.icon = colorHeld
	default:
		l.status = "Status: next break at " + next
	}
	l.tooltip = fmt.Sprintf("LookAway: %s (%d reminders)", l.status[len("Status: "):], st.ReminderCount)
	return l
}
