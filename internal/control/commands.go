package control

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	logx "lookaway/pkg/logx"
)

const defaultHistory = 10

func (r *Router) builtins() []Command {
	return []Command{
		{
			Name:        "status",
			Aliases:     []string{"s"},
			Description: "show the schedule state",
			Usage:       "status",
			Access:      AccessOwnerOnly,
			Handle: func(ctx context.Context, req *Request) (string, error) {
				return FormatStatus(r.deps.Scheduler.Status(), r.deps.Clock.Now(), req.Source != SourceConsole), nil
			},
		},
		{
			Name:        "pause",
			Description: "stop reminders until resume",
			Usage:       "pause",
			Access:      AccessOwnerOnly,
			Audit:       true,
			Handle: func(ctx context.Context, req *Request) (string, error) {
				if !r.deps.Scheduler.Pause() {
					return "Already paused.", nil
				}
				return "Reminders paused.", nil
			},
		},
		{
			Name:        "resume",
			Description: "continue after pause",
			Usage:       "resume",
			Access:      AccessOwnerOnly,
			Audit:       true,
			Handle: func(ctx context.Context, req *Request) (string, error) {
				if !r.deps.Scheduler.Resume() {
					return "Not paused.", nil
				}
				st := r.deps.Scheduler.Status()
				return "Reminders resumed. Next at " + st.NextDueAt.Format("15:04") + ".", nil
			},
		},
		{
			Name:        "snooze",
			Aliases:     []string{"z"},
			Description: "skip reminders for a while",
			Usage:       "snooze [minutes]",
			Access:      AccessOwnerOnly,
			Audit:       true,
			Handle: func(ctx context.Context, req *Request) (string, error) {
				minutes := r.deps.Scheduler.Status().SnoozeMinutes
				if len(req.Args) > 0 {
					n, err := strconv.Atoi(req.Args[0])
					if err != nil {
						return "", fmt.Errorf("snooze: %q is not a number of minutes", req.Args[0])
					}
					minutes = n
				}
				until, err := r.deps.Scheduler.Snooze(minutes)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Snoozed for %d minutes (until %s).", minutes, until.Format("15:04")), nil
			},
		},
		{
			Name:        "dnd",
			Description: "toggle do-not-disturb",
			Usage:       "dnd",
			Access:      AccessOwnerOnly,
			Audit:       true,
			Handle: func(ctx context.Context, req *Request) (string, error) {
				on := r.deps.Scheduler.ToggleDoNotDisturb()
				reply := "Do Not Disturb disabled."
				if on {
					reply = "Do Not Disturb enabled. Reminders are counted silently."
				}
				if r.deps.SaveDoNotDisturb != nil {
					if err := r.deps.SaveDoNotDisturb(on); err != nil {
						r.log.Warn("do not disturb not saved", logx.Bool("on", on), logx.Err(err))
						reply += " (not saved, it resets on restart)"
					}
				}
				return reply, nil
			},
		},
		{
			Name:        "test",
			Description: "send a test notification on every channel",
			Usage:       "test",
			Access:      AccessOwnerOnly,
			Audit:       true,
			Timeout:     2 * time.Minute,
			Handle: func(ctx context.Context, req *Request) (string, error) {
				res := r.deps.Scheduler.TestChannels(ctx)
				if len(res) == 0 {
					return "No notification channels are enabled.", nil
				}
				return FormatResults(res, req.Source != SourceConsole), nil
			},
		},
		{
			Name:        "reload",
			Description: "re-read the settings file",
			Usage:       "reload",
			Access:      AccessOwnerOnly,
			Audit:       true,
			Timeout:     30 * time.Second,
			Handle: func(ctx context.Context, req *Request) (string, error) {
				if r.deps.Reload == nil {
					return "", errors.New("reload is not available")
				}
				changed, err := r.deps.Reload(ctx)
				if err != nil {
					return "", err
				}
				if !changed {
					return "Settings unchanged.", nil
				}
				return "Settings reloaded; they apply from the next tick.", nil
			},
		},
		{
			Name:        "history",
			Aliases:     []string{"log"},
			Description: "list recent breaks",
			Usage:       "history [-n count]",
			Access:      AccessOwnerOnly,
			Handle: func(ctx context.Context, req *Request) (string, error) {
				if r.deps.Store == nil {
					return "History is disabled (no storage configured).", nil
				}
				n := defaultHistory
				if v, ok := req.Flags["n"]; ok {
					x, err := strconv.Atoi(v)
					if err != nil || x <= 0 {
						return "", fmt.Errorf("history: -n must be a positive number")
					}
					n = x
				}
				recs, err := r.deps.Store.RecentBreaks(ctx, n)
				if err != nil {
					return "", err
				}
				return FormatHistory(recs, req.Source != SourceConsole), nil
			},
		},
		{
			Name:        "quit",
			Aliases:     []string{"exit"},
			Description: "stop LookAway",
			Usage:       "quit",
			Access:      AccessLocalOnly,
			Audit:       true,
			Handle: func(ctx context.Context, req *Request) (string, error) {
				if r.deps.Quit == nil {
					return "", errors.New("quit is not available")
				}
				r.deps.Quit()
				return "Stopping LookAway.", nil
			},
		},
		{
			Name:        "help",
			Aliases:     []string{"h", "start"},
			Description: "list commands",
			Usage:       "help",
			Access:      AccessEveryone,
			Handle: func(ctx context.Context, req *Request) (string, error) {
				return r.helpText(req.Source), nil
			},
		},
	}
}

func (r *Router) helpText(src Source) string {
	prefix := ""
	if src == SourceTelegram {
		prefix = "/"
	}
	lines := []string{"Commands:"}
	for _, c := range r.Commands() {
		if c.Access == AccessLocalOnly && !src.local() {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s%-20s %s", prefix, c.Usage, c.Description))
	}
	return strings.Join(lines, "\n")
}
