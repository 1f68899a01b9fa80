// Package app wires the reminder scheduler to its driver, channels, config
// reload, storage and the control surfaces (tray, console, bot, CLI socket).
package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"lookaway/internal/channel"
	"lookaway/internal/config"
	"lookaway/internal/control"
	"lookaway/internal/eventbus"
	"lookaway/internal/platform"
	"lookaway/internal/reminder"
	"lookaway/internal/runtime/supervisor"
	"lookaway/internal/secrets"
	"lookaway/internal/storage"
	kit "lookaway/internal/transport"
	"lookaway/internal/transport/telegram"
	"lookaway/internal/tray"
	logx "lookaway/pkg/logx"
	"lookaway/pkg/systemd"
)

// Options select how the daemon is driven. With Tray false and ConsoleIn
// nil the daemon runs headless until its context ends.
type Options struct {
	ConfigPath string
	Tray       bool
	ConsoleIn  io.Reader
	ConsoleOut io.Writer
	// Guard, when set, also serves commands from `lookaway status`.
	Guard *platform.InstanceGuard
	Clock reminder.Clock
}

type App struct {
	opt Options

	cfgm  *config.ConfigManager
	log   logx.Logger
	logs  *logx.Service
	sec   *secrets.Store
	bot   *telegram.Adapter
	bus   eventbus.Bus
	store storage.Store
	clock reminder.Clock

	sched  *reminder.Scheduler
	router *control.Router

	sup *supervisor.Supervisor

	cronMu sync.Mutex
	cron   *cron.Cron
	tickID cron.EntryID
	poll   time.Duration

	cancel   context.CancelFunc
	quitOnce sync.Once
	quitting atomic.Bool
}

func NewApp(opt Options) (*App, error) {
	if opt.Clock == nil {
		opt.Clock = reminder.SystemClock{}
	}
	cfgm := config.NewConfigManager(opt.ConfigPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole(cfg.Logging.Level)
	sec := secrets.New()
	bot, err := newBot(cfg, sec, bootLog)
	if err != nil {
		return nil, err
	}

	// Chat logging starts disabled so Apply doesn't warn before the target is set.
	baseLogCfg := logConfig(cfg)
	baseLogCfg.Chat.Enabled = false
	var sender kit.Adapter
	if bot != nil {
		sender = bot
	}
	logSvc, log := logx.New(baseLogCfg, sender)
	if chatID, err := cfg.TelegramChatID(); err == nil && chatID != 0 {
		logSvc.SetChatTarget(chatID)
	}
	logSvc.Apply(logConfig(cfg))

	a := &App{
		opt:   opt,
		cfgm:  cfgm,
		log:   log.With(logx.String("comp", "app")),
		logs:  logSvc,
		sec:   sec,
		bot:   bot,
		bus:   eventbus.New(),
		clock: opt.Clock,
	}

	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		a.store = st
		a.log.Info("storage enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	}

	settings, err := cfg.ToSettings()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrUnavailable, err)
	}
	reg := a.buildChannels(cfg)
	a.sched, err = reminder.New(settings, reg, a.clock, log.With(logx.String("comp", "scheduler")))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrUnavailable, err)
	}

	deps := control.Deps{
		Scheduler:        a.sched,
		Reload:           a.reload,
		Quit:             a.requestQuit,
		SaveDoNotDisturb: a.saveDoNotDisturb,
		Bus:              a.bus,
		Clock:            a.clock,
		Log:              log,
		Owners:           cfg.TelegramSettings.OwnerUserIDs,
	}
	if a.store != nil {
		deps.Store = a.store
	}
	a.router = control.NewRouter(deps)
	return a, nil
}

func (a *App) Router() *control.Router { return a.router }

func (a *App) Scheduler() *reminder.Scheduler { return a.sched }

func (a *App) Bus() eventbus.Bus { return a.bus }

func (a *App) botAdapter() kit.Adapter {
	if a.bot == nil {
		return nil
	}
	return a.bot
}

func (a *App) buildChannels(cfg *config.Config) *reminder.Registry {
	reg, warns := channel.Build(cfg, channel.Deps{
		Secrets: a.sec,
		Bot:     a.botAdapter(),
		Log:     a.log.With(logx.String("comp", "channel")),
	})
	for _, w := range warns {
		a.log.Warn("notification channel unavailable", logx.Err(w))
	}
	return reg
}

// Run starts the daemon, drives the selected front end and stops everything
// when the context ends, the user quits or a supervised task fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.cancel = cancel

	if err := a.Start(ctx); err != nil {
		stopCtx, stopCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		_ = a.Stop(stopCtx, StopFatalError)
		stopCancel()
		return err
	}
	runCtx := a.sup.Context()

	switch {
	case a.opt.Tray:
		tray.New(tray.Deps{
			Status: a.sched.Status,
			Exec: func(c context.Context, line string) string {
				return a.router.Execute(c, control.SourceTray, 0, "", line)
			},
			Bus:   a.bus,
			Clock: a.clock,
			Log:   a.log,
		}).Run(runCtx)
	case a.opt.ConsoleIn != nil:
		out := a.opt.ConsoleOut
		if out == nil {
			out = io.Discard
		}
		if err := a.router.RunConsole(runCtx, a.opt.ConsoleIn, out); err != nil {
			a.log.Warn("console input failed", logx.Err(err))
		}
		if runCtx.Err() == nil {
			a.log.Info("console closed; running in the background")
		}
		<-runCtx.Done()
	default:
		<-runCtx.Done()
	}

	stopCtx, stopCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, a.stopReason())
	return a.sup.Err()
}

func (a *App) requestQuit() {
	a.quitOnce.Do(func() {
		a.quitting.Store(true)
		if a.cancel != nil {
			a.cancel()
		} else if a.sup != nil {
			a.sup.Cancel()
		}
	})
}

func (a *App) stopReason() StopReason {
	switch {
	case a.quitting.Load():
		return StopQuit
	case a.sup != nil && a.sup.Err() != nil:
		return StopFatalError
	default:
		return StopSignal
	}
}

// Start launches the background tasks. It returns once they are running.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)
	cfg := a.cfgm.Get()

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(ctx context.Context, cfg *config.Config) error {
		_, _, err := mapStorageConfig(cfg)
		return err
	})
	a.cfgm.OnReject(a.rejected)

	if a.bot != nil && cfg.TelegramSettings.Commands {
		updates := make(chan kit.Update, 64)
		if err := a.bot.Start(a.sup.Context(), updates); err != nil {
			return fmt.Errorf("start telegram: %w", err)
		}
		a.sup.Go("bot.dispatch", func(c context.Context) error {
			return a.router.ServeBot(c, a.bot, updates)
		})
	}

	if err := a.startDriver(cfg); err != nil {
		return err
	}

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				if a.applyConfig(lastApplied, newCfg) {
					lastApplied = newCfg
				}
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	if a.opt.Guard != nil {
		guard := a.opt.Guard
		a.sup.Go0("instance.serve", func(c context.Context) {
			err := guard.Serve(c, func(c2 context.Context, line string) string {
				return a.router.Execute(c2, control.SourceCLI, 0, "", line)
			}, a.log.With(logx.String("comp", "instance")))
			if err != nil {
				a.log.Warn("instance socket stopped", logx.Err(err))
			}
		})
	}

	if systemd.Ready() {
		a.log.Debug("systemd notified")
	}
	a.sup.Go0("systemd.watchdog", func(c context.Context) {
		systemd.Watchdog(c, a.log.With(logx.String("comp", "systemd")))
	})

	st := a.sched.Status()
	a.log.Info("lookaway started",
		logx.Int("interval_minutes", st.IntervalMinutes),
		logx.Time("next_break", st.NextDueAt),
		logx.Strings("channels", channelNames(st.Channels)),
	)
	return nil
}

func (a *App) startDriver(cfg *config.Config) error {
	poll, err := cfg.PollInterval()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	cl := logx.CronLogger{Log: a.log.With(logx.String("comp", "driver"))}
	a.cronMu.Lock()
	a.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	a.cronMu.Unlock()
	if err := a.reschedule(poll); err != nil {
		return err
	}
	a.cron.Start()
	return nil
}

// reschedule replaces the tick job when the poll interval changes.
func (a *App) reschedule(poll time.Duration) error {
	a.cronMu.Lock()
	defer a.cronMu.Unlock()
	if a.cron == nil || (poll == a.poll && a.tickID != 0) {
		return nil
	}
	id, err := a.cron.AddFunc("@every "+poll.String(), func() { a.tick(a.sup.Context()) })
	if err != nil {
		return fmt.Errorf("schedule tick: %w", err)
	}
	if a.tickID != 0 {
		a.cron.Remove(a.tickID)
	}
	a.tickID = id
	a.poll = poll
	a.log.Debug("driver scheduled", logx.Duration("poll", poll))
	return nil
}

// tick advances the scheduler once and reports what happened.
func (a *App) tick(ctx context.Context) {
	if ev := a.sched.Tick(a.clock.Now()); ev != nil {
		a.record(ctx, ev)
	}
}

func (a *App) record(ctx context.Context, ev *reminder.BreakEvent) {
	delivered := ev.Delivered()
	fields := []logx.Field{
		logx.String("id", ev.ID),
		logx.Int("seq", ev.Seq),
		logx.String("kind", ev.Kind.String()),
	}
	switch {
	case ev.Suppressed:
		a.log.Info("reminder suppressed (do not disturb)", fields...)
		a.bus.Publish(eventbus.Event{Type: eventbus.BreakSuppressed, Time: ev.FiredAt, Data: ev})
	case len(delivered) == 0:
		a.log.Warn("reminder failed on every channel", fields...)
		a.bus.Publish(eventbus.Event{Type: eventbus.BreakFired, Time: ev.FiredAt, Data: ev})
	default:
		a.log.Info("reminder sent", append(fields, logx.Strings("channels", channelNames(delivered)))...)
		a.bus.Publish(eventbus.Event{Type: eventbus.BreakFired, Time: ev.FiredAt, Data: ev})
	}
	for _, f := range ev.Failures() {
		a.log.Warn("delivery failed",
			logx.String("channel", string(f.Channel)),
			logx.String("reason", f.Outcome.Reason),
			logx.Int("seq", ev.Seq),
		)
		a.bus.Publish(eventbus.Event{Type: eventbus.DeliveryFailed, Time: ev.FiredAt, Data: f})
	}

	if a.store == nil {
		return
	}
	rec := storage.BreakRecord{
		ID:         ev.ID,
		At:         ev.FiredAt,
		Kind:       ev.Kind.String(),
		Seq:        ev.Seq,
		Suppressed: ev.Suppressed,
		Delivered:  channelNames(delivered),
	}
	for _, f := range ev.Failures() {
		rec.Failures = append(rec.Failures, storage.Failure{Channel: string(f.Channel), Reason: f.Outcome.Reason})
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := a.store.AppendBreak(sctx, rec); err != nil {
		a.log.Warn("history append failed", logx.Err(err))
	}
}

// reload is the "reload" command. Accepted files reach applyConfig through
// the subscription like watched edits do.
func (a *App) reload(ctx context.Context) (bool, error) {
	changed, err := a.cfgm.Reload(ctx)
	if err != nil {
		a.rejected(err)
	}
	return changed, err
}

// saveDoNotDisturb writes the toggle back to the settings file. Save commits
// the new hash, so the watcher does not turn the write into a reload.
func (a *App) saveDoNotDisturb(on bool) error {
	cur := a.cfgm.Get()
	if cur == nil || cur.DoNotDisturb == on {
		return nil
	}
	next := *cur
	next.DoNotDisturb = on
	return a.cfgm.Save(&next)
}

func (a *App) rejected(err error) {
	a.bus.Publish(eventbus.Event{Type: eventbus.ConfigRejected, Time: a.clock.Now(), Data: err.Error()})
}

// applyConfig stages newCfg on the scheduler and updates the collaborators.
// It reports false when the snapshot was refused and the old one stays.
func (a *App) applyConfig(oldCfg, newCfg *config.Config) bool {
	settings, err := newCfg.ToSettings()
	if err != nil {
		a.log.Warn("config rejected; keeping previous settings", logx.Err(err))
		a.rejected(err)
		return false
	}
	if needsBot(newCfg) && a.bot == nil {
		a.log.Warn("telegram settings changed; restart lookaway to connect the bot")
	}
	reg := a.buildChannels(newCfg)
	if err := a.sched.Reload(settings, reg); err != nil {
		a.log.Warn("config rejected; keeping previous settings", logx.Err(err))
		a.rejected(err)
		return false
	}

	chatID, _ := newCfg.TelegramChatID()
	a.logs.SetChatTarget(chatID)
	a.logs.Apply(logConfig(newCfg))
	a.router.SetOwners(newCfg.TelegramSettings.OwnerUserIDs)

	if poll, err := newCfg.PollInterval(); err == nil {
		if err := a.reschedule(poll); err != nil {
			a.log.Warn("driver reschedule failed", logx.Err(err))
		}
	}

	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	for _, s := range sections {
		if s == "storage" {
			a.log.Warn("storage config changed; restart required for changes to take effect")
			break
		}
	}
	if len(sections) > 0 {
		fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
		a.log.Info("config reloaded", fields...)
	} else {
		a.log.Info("config reloaded (no changes)")
	}
	a.bus.Publish(eventbus.Event{Type: eventbus.ConfigReloaded, Time: a.clock.Now(), Data: sections})
	return true
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	systemd.Stopping()
	a.sup.Cancel()

	// step runs one shutdown step bounded by max so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		if max > 0 {
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem < max {
					max = rem
				}
			}
			if max <= 0 {
				a.log.Warn("stop step skipped (deadline reached)", logx.String("name", name))
				return
			}
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	// An in-flight tick finishes its delivery before the driver reports stopped.
	step("driver", 5*time.Second, func(c context.Context) error {
		a.cronMu.Lock()
		cr := a.cron
		a.cronMu.Unlock()
		if cr == nil {
			return nil
		}
		select {
		case <-cr.Stop().Done():
			return nil
		case <-c.Done():
			return c.Err()
		}
	})
	step("telegram", 2*time.Second, func(c context.Context) error {
		if a.bot != nil {
			return a.bot.Stop(c)
		}
		return nil
	})
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("storage", time.Second, func(c context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped", logx.String("reason", string(reason)))
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

func channelNames(ids []reminder.ChannelID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
