// Package control routes user commands from the console, the tray and the
// Telegram bot to the running scheduler.
package control

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"lookaway/internal/eventbus"
	"lookaway/internal/reminder"
	"lookaway/internal/storage"
	logx "lookaway/pkg/logx"
)

// Source identifies where a command came from.
type Source string

const (
	SourceConsole  Source = "console"
	SourceTray     Source = "tray"
	SourceTelegram Source = "telegram"
	// SourceCLI is another lookaway process talking over the instance socket.
	SourceCLI Source = "cli"
)

// local sources are trusted; remote ones go through the owner check.
func (s Source) local() bool { return s == SourceConsole || s == SourceTray || s == SourceCLI }

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
	AccessLocalOnly
)

// ErrUnauthorized is returned when a remote user may not run a command.
var ErrUnauthorized = errors.New("unauthorized")

// Scheduler is the subset of *reminder.Scheduler the router drives.
type Scheduler interface {
	Status() reminder.Status
	Pause() bool
	Resume() bool
	Snooze(minutes int) (time.Time, error)
	ToggleDoNotDisturb() bool
	TestChannels(ctx context.Context) []reminder.DeliveryResult
}

// Deps wires the router to the rest of the daemon. Only Scheduler is required.
type Deps struct {
	Scheduler Scheduler
	Reload    func(ctx context.Context) (changed bool, err error)
	Quit      func()
	// SaveDoNotDisturb persists the dnd toggle so it survives a restart.
	SaveDoNotDisturb func(on bool) error
	Store            storage.Store
	Bus              eventbus.Bus
	Clock            reminder.Clock
	Log              logx.Logger
	Owners           []int64
}

type Request struct {
	Source        Source
	ActorID       int64
	ActorUsername string
	Command       string
	Args          []string
	Flags         map[string]string
	Raw           string
}

type HandlerFunc func(ctx context.Context, req *Request) (string, error)

type Middleware func(next HandlerFunc) HandlerFunc

func chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Access      Access
	Timeout     time.Duration
	// Audit marks state-changing commands that are recorded and published.
	Audit  bool
	Handle HandlerFunc
}

type Router struct {
	deps Deps
	log  logx.Logger

	mu     sync.RWMutex
	cmds   map[string]*Command
	alias  map[string]*Command
	owners []int64
}

func NewRouter(deps Deps) *Router {
	if deps.Clock == nil {
		deps.Clock = reminder.SystemClock{}
	}
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Router{
		deps:   deps,
		log:    log.With(logx.String("comp", "control")),
		cmds:   map[string]*Command{},
		alias:  map[string]*Command{},
		owners: append([]int64(nil), deps.Owners...),
	}
	for _, c := range r.builtins() {
		r.register(c)
	}
	return r
}

func (r *Router) register(c Command) {
	cc := c
	r.cmds[c.Name] = &cc
	for _, a := range c.Aliases {
		r.alias[a] = &cc
	}
}

// SetOwners updates the Telegram user ids allowed to run owner commands.
func (r *Router) SetOwners(owners []int64) {
	cp := append([]int64(nil), owners...)
	r.mu.Lock()
	r.owners = cp
	r.mu.Unlock()
}

func (r *Router) isOwner(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.owners {
		if o == id {
			return true
		}
	}
	return false
}

func (r *Router) lookup(word string) *Command {
	if c, ok := r.cmds[word]; ok {
		return c
	}
	return r.alias[word]
}

// Commands returns the registered commands sorted by name.
func (r *Router) Commands() []Command {
	out := make([]Command, 0, len(r.cmds))
	for _, c := range r.cmds {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs one command line and returns the reply text. An empty line
// yields an empty reply.
func (r *Router) Execute(ctx context.Context, src Source, actorID int64, actorUsername, line string) string {
	toks := tokenize(line)
	if len(toks) == 0 {
		return ""
	}
	word := commandWord(toks[0])
	cmd := r.lookup(word)
	if cmd == nil {
		return fmt.Sprintf("unknown command %q. try help", word)
	}
	pos, flags := parseFlags(toks[1:])
	req := &Request{
		Source:        src,
		ActorID:       actorID,
		ActorUsername: actorUsername,
		Command:       cmd.Name,
		Args:          pos,
		Flags:         flags,
		Raw:           line,
	}

	h := chain(cmd.Handle,
		r.mwAccess(cmd.Access),
		r.mwAudit(cmd.Audit),
		mwRecover(r.log),
		mwTimeout(cmd.Timeout),
	)
	reply, err := h(ctx, req)
	if err != nil {
		return "error: " + err.Error()
	}
	return reply
}

func (r *Router) mwAccess(a Access) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (string, error) {
			if !req.Source.local() {
				switch a {
				case AccessLocalOnly:
					return "", ErrUnauthorized
				case AccessOwnerOnly:
					if !r.isOwner(req.ActorID) {
						r.log.Warn("command rejected",
							logx.String("cmd", req.Command),
							logx.String("source", string(req.Source)),
							logx.Int64("from_id", req.ActorID),
						)
						return "", ErrUnauthorized
					}
				}
			}
			return next(ctx, req)
		}
	}
}

func (r *Router) mwAudit(enabled bool) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (string, error) {
			start := time.Now()
			reply, err := next(ctx, req)
			took := time.Since(start)

			fields := []logx.Field{
				logx.String("cmd", req.Command),
				logx.String("source", string(req.Source)),
				logx.Duration("dur", took),
			}
			if err != nil {
				r.log.Warn("command failed", append(fields, logx.Err(err))...)
			} else {
				r.log.Debug("command ok", fields...)
			}
			if !enabled {
				return reply, err
			}

			if r.deps.Bus != nil {
				r.deps.Bus.Publish(eventbus.Event{
					Type: eventbus.Control(req.Command),
					Time: r.deps.Clock.Now(),
					Data: req.Source,
				})
			}
			if r.deps.Store != nil {
				e := storage.AuditEntry{
					At:            r.deps.Clock.Now(),
					Source:        string(req.Source),
					ActorID:       req.ActorID,
					ActorUsername: req.ActorUsername,
					Action:        req.Command,
					Args:          strings.Join(req.Args, " "),
					OK:            err == nil,
					TookMS:        took.Milliseconds(),
				}
				if err != nil {
					e.Error = err.Error()
				}
				actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
				if aerr := r.deps.Store.AppendAudit(actx, e); aerr != nil {
					r.log.Debug("audit append failed", logx.Err(aerr))
				}
				cancel()
			}
			return reply, err
		}
	}
}

func mwRecover(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (reply string, err error) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered",
						logx.String("cmd", req.Command),
						logx.Any("panic", rec),
						logx.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("panic: %v", rec)
				}
			}()
			return next(ctx, req)
		}
	}
}

func mwTimeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (string, error) {
			if d <= 0 {
				return next(ctx, req)
			}
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, req)
		}
	}
}
