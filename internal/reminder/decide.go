package reminder

// Action is what a tick should do.
type Action int

const (
	ActionWait      Action = iota // nothing due yet
	ActionIdle                    // paused or snoozed
	ActionSkipQuiet               // inside quiet hours; push nextDueAt past the window
	ActionSuppress                // due under DND; count silently
	ActionFire
)

func (a Action) String() string {
	switch a {
	case ActionIdle:
		return "idle"
	case ActionSkipQuiet:
		return "skip_quiet"
	case ActionSuppress:
		return "suppress"
	case ActionFire:
		return "fire"
	default:
		return "wait"
	}
}

// Conditions are the suppression inputs observed at one tick.
type Conditions struct {
	Paused       bool
	Snoozed      bool
	InQuietHours bool
	DoNotDisturb bool
	Due          bool
}

// Decide evaluates the suppression rules in priority order. The first
// matching rule wins.
func Decide(c Conditions) Action {
	switch {
	case c.Paused, c.Snoozed:
		return ActionIdle
	case c.InQuietHours:
		return ActionSkipQuiet
	case !c.Due:
		return ActionWait
	case c.DoNotDisturb:
		return ActionSuppress
	default:
		return ActionFire
	}
}
