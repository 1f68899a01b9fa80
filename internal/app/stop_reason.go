package app

// StopReason is logged when the daemon shuts down.
type StopReason string

const (
	StopSignal     StopReason = "signal"
	StopQuit       StopReason = "quit"
	StopFatalError StopReason = "fatal_error"
)
