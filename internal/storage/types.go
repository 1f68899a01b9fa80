// Package storage keeps the break history and the operator audit log.
package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines files next to Path
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	// MaxBreaks caps retained history rows; 0 means 10000.
	MaxBreaks int
}

// BreakRecord is one fired or suppressed reminder.
type BreakRecord struct {
	ID         string    `json:"id"`
	At         time.Time `json:"at"`
	Kind       string    `json:"kind"`
	Seq        int       `json:"seq"`
	Suppressed bool      `json:"suppressed,omitempty"`
	Delivered  []string  `json:"delivered,omitempty"`
	Failures   []Failure `json:"failures,omitempty"`
}

type Failure struct {
	Channel string `json:"channel"`
	Reason  string `json:"reason"`
}

// AuditEntry records an operator action.
type AuditEntry struct {
	At            time.Time `json:"at"`
	Source        string    `json:"source"` // console, telegram, tray
	ActorID       int64     `json:"actor_id,omitempty"`
	ActorUsername string    `json:"actor_username,omitempty"`
	Action        string    `json:"action"`
	Args          string    `json:"args,omitempty"`
	OK            bool      `json:"ok"`
	Error         string    `json:"error,omitempty"`
	TookMS        int64     `json:"took_ms"`
}
