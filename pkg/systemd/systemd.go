// Package systemd reports service state to systemd when the daemon runs as a
// (user) unit. Every call is a no-op outside systemd.
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "lookaway/pkg/logx"
)

// notify is swapped in tests.
var notify = daemon.SdNotify

// Ready tells systemd that startup finished. It reports whether a notify
// socket was present.
func Ready() bool {
	ok, _ := notify(false, daemon.SdNotifyReady)
	return ok
}

func Stopping() {
	_, _ = notify(false, daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func Status(s string) {
	_, _ = notify(false, "STATUS="+s)
}

// Watchdog pings systemd at half the configured WatchdogSec until ctx is done.
// It returns immediately when the unit has no watchdog.
func Watchdog(ctx context.Context, log logx.Logger) {
	every, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		log.Warn("watchdog config invalid", logx.Err(err))
		return
	}
	if every <= 0 {
		return
	}
	every /= 2
	log.Debug("watchdog enabled", logx.Duration("every", every))

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := notify(false, daemon.SdNotifyWatchdog); err != nil {
				log.Debug("watchdog ping failed", logx.Err(err))
			}
		}
	}
}
