//go:build !linux

package desktop

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"

	"lookaway/internal/reminder"
)

// popupMu guards beeep.AppName, a package global.
var popupMu sync.Mutex

// popup shows one notification. Long breaks use Alert, which also plays the
// system sound.
var popup = func(title, text, icon string, loud bool) error {
	if loud {
		return beeep.Alert(title, text, icon)
	}
	return beeep.Notify(title, text, icon)
}

// Send hands the popup to the OS notifier (osascript or terminal-notifier on
// macOS, toast on Windows). Those calls take no context, so Send stops
// waiting when ctx ends and lets the call finish in the background.
func (n *Notifier) Send(ctx context.Context, text string, kind reminder.Kind) error {
	done := make(chan error, 1)
	go func() {
		popupMu.Lock()
		defer popupMu.Unlock()
		beeep.AppName = n.cfg.AppName
		done <- popup(reminder.Title(kind), text, iconFile(n.cfg.Icon), kind == reminder.KindLong)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("notify: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
