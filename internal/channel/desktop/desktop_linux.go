//go:build linux

package desktop

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"lookaway/internal/reminder"
)

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = "/org/freedesktop/Notifications"
	notifyCall = busName + ".Notify"
)

func (n *Notifier) Send(ctx context.Context, text string, kind reminder.Kind) error {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("session bus: %w", err)
	}
	defer conn.Close()

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(urgency(kind)),
	}
	call := conn.Object(busName, dbus.ObjectPath(objectPath)).CallWithContext(ctx, notifyCall, 0,
		n.cfg.AppName,
		uint32(0),
		n.cfg.Icon,
		reminder.Title(kind),
		text,
		[]string{},
		hints,
		expireMillis(n.cfg.ExpireTimeout),
	)
	if call.Err != nil {
		return fmt.Errorf("notify: %w", call.Err)
	}
	return nil
}
