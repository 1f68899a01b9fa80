package systemd

import (
	"context"
	"testing"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "lookaway/pkg/logx"
)

func TestNotifyStates(t *testing.T) {
	var sent []string
	old := notify
	notify = func(unset bool, state string) (bool, error) {
		sent = append(sent, state)
		return true, nil
	}
	t.Cleanup(func() { notify = old })

	if !Ready() {
		t.Fatalf("Ready() = false")
	}
	Status("next break 10:20")
	Stopping()

	want := []string{daemon.SdNotifyReady, "STATUS=next break 10:20", daemon.SdNotifyStopping}
	if len(sent) != len(want) {
		t.Fatalf("sent=%q", sent)
	}
	for i := range want {
		if sent[i] != want[i] {
			t.Fatalf("sent[%d]=%q want %q", i, sent[i], want[i])
		}
	}
}

func TestWatchdogDisabledReturns(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	t.Setenv("WATCHDOG_PID", "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Without WATCHDOG_USEC this must not block.
	Watchdog(ctx, logx.Nop())
}
