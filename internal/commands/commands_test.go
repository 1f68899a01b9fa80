package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lookaway/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestHistoryDisabled(t *testing.T) {
	path := writeSettings(t, "first_run: false\n")
	out, err := execute(t, "history", "--config", path)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "History is disabled") {
		t.Fatalf("out=%q", out)
	}
}

func TestHistoryEmptyStore(t *testing.T) {
	dir := t.TempDir()
	path := writeSettings(t, "storage: {driver: file, path: "+filepath.Join(dir, "h.jsonl")+"}\n")
	out, err := execute(t, "history", "-n", "5", "--config", path)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No breaks recorded yet.") {
		t.Fatalf("out=%q", out)
	}
}

func TestHistoryRejectsBadCount(t *testing.T) {
	path := writeSettings(t, "first_run: false\n")
	if _, err := execute(t, "history", "-n", "0", "--config", path); err == nil {
		t.Fatalf("expected error for -n 0")
	}
}

func TestInvalidConfigFails(t *testing.T) {
	path := writeSettings(t, "reminder_interval_minutes: 0\n")
	_, err := execute(t, "history", "--config", path)
	if err == nil || !strings.Contains(err.Error(), "configuration unavailable") {
		t.Fatalf("err=%v", err)
	}
}

func TestPrintConfigured(t *testing.T) {
	path := writeSettings(t, "notifications: {desktop: true, email: true}\nquiet_hours: {enabled: false}\n")
	var out bytes.Buffer
	cfg, err := config.NewConfigManager(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	printConfigured(&out, cfg)
	s := out.String()
	for _, want := range []string{"not running", "every 20 minutes", "desktop, email", "Quiet hours:   off"} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %q in:\n%s", want, s)
		}
	}
}
