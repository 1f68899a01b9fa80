package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug").With(String("comp", "reminder"))
	log.Info("fired", Int("seq", 3), Err(errors.New("x")))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("lines=%d", len(lines))
	}
	l := lines[0]
	if l["comp"] != "reminder" || l["seq"] != float64(3) || l["message"] != "fired" {
		t.Fatalf("unexpected record %v", l)
	}
	if _, ok := l["caller"]; !ok {
		t.Fatalf("caller missing: %v", l)
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "warn")
	log.Info("hidden")
	log.Warn("shown")
	if lines := decodeLines(t, &buf); len(lines) != 1 || lines[0]["message"] != "shown" {
		t.Fatalf("unexpected lines %v", lines)
	}
	if log.Enabled(LevelDebug) {
		t.Fatalf("debug should be disabled")
	}
}

func TestZeroLoggerIsNop(t *testing.T) {
	var l Logger
	if !l.IsZero() {
		t.Fatalf("zero logger should report IsZero")
	}
	l.Error("nothing happens")
	if Nop().IsZero() {
		t.Fatalf("Nop() is an explicit logger")
	}
}

func TestCronLoggerPairs(t *testing.T) {
	var buf bytes.Buffer
	cl := CronLogger{Log: NewWriter(&buf, "debug")}
	cl.Info("schedule", "entry", 1, "dangling")
	cl.Error(errors.New("bad"), "run", "job", "tick")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("lines=%d", len(lines))
	}
	if lines[0]["entry"] != float64(1) || lines[0]["dangling"] != "(missing)" {
		t.Fatalf("info record %v", lines[0])
	}
	if lines[1]["err"] != "bad" || lines[1]["job"] != "tick" {
		t.Fatalf("error record %v", lines[1])
	}
}

func TestErrKeyIgnoresGlobalFieldName(t *testing.T) {
	prev := zerolog.ErrorFieldName
	zerolog.ErrorFieldName = "error"
	t.Cleanup(func() { zerolog.ErrorFieldName = prev })

	var buf bytes.Buffer
	NewWriter(&buf, "debug").Warn("delivery failed", Err(errors.New("smtp down")), Err(nil))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("lines=%d", len(lines))
	}
	if lines[0]["err"] != "smtp down" {
		t.Fatalf("err key missing: %v", lines[0])
	}
	if _, ok := lines[0]["error"]; ok {
		t.Fatalf("unexpected error key: %v", lines[0])
	}
}

func TestFormatChatLine(t *testing.T) {
	got := formatChatLine([]byte(`{"level":"warn","time":"x","message":"delivery failed","channel":"email","attempt":2}`))
	want := "[WARN] delivery failed\n- attempt=2\n- channel=email"
	if got != want {
		t.Fatalf("formatChatLine()=%q, want %q", got, want)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"warning": LevelWarn,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in, LevelInfo); got != want {
			t.Fatalf("parseLevel(%q)=%v, want %v", in, got, want)
		}
	}
}
