package storage

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	logx "lookaway/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, d := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: d}, logx.Nop())
		if st != nil || err != nil {
			t.Fatalf("Open(%q)=%v,%v want nil,nil", d, st, err)
		}
	}
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatalf("expected missing path error")
	}
}

func TestStores(t *testing.T) {
	t.Parallel()
	drivers := []struct {
		driver string
		file   string
	}{
		{"file", "history.jsonl"},
		{"sqlite", "history.db"},
	}
	for _, d := range drivers {
		t.Run(d.driver, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), d.file)
			st, err := Open(Config{Driver: d.driver, Path: path}, logx.Nop())
			if err != nil {
				t.Fatalf("Open err=%v", err)
			}
			defer st.Close()
			exerciseStore(t, st)
		})
	}
}

func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 1; i <= 4; i++ {
		r := BreakRecord{
			ID:        "b" + strconv.Itoa(i),
			At:        base.Add(time.Duration(i) * 20 * time.Minute),
			Kind:      "short",
			Seq:       i,
			Delivered: []string{"desktop"},
		}
		if i == 3 {
			r.Kind = "long"
			r.Failures = []Failure{{Channel: "email", Reason: "timeout"}}
		}
		if err := st.AppendBreak(ctx, r); err != nil {
			t.Fatalf("AppendBreak err=%v", err)
		}
	}

	got, err := st.RecentBreaks(ctx, 3)
	if err != nil {
		t.Fatalf("RecentBreaks err=%v", err)
	}
	if len(got) != 3 || got[0].ID != "b4" || got[2].ID != "b2" {
		t.Fatalf("RecentBreaks order=%+v", got)
	}
	if got[1].Kind != "long" || len(got[1].Failures) != 1 || got[1].Failures[0].Reason != "timeout" {
		t.Fatalf("failures not persisted: %+v", got[1])
	}
	if len(got[0].Delivered) != 1 || got[0].Delivered[0] != "desktop" {
		t.Fatalf("delivered=%v", got[0].Delivered)
	}
	if !got[0].At.Equal(base.Add(80 * time.Minute)) {
		t.Fatalf("at=%v", got[0].At)
	}

	if err := st.AppendAudit(ctx, AuditEntry{Source: "console", Action: "pause", OK: true}); err != nil {
		t.Fatalf("AppendAudit err=%v", err)
	}
}

func TestFileStoreCompacts(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "history.jsonl")
	st, err := Open(Config{Driver: "file", Path: path, MaxBreaks: 3}, logx.Nop())
	if err != nil {
		t.Fatalf("Open err=%v", err)
	}
	defer st.Close()

	ctx := context.Background()
	for i := 1; i <= 10; i++ {
		if err := st.AppendBreak(ctx, BreakRecord{ID: strconv.Itoa(i), Seq: i, Kind: "short"}); err != nil {
			t.Fatalf("AppendBreak err=%v", err)
		}
	}
	lines, err := countLines(filepath.Join(filepath.Dir(path), "history.breaks.jsonl"))
	if err != nil {
		t.Fatalf("countLines err=%v", err)
	}
	if lines > 6 {
		t.Fatalf("lines=%d, compaction did not run", lines)
	}
	got, _ := st.RecentBreaks(ctx, 1)
	if len(got) != 1 || got[0].ID != "10" {
		t.Fatalf("latest=%+v", got)
	}
}
