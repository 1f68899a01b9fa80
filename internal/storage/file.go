package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "lookaway/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.breaks.jsonl (append-only JSON Lines)
//   - <prefix>.audit.jsonl  (append-only JSON Lines)
//
// The breaks file is compacted to the newest MaxBreaks lines once it grows
// past twice that.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	breaksPath string
	breaksFile *os.File
	breakLines int
	maxBreaks  int

	auditFile *os.File
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	breaksPath := prefix + ".breaks.jsonl"
	lines, err := countLines(breaksPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	bf, err := os.OpenFile(breaksPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	af, err := os.OpenFile(prefix+".audit.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		_ = bf.Close()
		return nil, err
	}

	return &fileStore{
		log:        log,
		breaksPath: breaksPath,
		breaksFile: bf,
		breakLines: lines,
		maxBreaks:  cfg.MaxBreaks,
		auditFile:  af,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err1, err2 error
	if s.breaksFile != nil {
		err1 = s.breaksFile.Close()
		s.breaksFile = nil
	}
	if s.auditFile != nil {
		err2 = s.auditFile.Close()
		s.auditFile = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

func (s *fileStore) AppendBreak(ctx context.Context, r BreakRecord) error {
	_ = ctx
	if r.At.IsZero() {
		r.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.breaksFile == nil {
		return errors.New("history file closed")
	}
	if err := json.NewEncoder(s.breaksFile).Encode(r); err != nil {
		return err
	}
	s.breakLines++
	if s.maxBreaks > 0 && s.breakLines > 2*s.maxBreaks {
		if err := s.compactLocked(); err != nil {
			s.log.Debug("history compact failed", logx.Err(err))
		}
	}
	return nil
}

func (s *fileStore) RecentBreaks(ctx context.Context, n int) ([]BreakRecord, error) {
	_ = ctx
	if n <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tail, err := readTail(s.breaksPath, n)
	if err != nil {
		return nil, err
	}
	out := make([]BreakRecord, 0, len(tail))
	for i := len(tail) - 1; i >= 0; i-- {
		var r BreakRecord
		if err := json.Unmarshal(tail[i], &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *fileStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	_ = ctx
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return errors.New("audit file closed")
	}
	return json.NewEncoder(s.auditFile).Encode(e)
}

func (s *fileStore) compactLocked() error {
	keep, err := readTail(s.breaksPath, s.maxBreaks)
	if err != nil {
		return err
	}
	tmp := s.breaksPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, line := range keep {
		_, _ = w.Write(line)
		_ = w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.breaksPath); err != nil {
		return err
	}
	_ = s.breaksFile.Close()
	s.breaksFile, err = os.OpenFile(s.breaksPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	s.breakLines = len(keep)
	return err
}

// readTail returns the last n non-empty lines of path, oldest first.
func readTail(path string, n int) ([][]byte, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([][]byte, 0, n)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		cp := append([]byte(nil), line...)
		if len(ring) == n {
			copy(ring, ring[1:])
			ring[n-1] = cp
		} else {
			ring = append(ring, cp)
		}
	}
	return ring, sc.Err()
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) > 0 {
			n++
		}
	}
	return n, sc.Err()
}
