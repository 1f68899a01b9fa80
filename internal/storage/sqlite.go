package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	logx "lookaway/pkg/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS breaks (
	seq_id     INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL,
	at         TEXT NOT NULL,
	kind       TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	suppressed INTEGER NOT NULL DEFAULT 0,
	delivered  TEXT,
	failures   TEXT
);
CREATE TABLE IF NOT EXISTS audit (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	at             TEXT NOT NULL,
	source         TEXT NOT NULL,
	actor_id       INTEGER,
	actor_username TEXT,
	action         TEXT NOT NULL,
	args           TEXT,
	ok             INTEGER NOT NULL,
	err            TEXT,
	took_ms        INTEGER
);
`

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger

	maxBreaks  int
	opCount    atomic.Uint64
	pruneEvery uint64
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log, maxBreaks: cfg.MaxBreaks, pruneEvery: 500}

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendBreak(ctx context.Context, r BreakRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	failures, err := jsonOrNil(r.Failures)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO breaks(id, at, kind, seq, suppressed, delivered, failures) VALUES(?,?,?,?,?,?,?)`,
		r.ID, r.At.Format(time.RFC3339Nano), r.Kind, r.Seq, boolInt(r.Suppressed),
		nullStr(strings.Join(r.Delivered, ",")), failures,
	)
	if err == nil && s.opCount.Add(1)%s.pruneEvery == 0 {
		pctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		if perr := s.prune(pctx); perr != nil {
			s.log.Debug("history prune failed", logx.Err(perr))
		}
		cancel()
	}
	return err
}

func (s *sqliteStore) RecentBreaks(ctx context.Context, n int) ([]BreakRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, kind, seq, suppressed, delivered, failures FROM breaks ORDER BY seq_id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BreakRecord
	for rows.Next() {
		var (
			r          BreakRecord
			at         string
			suppressed int
			delivered  sql.NullString
			failures   sql.NullString
		)
		if err := rows.Scan(&r.ID, &at, &r.Kind, &r.Seq, &suppressed, &delivered, &failures); err != nil {
			return nil, err
		}
		r.At, _ = time.Parse(time.RFC3339Nano, at)
		r.Suppressed = suppressed != 0
		if delivered.Valid && delivered.String != "" {
			r.Delivered = strings.Split(delivered.String, ",")
		}
		if failures.Valid && failures.String != "" {
			if err := json.Unmarshal([]byte(failures.String), &r.Failures); err != nil {
				return nil, fmt.Errorf("break %s failures: %w", r.ID, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit(at, source, actor_id, actor_username, action, args, ok, err, took_ms)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		e.At.Format(time.RFC3339Nano), e.Source, e.ActorID, nullStr(e.ActorUsername),
		e.Action, nullStr(e.Args), boolInt(e.OK), nullStr(e.Error), e.TookMS,
	)
	return err
}

func (s *sqliteStore) prune(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM breaks WHERE seq_id <= (SELECT MAX(seq_id) FROM breaks) - ?`, s.maxBreaks)
	return err
}

func jsonOrNil(v []Failure) (any, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
