package storage

import (
	"context"
	"errors"
	"strings"

	logx "lookaway/pkg/logx"
)

// Store is the persistence API used by the app and the command router.
type Store interface {
	AppendBreak(ctx context.Context, r BreakRecord) error
	// RecentBreaks returns up to n records, newest first.
	RecentBreaks(ctx context.Context, n int) ([]BreakRecord, error)
	AppendAudit(ctx context.Context, e AuditEntry) error
	Close() error
}

const defaultMaxBreaks = 10000

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.MaxBreaks <= 0 {
		cfg.MaxBreaks = defaultMaxBreaks
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
