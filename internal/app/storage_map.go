package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"lookaway/internal/config"
	"lookaway/internal/storage"
	logx "lookaway/pkg/logx"
)

// mapStorageConfig resolves the optional history store. A blank path puts
// the store in the data directory.
func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}

	path := strings.TrimSpace(sc.Path)
	if path == "" {
		dir, err := config.DataDir()
		if err != nil {
			return storage.Config{}, false, err
		}
		name := "history.db"
		if driver == "file" {
			name = "history.jsonl"
		}
		path = filepath.Join(dir, name)
	}
	path, err := config.ExpandPath(path)
	if err != nil {
		return storage.Config{}, false, err
	}

	switch driver {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: "sqlite", Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

// OpenHistory opens the configured history store for read-only commands.
// It returns storage.ErrDisabled when no store is configured.
func OpenHistory(cfg *config.Config, log logx.Logger) (storage.Store, error) {
	sc, enabled, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, storage.ErrDisabled
	}
	return storage.Open(sc, log)
}
