package main

import (
	"errors"
	"fmt"
	"log/slog"

	"channel-chatter/internal/config"
	"channel-chatter/internal/history"
	"channel-chatter/internal/storage"
)

func openSnapshotter(cfg *config.Config) (storage.Snapshotter, error) {
	switch cfg.StateBackend {
	case config.StateSQLite:
		return storage.OpenSQLite(cfg.StateDBPath)
	default:
		return storage.NewJSONSnapshotter(cfg.StateFilePath), nil
	}
}

// restoreState fills store from snap. A malformed snapshot aborts when strict
// is set and is otherwise replaced by an empty store; other load errors
// always abort.
func restoreState(store *history.Store, snap storage.Snapshotter, strict bool, logger *slog.Logger) error {
	data, err := snap.Load()
	if err != nil {
		if strict || !errors.Is(err, storage.ErrMalformedSnapshot) {
			return fmt.Errorf("load conversations: %w", err)
		}
		logger.Warn("malformed conversation snapshot, starting empty", "err", err)
		return nil
	}
	store.Load(data)
	logger.Info("conversations restored", "count", len(data))
	return nil
}
