package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

// OrphanSweeper deletes content-directory files that no image record points
// to. Disk and database writes are not transactional, so a crash between the
// two legs of an upload, or a failed file removal during delete, can leave
// strays behind.
type OrphanSweeper struct {
	db    *PostgreSQLDatabase
	store *DiskStorage
	grace time.Duration
}

func NewOrphanSweeper(db *PostgreSQLDatabase, store *DiskStorage, grace time.Duration) *OrphanSweeper {
	return &OrphanSweeper{
		db:    db,
		store: store,
		grace: grace,
	}
}

func (s *OrphanSweeper) Sweep(ctx context.Context) error {
	keys, err := s.db.ListStorageKeys(ctx)
	if err != nil {
		return fmt.Errorf("listing storage keys: %w", err)
	}

	files, err := s.store.List()
	if err != nil {
		return fmt.Errorf("listing stored files: %w", err)
	}

	var removed int
	for _, f := range files {
		if _, ok := keys[f.Key]; ok {
			continue
		}

		// The grace period keeps in-flight uploads alive: their file is
		// on disk before the record exists.
		if time.Since(f.ModTime) < s.grace {
			continue
		}

		if err := s.store.Remove(f.Key); err != nil {
			slog.Error("Removing orphan file", "key", f.Key, "error", err)
			continue
		}

		slog.Debug("Removed orphan file", "key", f.Key)
		removed++
	}

	if removed > 0 {
		slog.Info("Orphan sweep finished", "removed", removed)
	}

	return nil
}

// Run is the cron entrypoint.
func (s *OrphanSweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.Sweep(ctx); err != nil {
		slog.Error("Orphan sweep failed", "error", err)
	}
}
