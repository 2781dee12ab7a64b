package syncer

import (
	"context"
	"os"
	"time"
	"websync/sync-api/model"

	"go.uber.org/zap"
)

// Scan walks the sync root once and repairs any drift between disk and
// index: files that changed while the service was down get reindexed, and
// records whose file vanished get dropped. Every correction goes through
// the same reconcile handlers the watcher uses, so notifications and quota
// stay consistent.
func (s *Syncer) Scan() error {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(entries))

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name[0] == '.' {
			continue
		}

		seen[name] = true
		s.reconcileWrite(name)
	}

	var paths []string

	err = s.DB.
		Model(model.File{}).
		Pluck("path", &paths).
		Error
	if err != nil {
		return err
	}

	for _, p := range paths {
		if !seen[p] {
			s.reconcileRemove(p)
		}
	}

	return nil
}

// RescanEvery runs full scans on a fixed interval until ctx is cancelled.
// Catches anything the watcher missed (overflowed event queues, changes
// made while the watch was briefly broken).
func (s *Syncer) RescanEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)

	zap.L().Debug("Periodic rescan attached", zap.Duration("tick_every", interval))

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Scan(); err != nil {
					zap.L().Error("Periodic rescan failed", zap.Error(err))
				}
			}
		}
	}()
}
