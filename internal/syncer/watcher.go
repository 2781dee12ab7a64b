package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Run watches the sync root and reconciles every observed mutation against
// the index. It blocks until ctx is cancelled; the event in flight finishes
// before it returns. Individual event failures are logged and skipped - the
// watcher never dies because one file was unreadable.
func (s *Syncer) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher, %w", err)
	}
	defer w.Close()

	if err := w.Add(s.Root); err != nil {
		return fmt.Errorf("failed to watch %s, %w", s.Root, err)
	}

	zap.L().Info("Watcher started", zap.String("dir", s.Root))

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ev)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			zap.L().Error("Watcher error", zap.Error(err))
		}
	}
}

// handleEvent maps a raw fsnotify event onto the reconcile state machine.
// Only direct children of the root are synced; subdirectories (like the
// clipboard sidecar store) are invisible to the index.
func (s *Syncer) handleEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(s.Root, ev.Name)
	if err != nil || rel == "." || strings.Contains(rel, string(filepath.Separator)) {
		return
	}

	if strings.HasPrefix(rel, ".") {
		return // editors and transfers love dotfile droppings
	}

	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		s.reconcileWrite(rel)
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		s.reconcileRemove(rel)
	}
}
