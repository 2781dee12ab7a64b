// Package syncer is the single choke point for file index mutations. The
// API handlers and the filesystem watcher both funnel their changes through
// it, so every logical change runs under the same per-path lock, commits in
// one transaction and emits exactly one notification - no matter which side
// observed it first.
package syncer

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"websync/sync-api/internal/index"
	"websync/sync-api/internal/notify"
	"websync/sync-api/internal/quota"
	"websync/sync-api/internal/share"
	"websync/sync-api/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrPathTaken   = errors.New("a file with this name already exists")
	ErrInvalidName = errors.New("invalid file name")
)

const lockStripes = 32

type Syncer struct {
	DB  *gorm.DB
	Hub *notify.Hub

	// Root is the watched directory. Paths in the index are relative to it.
	Root string

	// SystemOwner is the account watcher-discovered files are attributed
	// to, since filesystem events carry no authenticated principal.
	SystemOwner string

	locks [lockStripes]sync.Mutex
}

func New(db *gorm.DB, hub *notify.Hub, root, systemOwner string) (*Syncer, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sync root, %w", err)
	}

	return &Syncer{
		DB:          db,
		Hub:         hub,
		Root:        root,
		SystemOwner: systemOwner,
	}, nil
}

// lockFor returns the stripe lock serializing all mutations of one path.
// Holding it across the read-compare-write keeps an API delete and a
// watcher-observed modify on the same path from interleaving.
func (s *Syncer) lockFor(path string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(path))
	return &s.locks[h.Sum32()%lockStripes]
}

// CleanName reduces a client-supplied file name to a safe flat name inside
// the sync root
func CleanName(name string) (string, error) {
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == ".." || name == string(os.PathSeparator) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}

	return name, nil
}

// CreateFile writes an uploaded file into the sync root and indexes it in
// one logical step. The physical write happens inside the path lock, so the
// watcher's create event for it is forced to run after the record exists
// and dedupes into a no-op. A failed index/quota transaction rolls the
// physical write back.
func (s *Syncer) CreateFile(owner *model.User, name string, src io.Reader, declaredSize int64) (*model.File, error) {
	relPath, err := CleanName(name)
	if err != nil {
		return nil, err
	}

	mu := s.lockFor(relPath)
	mu.Lock()
	defer mu.Unlock()

	// Cheap precheck before touching the disk. The binding check runs on
	// the actual written size inside the transaction.
	if err := quota.Reserve(s.DB, owner.ID, declaredSize); err != nil {
		return nil, err
	}

	// Never clobber an already indexed path - it may belong to someone else
	if _, err := index.Lookup(s.DB, relPath); err == nil {
		return nil, ErrPathTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	dst := filepath.Join(s.Root, relPath)

	// Dot-prefixed temp name, so the watcher never sees a half-written file
	f, err := os.CreateTemp(s.Root, ".upload-*")
	if err != nil {
		return nil, err
	}
	tmp := f.Name()

	written, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return nil, err
	}

	hash, err := index.DigestFile(tmp)
	if err != nil {
		os.Remove(tmp)
		return nil, err
	}

	// An unindexed file may already sit at the destination; renaming over it
	// would silently destroy someone's data
	if _, err := os.Stat(dst); err == nil {
		os.Remove(tmp)
		return nil, ErrPathTaken
	} else if !errors.Is(err, os.ErrNotExist) {
		os.Remove(tmp)
		return nil, err
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return nil, err
	}

	st, err := os.Stat(dst)
	if err != nil {
		os.Remove(dst)
		return nil, err
	}

	rec := &model.File{
		Path:         relPath,
		Hash:         hash,
		Size:         written,
		LastModified: st.ModTime().UnixMilli(),
		OwnerID:      owner.ID,
		Provenance:   model.ProvenanceAPI,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := quota.Reserve(tx, owner.ID, written); err != nil {
			return err
		}

		if _, err := index.Upsert(tx, rec); err != nil {
			return err
		}

		return quota.Commit(tx, owner.ID, written)
	})
	if err != nil {
		// The index knows nothing about this file, so the bytes must go too
		os.Remove(dst)
		return nil, err
	}

	s.Hub.Broadcast(notify.EventFilesUpdated, "new file uploaded")
	return rec, nil
}

// DeleteFile removes a file record, reverses the owner's quota, cascades
// its share grants and unlinks the physical file. The watcher's remove
// event for the unlink finds no record and stays silent.
func (s *Syncer) DeleteFile(relPath string) error {
	mu := s.lockFor(relPath)
	mu.Lock()
	defer mu.Unlock()

	var removed *model.File

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		rec, err := index.Remove(tx, relPath)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := quota.Commit(tx, rec.OwnerID, -rec.Size); err != nil {
			return err
		}

		if err := share.CascadeFile(tx, rec.ID); err != nil {
			return err
		}

		removed = rec
		return nil
	})
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.Root, removed.Path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		// Index and disk now disagree; the next scan repairs it
		zap.L().Warn("Failed to remove file from disk", zap.String("path", removed.Path), zap.Error(err))
	}

	s.Hub.Broadcast(notify.EventFilesUpdated, "file deleted")
	return nil
}

// errUnindexed short-circuits watcher transactions for paths the index
// doesn't know, keeping them notification-free.
var errUnindexed = errors.New("path not indexed")

// reconcileWrite handles an observed create or modify. Both collapse into
// the same decision: absent record means create (attributed to the system
// owner), matching size+mtime means spurious event, anything else is a
// content update that preserves the original owner.
func (s *Syncer) reconcileWrite(relPath string) {
	mu := s.lockFor(relPath)
	mu.Lock()
	defer mu.Unlock()

	abs := filepath.Join(s.Root, relPath)

	st, err := os.Stat(abs)
	if err != nil || st.IsDir() {
		// Vanished before we got to it; the remove event will follow
		return
	}

	existing, err := index.Lookup(s.DB, relPath)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		zap.L().Error("Failed to look up file record", zap.String("path", relPath), zap.Error(err))
		return
	}
	if err != nil {
		existing = nil
	}

	if existing != nil && existing.Size == st.Size() && existing.LastModified == st.ModTime().UnixMilli() {
		// Metadata-only touch or an event for a change already indexed
		// through the API path. Nothing really changed.
		return
	}

	hash, err := index.DigestFile(abs)
	if err != nil {
		zap.L().Debug("File unreadable during reconcile, skipping", zap.String("path", relPath), zap.Error(err))
		return
	}

	rec := &model.File{
		Path:         relPath,
		Hash:         hash,
		Size:         st.Size(),
		LastModified: st.ModTime().UnixMilli(),
		OwnerID:      s.SystemOwner,
		Provenance:   model.ProvenanceWatcher,
	}

	var created bool

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = index.Upsert(tx, rec)
		if err != nil {
			return err
		}

		delta := rec.Size
		if !created {
			delta = rec.Size - existing.Size
		}

		// Upsert patched rec to the preserved owner, so the delta lands on
		// whoever actually owns the file
		return quota.Commit(tx, rec.OwnerID, delta)
	})
	if err != nil {
		zap.L().Error("Failed to reconcile file change", zap.String("path", relPath), zap.Error(err))
		return
	}

	if created {
		s.Hub.Broadcast(notify.EventFilesUpdated, "new file added")
	} else {
		s.Hub.Broadcast(notify.EventFilesUpdated, "file updated")
	}
}

// reconcileRemove handles an observed delete. Unindexed paths are a no-op:
// either the API already deleted the record or the file was never indexed.
func (s *Syncer) reconcileRemove(relPath string) {
	mu := s.lockFor(relPath)
	mu.Lock()
	defer mu.Unlock()

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		rec, err := index.Remove(tx, relPath)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errUnindexed
		}
		if err != nil {
			return err
		}

		if err := quota.Commit(tx, rec.OwnerID, -rec.Size); err != nil {
			return err
		}

		return share.CascadeFile(tx, rec.ID)
	})
	if errors.Is(err, errUnindexed) {
		return
	}
	if err != nil {
		zap.L().Error("Failed to reconcile file removal", zap.String("path", relPath), zap.Error(err))
		return
	}

	s.Hub.Broadcast(notify.EventFilesUpdated, "file removed")
}
