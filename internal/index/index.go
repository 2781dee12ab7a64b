// Package index is the authoritative path -> metadata mapping for files in
// the sync root. All functions operate on the gorm handle they're given so
// callers control the transaction boundary.
package index

import (
	"errors"
	"time"
	"websync/sync-api/model"

	"gorm.io/gorm"
)

// Upsert inserts or refreshes the record for rec.Path and reports whether
// this was a create. On update only the content fields (hash, size, mtime)
// change: ownership, visibility and provenance are fixed at create time, so
// a watcher-driven update can never reassign a file. rec is patched to the
// stored state either way.
func Upsert(db *gorm.DB, rec *model.File) (created bool, err error) {
	var existing model.File

	err = db.Where("path = ?", rec.Path).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec.CreatedAt = time.Now().UnixMilli()

		if err := db.Create(rec).Error; err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	err = db.
		Model(model.File{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{
			"hash":          rec.Hash,
			"size":          rec.Size,
			"last_modified": rec.LastModified,
		}).
		Error
	if err != nil {
		return false, err
	}

	rec.ID = existing.ID
	rec.OwnerID = existing.OwnerID
	rec.Public = existing.Public
	rec.Provenance = existing.Provenance
	rec.CreatedAt = existing.CreatedAt
	return false, nil
}

// Remove deletes the record for path and returns it so callers can reverse
// quota and cascade share grants. Passes through gorm.ErrRecordNotFound
// when the path isn't indexed.
func Remove(db *gorm.DB, path string) (*model.File, error) {
	var rec model.File

	if err := db.Where("path = ?", path).First(&rec).Error; err != nil {
		return nil, err
	}

	if err := db.Delete(&model.File{}, rec.ID).Error; err != nil {
		return nil, err
	}

	return &rec, nil
}

func Lookup(db *gorm.DB, path string) (*model.File, error) {
	var rec model.File

	if err := db.Where("path = ?", path).First(&rec).Error; err != nil {
		return nil, err
	}

	return &rec, nil
}

func LookupID(db *gorm.DB, id uint) (*model.File, error) {
	var rec model.File

	if err := db.First(&rec, id).Error; err != nil {
		return nil, err
	}

	return &rec, nil
}

// ListVisibleTo returns the union of files the user owns, files shared with
// them and public files. Admins see everything.
func ListVisibleTo(db *gorm.DB, user *model.User) ([]model.File, error) {
	var files []model.File

	if user.Role == model.RoleAdmin {
		err := db.Order("path").Find(&files).Error
		return files, err
	}

	shared := db.
		Session(&gorm.Session{NewDB: true}).
		Model(model.FileShare{}).
		Select("file_id").
		Where("user_id = ?", user.ID)

	err := db.
		Where("owner_id = ?", user.ID).
		Or("public = ?", true).
		Or("id IN (?)", shared).
		Order("path").
		Find(&files).
		Error

	return files, err
}
