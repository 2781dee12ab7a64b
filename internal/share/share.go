// Package share is the ledger of per-user read grants on files
package share

import (
	"errors"
	"time"
	"websync/sync-api/model"

	"gorm.io/gorm"
)

var (
	ErrAlreadyShared = errors.New("file is already shared with this user")
	ErrNotShared     = errors.New("file is not shared with this user")
)

func Grant(db *gorm.DB, fileID uint, userID, createdBy string) error {
	var count int64

	err := db.
		Model(model.FileShare{}).
		Where("file_id = ? AND user_id = ?", fileID, userID).
		Count(&count).
		Error
	if err != nil {
		return err
	}

	if count > 0 {
		return ErrAlreadyShared
	}

	return db.Create(&model.FileShare{
		FileID:    fileID,
		UserID:    userID,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UnixMilli(),
	}).Error
}

func Revoke(db *gorm.DB, fileID uint, userID string) error {
	res := db.
		Where("file_id = ? AND user_id = ?", fileID, userID).
		Delete(model.FileShare{})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrNotShared
	}

	return nil
}

func SetPublic(db *gorm.DB, fileID uint, public bool) error {
	return db.
		Model(model.File{}).
		Where("id = ?", fileID).
		Update("public", public).
		Error
}

func HasAccess(db *gorm.DB, fileID uint, userID string) (bool, error) {
	var count int64

	err := db.
		Model(model.FileShare{}).
		Where("file_id = ? AND user_id = ?", fileID, userID).
		Count(&count).
		Error

	return count > 0, err
}

// CascadeFile removes every grant on a file. Runs in the same transaction
// as the file record's deletion.
func CascadeFile(db *gorm.DB, fileID uint) error {
	return db.
		Where("file_id = ?", fileID).
		Delete(model.FileShare{}).
		Error
}

// CascadeUser removes every grant where the user is grantee or granter,
// for when the account itself is deleted.
func CascadeUser(db *gorm.DB, userID string) error {
	return db.
		Where("user_id = ? OR created_by = ?", userID, userID).
		Delete(model.FileShare{}).
		Error
}
