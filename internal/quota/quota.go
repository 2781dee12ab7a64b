// Package quota tracks per-user storage budgets. Reserve gates new writes,
// Commit applies the signed byte delta that belongs to an index mutation
// and must run inside the same transaction as that mutation.
package quota

import (
	"errors"
	"websync/sync-api/model"

	"gorm.io/gorm"
)

var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Reserve checks that the user can take on n more bytes. It doesn't hold
// anything; the authoritative check is running it again inside the
// transaction that commits the file.
func Reserve(db *gorm.DB, userID string, n int64) error {
	var user model.User

	err := db.
		Select("storage_limit", "storage_used").
		Where("id = ?", userID).
		First(&user).
		Error
	if err != nil {
		return err
	}

	if user.StorageUsed+n > user.StorageLimit {
		return ErrQuotaExceeded
	}

	return nil
}

// Commit applies delta to the user's used storage, clamped at zero on the
// low side as insurance against drift between index and ledger.
func Commit(db *gorm.DB, userID string, delta int64) error {
	return db.
		Model(model.User{}).
		Where("id = ?", userID).
		Update("storage_used", gorm.Expr(
			"CASE WHEN storage_used + ? < 0 THEN 0 ELSE storage_used + ? END", delta, delta,
		)).
		Error
}
