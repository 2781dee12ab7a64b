// Package model defines database models
package model

import "time"

// Role is the closed set of user roles. Anything else is rejected at
// every decision point.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

type User struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         Role   `gorm:"not null;default:user" json:"role"`
	CreatedBy    string `json:"-"`
	CreatedAt    int64  `gorm:"not null" json:"created_at"`

	LoginAttempts    int        `json:"-"`
	LastLoginAttempt *time.Time `json:"-"`

	// StorageUsed must always equal the summed size of this user's indexed
	// files. It is only ever mutated through quota.Commit inside the same
	// transaction as the index change it belongs to.
	StorageLimit int64 `gorm:"not null" json:"storage_limit"`
	StorageUsed  int64 `gorm:"not null;default:0" json:"storage_used"`

	Files          []File          `gorm:"foreignKey:OwnerID" json:"-"`
	ClipboardItems []ClipboardItem `gorm:"foreignKey:OwnerID" json:"-"`
}
