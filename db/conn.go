// Package db opens the relational store and prepares the schema
package db

import (
	"errors"
	"fmt"
	"time"
	"websync/sync-api/model"
	"websync/sync-api/pkg/security"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func New() (*gorm.DB, error) {
	var dial gorm.Dialector

	switch driver := viper.GetString("db.driver"); driver {
	case "sqlite":
		dial = sqlite.Open(viper.GetString("db.dsn"))
	case "postgres":
		dial = postgres.Open(viper.GetString("db.dsn"))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dial)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	err = db.AutoMigrate(model.User{}, model.File{}, model.FileShare{}, model.ClipboardItem{})
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	if err := seedAdmin(db); err != nil {
		return nil, fmt.Errorf("failed to seed initial admin, %w", err)
	}

	return db, nil
}

// seedAdmin creates the initial admin account when none exists. The admin
// also acts as the default owner for files the watcher discovers on disk.
func seedAdmin(db *gorm.DB) error {
	var count int64

	err := db.
		Model(model.User{}).
		Where("role = ?", model.RoleAdmin).
		Count(&count).
		Error
	if err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	hash, err := security.New().GenerateFromPassword(viper.GetString("auth.admin_password"))
	if err != nil {
		return err
	}

	id, err := security.NewID()
	if err != nil {
		return err
	}

	err = db.Create(&model.User{
		ID:           id,
		Email:        viper.GetString("auth.admin_email"),
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		StorageLimit: 100 << 30, // 100 GiB for the admin
		CreatedAt:    time.Now().UnixMilli(),
	}).Error
	if err != nil {
		return err
	}

	zap.L().Info("Initial admin account created", zap.String("email", viper.GetString("auth.admin_email")))
	return nil
}

// SystemOwner resolves the account that watcher-discovered files get
// attributed to. Configurable so operators can point orphaned discoveries
// at a dedicated service account instead of the admin.
func SystemOwner(db *gorm.DB) (string, error) {
	email := viper.GetString("storage.system_owner_email")

	q := db.Model(model.User{})
	if email != "" {
		q = q.Where("email = ?", email)
	} else {
		q = q.Where("role = ?", model.RoleAdmin)
	}

	var ids []string
	if err := q.Order("created_at").Limit(1).Pluck("id", &ids).Error; err != nil {
		return "", err
	}

	if len(ids) == 0 {
		return "", errors.New("no account available to own watcher-discovered files")
	}

	return ids[0], nil
}
