package api

import (
	"net/http"
	"os"
	"path/filepath"
	"websync/sync-api/internal/share"
	"websync/sync-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserDelete removes an account and everything it owns: files (through the
// syncer so quota, shares and notifications stay consistent), clipboard
// items with their sidecars, and share grants in both directions.
func (a *API) UserDelete(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	requester := c.MustGet("user").(*model.User)

	if requester.Role != model.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "Only admins can delete users",
			"requestID": requestID,
		})
		return
	}

	userID := c.Param("id")

	var target model.User

	err := a.DB.Where("id = ?", userID).First(&target).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "User not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to look up user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if target.Role == model.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "Admin accounts can't be deleted",
			"requestID": requestID,
		})
		return
	}

	// Every owned file is a logical delete of its own: record, quota,
	// shares, bytes and one notification each
	var paths []string

	err = a.DB.
		Model(model.File{}).
		Where("owner_id = ?", target.ID).
		Pluck("path", &paths).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list user files", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	for _, p := range paths {
		if err := a.Sync.DeleteFile(p); err != nil {
			zap.L().Error("Failed to delete user file", zap.String("path", p), zap.Error(err), zap.String("requestID", requestID))
		}
	}

	var items []model.ClipboardItem

	err = a.DB.Where("owner_id = ?", target.ID).Find(&items).Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list clipboard items", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	for _, item := range items {
		if item.Kind == model.ClipboardImage && item.ImagePath != "" {
			p := filepath.Join(a.Sync.Root, clipboardImageDir, item.ImagePath)
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				zap.L().Warn("Failed to remove clipboard sidecar", zap.String("path", p), zap.Error(err))
			}
		}
	}

	err = a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", target.ID).Delete(model.ClipboardItem{}).Error; err != nil {
			return err
		}

		if err := share.CascadeUser(tx, target.ID); err != nil {
			return err
		}

		return tx.Delete(&model.User{}, "id = ?", target.ID).Error
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted",
	})
}
