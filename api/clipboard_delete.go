package api

import (
	"net/http"
	"os"
	"path/filepath"
	"websync/sync-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) ClipboardDelete(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	item := a.clipboardForRequest(c)
	if item == nil {
		return
	}

	if err := a.DB.Delete(&model.ClipboardItem{}, item.ID).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete clipboard item", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if item.Kind == model.ClipboardImage && item.ImagePath != "" {
		path := filepath.Join(a.Sync.Root, clipboardImageDir, item.ImagePath)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			zap.L().Warn("Failed to remove encrypted image", zap.Error(err), zap.String("path", path))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Clipboard item deleted",
	})
}
