package api

import (
	"net/http"
	"os"
	"path/filepath"
	"websync/sync-api/model"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClipboardImage serves the decrypted bytes of an image item.
func (a *API) ClipboardImage(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	item := a.clipboardForRequest(c)
	if item == nil {
		return
	}

	if item.Kind != model.ClipboardImage {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Clipboard item is not an image",
			"requestID": requestID,
		})
		return
	}

	encrypted, err := os.ReadFile(filepath.Join(a.Sync.Root, clipboardImageDir, item.ImagePath))
	if err != nil {
		if os.IsNotExist(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Image data is missing",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to read encrypted image", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	plain, err := a.Box.DecryptBytes(encrypted)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to decrypt image",
			"requestID": requestID,
		})

		zap.L().Error("Failed to decrypt clipboard image", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.Data(http.StatusOK, mimetype.Detect(plain).String(), plain)
}
