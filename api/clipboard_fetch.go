package api

import (
	"errors"
	"net/http"
	"strconv"
	"websync/sync-api/model"
	"websync/sync-api/pkg/cryptobox"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type clipboardEntry struct {
	ID        uint   `json:"id"`
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	ImagePath string `json:"image_path,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// decryptEntry converts a stored item to its response form. A corrupt or
// foreign-key ciphertext turns into a placeholder instead of failing the
// whole listing.
func (a *API) decryptEntry(item *model.ClipboardItem) clipboardEntry {
	out := clipboardEntry{
		ID:        item.ID,
		Type:      item.Kind,
		ImagePath: item.ImagePath,
		CreatedAt: item.CreatedAt,
	}

	if item.Kind == model.ClipboardImage {
		return out
	}

	plain, err := a.Box.Decrypt(item.Content)
	if err != nil {
		if errors.Is(err, cryptobox.ErrDecrypt) {
			out.Content = "decryption failed"
			return out
		}

		zap.L().Error("Failed to decrypt clipboard item", zap.Error(err), zap.Uint("id", item.ID))
		out.Content = "decryption failed"
		return out
	}

	out.Content = plain
	return out
}

func (a *API) ClipboardList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("user").(*model.User)

	var items []model.ClipboardItem

	err := a.DB.
		Where("owner_id = ?", user.ID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list clipboard items", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	entries := make([]clipboardEntry, 0, len(items))
	for i := range items {
		entries = append(entries, a.decryptEntry(&items[i]))
	}

	c.JSON(http.StatusOK, gin.H{"items": entries})
}

// clipboardForRequest resolves the :id param to an item owned by the caller,
// or writes the error response and returns nil.
func (a *API) clipboardForRequest(c *gin.Context) *model.ClipboardItem {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("user").(*model.User)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid clipboard ID",
			"requestID": requestID,
		})
		return nil
	}

	var item model.ClipboardItem

	err = a.DB.Where("id = ? AND owner_id = ?", id, user.ID).First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Clipboard item not found",
				"requestID": requestID,
			})
			return nil
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to look up clipboard item", zap.Error(err), zap.String("requestID", requestID))
		return nil
	}

	return &item
}

func (a *API) ClipboardFetch(c *gin.Context) {
	item := a.clipboardForRequest(c)
	if item == nil {
		return
	}

	c.JSON(http.StatusOK, a.decryptEntry(item))
}
