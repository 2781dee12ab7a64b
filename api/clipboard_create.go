package api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"websync/sync-api/model"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

// clipboardImageDir lives inside the sync root but the watcher only syncs
// direct children, so encrypted sidecars never hit the file index.
const clipboardImageDir = "clipboard_images"

type clipboardBody struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

// ClipboardCreate stores a new clipboard item. Multipart requests carry an
// image (encrypted into a sidecar file), JSON requests carry text or code
// (encrypted into the content column).
func (a *API) ClipboardCreate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("user").(*model.User)

	if strings.HasPrefix(c.Request.Header.Get("Content-Type"), "multipart/form-data") {
		a.clipboardCreateImage(c, user)
		return
	}

	var data clipboardBody
	if err := c.ShouldBind(&data); err != nil || data.Content == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Missing content",
			"requestID": requestID,
		})
		return
	}

	if data.Type == "" {
		data.Type = model.ClipboardText
	}

	if data.Type != model.ClipboardText && data.Type != model.ClipboardCode {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid clipboard type",
			"requestID": requestID,
		})
		return
	}

	encrypted, err := a.Box.Encrypt(data.Content)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to encrypt clipboard text", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	item := model.ClipboardItem{
		Kind:      data.Type,
		Content:   encrypted,
		OwnerID:   user.ID,
		CreatedAt: time.Now().UnixMilli(),
	}

	if err := a.DB.Create(&item).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to save clipboard item", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         item.ID,
		"content":    data.Content,
		"type":       item.Kind,
		"created_at": item.CreatedAt,
	})
}

func (a *API) clipboardCreateImage(c *gin.Context, user *model.User) {
	requestID := c.MustGet("requestID").(string)

	fh, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No file provided",
			"requestID": requestID,
		})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to open clipboard upload", zap.Error(err), zap.String("requestID", requestID))
		return
	}
	defer f.Close()

	plain, err := io.ReadAll(f)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to read clipboard upload", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	// Sniff the actual bytes instead of trusting the header
	if !strings.HasPrefix(mimetype.Detect(plain).String(), "image/") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Only image files are supported",
			"requestID": requestID,
		})
		return
	}

	encrypted, err := a.Box.EncryptBytes(plain)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to encrypt clipboard image", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	dir := filepath.Join(a.Sync.Root, clipboardImageDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create clipboard image dir", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	suffix, _ := gonanoid.New(8)
	name := time.Now().UTC().Format("20060102150405") + "_" + suffix + ".enc"

	if err := os.WriteFile(filepath.Join(dir, name), encrypted, 0o644); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to write encrypted image", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	item := model.ClipboardItem{
		Kind:      model.ClipboardImage,
		ImagePath: name,
		OwnerID:   user.ID,
		CreatedAt: time.Now().UnixMilli(),
	}

	if err := a.DB.Create(&item).Error; err != nil {
		os.Remove(filepath.Join(dir, name))

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to save clipboard item", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         item.ID,
		"type":       item.Kind,
		"image_path": item.ImagePath,
		"created_at": item.CreatedAt,
	})
}
