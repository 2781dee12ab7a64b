package api

import (
	"errors"
	"net/http"
	"strings"
	"websync/sync-api/internal/quota"
	"websync/sync-api/internal/syncer"
	"websync/sync-api/model"
	"websync/sync-api/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) FileUpload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("user").(*model.User)

	if !strings.HasPrefix(c.Request.Header.Get("Content-Type"), "multipart/form-data") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request",
			"requestID": requestID,
		})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to parse multipart form", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No file provided",
			"requestID": requestID,
		})
		return
	}

	fh := files[0]

	if code, err := validators.FileValidator(fh); err != nil {
		c.AbortWithStatusJSON(code, gin.H{
			"error":     err.Error(),
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

		zap.L().Error("Failed to open uploaded file", zap.Error(err), zap.String("requestID", requestID))
		return
	}
	defer f.Close()

	rec, err := a.Sync.CreateFile(user, fh.Filename, f, fh.Size)
	if err != nil {
		switch {
		case errors.Is(err, quota.ErrQuotaExceeded):
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":     "Not enough storage space",
				"requestID": requestID,
			})
		case errors.Is(err, syncer.ErrPathTaken):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error":     "A file with this name already exists",
				"requestID": requestID,
			})
		case errors.Is(err, syncer.ErrInvalidName):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid file name",
				"requestID": requestID,
			})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to store uploaded file", zap.Error(err), zap.String("requestID", requestID))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File uploaded",
		"file":    rec,
	})
}
