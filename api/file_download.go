package api

import (
	"net/http"
	"path/filepath"
	"strconv"
	"websync/sync-api/internal/access"
	"websync/sync-api/internal/index"
	"websync/sync-api/internal/share"
	"websync/sync-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fileForRequest resolves the :id param to a file record, or writes the
// appropriate error response and returns nil.
func (a *API) fileForRequest(c *gin.Context) *model.File {
	requestID := c.MustGet("requestID").(string)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid file ID",
			"requestID": requestID,
		})
		return nil
	}

	rec, err := index.LookupID(a.DB, uint(id))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "File not found",
				"requestID": requestID,
			})
			return nil
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to look up file", zap.Error(err), zap.String("requestID", requestID))
		return nil
	}

	return rec
}

func (a *API) FileDownload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("user").(*model.User)

	rec := a.fileForRequest(c)
	if rec == nil {
		return
	}

	shared, err := share.HasAccess(a.DB, rec.ID, user.ID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to check share grants", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if !access.Can(user, rec, access.ActionRead, shared) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "You don't have permission to download this file",
			"requestID": requestID,
		})
		return
	}

	c.FileAttachment(filepath.Join(a.Sync.Root, rec.Path), rec.Path)
}
