package api

import (
	"errors"
	"net/http"
	"websync/sync-api/internal/access"
	"websync/sync-api/internal/syncer"
	"websync/sync-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) FileDelete(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("user").(*model.User)

	rec := a.fileForRequest(c)
	if rec == nil {
		return
	}

	if !access.Can(user, rec, access.ActionDelete, false) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "You don't have permission to delete this file",
			"requestID": requestID,
		})
		return
	}

	if err := a.Sync.DeleteFile(rec.Path); err != nil {
		if errors.Is(err, syncer.ErrNotFound) {
			// Raced with the watcher or another delete
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "File not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete file", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File deleted",
	})
}
