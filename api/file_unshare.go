package api

import (
	"errors"
	"net/http"
	"websync/sync-api/internal/access"
	"websync/sync-api/internal/share"
	"websync/sync-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) FileUnshare(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("user").(*model.User)

	rec := a.fileForRequest(c)
	if rec == nil {
		return
	}

	if !access.Can(user, rec, access.ActionShare, false) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "You don't have permission to unshare this file",
			"requestID": requestID,
		})
		return
	}

	var data shareBody
	if err := c.ShouldBind(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	switch data.Type {
	case "public":
		if err := share.SetPublic(a.DB, rec.ID, false); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to unset file public", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "File is no longer public"})

	case "user":
		target := a.userByEmail(c, data.UserEmail)
		if target == nil {
			return
		}

		err := share.Revoke(a.DB, rec.ID, target.ID)
		if err != nil {
			if errors.Is(err, share.ErrNotShared) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
					"error":     "File is not shared with this user",
					"requestID": requestID,
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to revoke share", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Share revoked"})

	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid share type",
			"requestID": requestID,
		})
	}
}
