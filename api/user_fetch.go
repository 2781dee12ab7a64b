package api

import (
	"net/http"
	"websync/sync-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserFetch lists every account with its quota usage. Admin/manager only.
func (a *API) UserFetch(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	requester := c.MustGet("user").(*model.User)

	if requester.Role != model.RoleAdmin && requester.Role != model.RoleManager {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "You don't have permission to list users",
			"requestID": requestID,
		})
		return
	}

	var users []model.User

	err := a.DB.Order("created_at").Find(&users).Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list users", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, users)
}
