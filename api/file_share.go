package api

import (
	"errors"
	"net/http"
	"websync/sync-api/internal/access"
	"websync/sync-api/internal/share"
	"websync/sync-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type shareBody struct {
	// "public" toggles the public flag, "user" grants a specific account
	Type      string `json:"type"`
	UserEmail string `json:"user_email"`
}

func (a *API) FileShare(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("user").(*model.User)

	rec := a.fileForRequest(c)
	if rec == nil {
		return
	}

	if !access.Can(user, rec, access.ActionShare, false) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "You don't have permission to share this file",
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
		if err := share.SetPublic(a.DB, rec.ID, true); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to set file public", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "File is now public"})

	case "user":
		target := a.userByEmail(c, data.UserEmail)
		if target == nil {
			return
		}

		err := share.Grant(a.DB, rec.ID, target.ID, user.ID)
		if err != nil {
			if errors.Is(err, share.ErrAlreadyShared) {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{
					"error":     "File is already shared with this user",
					"requestID": requestID,
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to grant share", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "File shared"})

	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid share type",
			"requestID": requestID,
		})
	}
}

// userByEmail resolves a share target, or writes the error response and
// returns nil.
func (a *API) userByEmail(c *gin.Context, email string) *model.User {
	requestID := c.MustGet("requestID").(string)

	if email == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Please specify a user to share with",
			"requestID": requestID,
		})
		return nil
	}

	var target model.User

	err := a.DB.Where("email = ?", email).First(&target).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "User not found",
				"requestID": requestID,
			})
			return nil
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to look up share target", zap.Error(err), zap.String("requestID", requestID))
		return nil
	}

	return &target
}
