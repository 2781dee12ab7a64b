package api

import (
	"net/http"
	"time"
	"websync/sync-api/model"
	"websync/sync-api/pkg/security"
	"websync/sync-api/validators"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type registerBody struct {
	Email        string     `json:"email"`
	Password     string     `json:"password"`
	Role         model.Role `json:"role"`
	StorageLimit int64      `json:"storage_limit"`
}

// UserRegister creates a new account. Self-service signup doesn't exist:
// only admins and managers may create users.
func (a *API) UserRegister(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	requester := c.MustGet("user").(*model.User)

	if requester.Role != model.RoleAdmin && requester.Role != model.RoleManager {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "You don't have permission to create users",
			"requestID": requestID,
		})
		return
	}

	var data registerBody
	if err := c.ShouldBind(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if err := validators.EmailValidator(data.Email); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if err := validators.PasswordValidator(data.Password); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if data.Role == "" {
		data.Role = model.RoleUser
	}

	if !data.Role.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid role provided",
			"requestID": requestID,
		})
		return
	}

	// Only admins may mint other admins
	if data.Role == model.RoleAdmin && requester.Role != model.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "Only admins can create admin accounts",
			"requestID": requestID,
		})
		return
	}

	var found bool

	r := a.DB.Model(model.User{}).
		Select("count(*) > 0").
		Where("email = ?", data.Email).
		Find(&found)
	if r.Error != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to check if user is registered", zap.Error(r.Error), zap.String("requestID", requestID))
		return
	}

	if found {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":     "This email is already registered",
			"requestID": requestID,
		})
		return
	}

	hash, err := a.Argon.GenerateFromPassword(data.Password)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to hash password", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	userID, err := security.NewID()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate user ID", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if data.StorageLimit <= 0 {
		data.StorageLimit = viper.GetInt64("storage.default_quota")
	}

	user := model.User{
		ID:           userID,
		Email:        data.Email,
		PasswordHash: hash,
		Role:         data.Role,
		CreatedBy:    requester.ID,
		StorageLimit: data.StorageLimit,
		CreatedAt:    time.Now().UnixMilli(),
	}

	if err := a.DB.Create(&user).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user": user,
	})
}
