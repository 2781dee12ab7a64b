package api

import (
	"net/http"
	"time"
	"websync/sync-api/model"
	"websync/sync-api/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxLoginAttempts = 5
	lockoutWindow    = 5 * time.Minute
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) UserLogin(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data loginBody
	if err := c.ShouldBind(&data); err != nil || data.Email == "" || data.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Please provide an email and a password",
			"requestID": requestID,
		})
		return
	}

	var user model.User

	err := a.DB.Where("email = ?", data.Email).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Invalid credentials",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to look up user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	// Account lockout: 5 failed attempts buys a 5 minute timeout
	if user.LoginAttempts >= maxLoginAttempts {
		if user.LastLoginAttempt != nil && time.Since(*user.LastLoginAttempt) < lockoutWindow {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "Too many failed login attempts, please try again later",
				"requestID": requestID,
			})
			return
		}

		user.LoginAttempts = 0
	}

	ok, err := a.Argon.VerifyPasswd(data.Password, user.PasswordHash)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to verify password", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if !ok {
		now := time.Now()

		err := a.DB.
			Model(model.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]any{
				"login_attempts":     user.LoginAttempts + 1,
				"last_login_attempt": &now,
			}).
			Error
		if err != nil {
			zap.L().Error("Failed to record login attempt", zap.Error(err), zap.String("requestID", requestID))
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid credentials",
			"requestID": requestID,
		})
		return
	}

	err = a.DB.
		Model(model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"login_attempts":     0,
			"last_login_attempt": nil,
		}).
		Error
	if err != nil {
		zap.L().Error("Failed to reset login attempts", zap.Error(err), zap.String("requestID", requestID))
	}

	ttl := time.Duration(viper.GetInt("auth.token_expiry")) * time.Second

	token, err := security.MintToken(user.ID, []byte(viper.GetString("auth.jwt_secret")), ttl)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to mint token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.SetCookie("auth_token", token, int(ttl.Seconds()), "/", "", false, true)

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"user":         user,
	})
}
