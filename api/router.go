// Package api contains all endpoints available
package api

import (
	"fmt"
	"time"
	"websync/sync-api/db"
	"websync/sync-api/internal/notify"
	"websync/sync-api/internal/syncer"
	"websync/sync-api/middleware"
	"websync/sync-api/pkg/cryptobox"
	"websync/sync-api/pkg/security"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store = persist.NewMemoryStore(time.Minute)

type API struct {
	DB     *gorm.DB
	Router *gin.Engine
	Argon  *security.ArgonHash
	Box    *cryptobox.Box
	Hub    *notify.Hub
	Sync   *syncer.Syncer
}

func NewRouter() (*API, error) {
	makeLogger()

	a := &API{
		Argon: security.New(),
		Hub:   notify.NewHub(),
	}

	d, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.DB = d

	box, err := cryptobox.Open(viper.GetString("crypto.key_path"))
	if err != nil {
		return nil, fmt.Errorf("failed to open clipboard key, %w", err)
	}
	a.Box = box

	systemOwner, err := db.SystemOwner(d)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve system owner, %w", err)
	}

	s, err := syncer.New(d, a.Hub, viper.GetString("storage.sync_dir"), systemOwner)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize syncer, %w", err)
	}
	a.Sync = s

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	a.Router.MaxMultipartMemory = 5 << 20

	jwt := middleware.NewJWTMiddleware(d)
	loginLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 2,
		Burst:             5,
	})
	maxUploadSize := viper.GetInt64("upload.max_size")

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)

		// HEAD /api/validate		-> Validates a JWT token
		main.HEAD("/validate", jwt, a.Validate)

		// GET /api/events		-> Streams files_updated notifications over SSE
		main.GET("/events", jwt, a.Events)
	}

	users := main.Group("/users", middleware.BodySizeLimiter(1<<20))
	{
		// GET /api/users		-> Lists all accounts with quota usage (admin/manager)
		users.GET("", jwt, cacheFor(30), a.UserFetch)

		// POST /api/users 		-> Creates a new account (admin/manager)
		users.POST("", jwt, a.UserRegister)

		// POST /api/users/login 	-> Logs in a user and returns a JWT token
		users.POST("/login", loginLimiter, a.UserLogin)

		// POST /api/users/:id/reset-password -> Changes a password (admin or self)
		users.POST("/:id/reset-password", jwt, a.UserResetPassword)

		// DELETE /api/users/:id 	-> Deletes a user and everything they own (admin)
		users.DELETE("/:id", jwt, a.UserDelete)
	}

	files := main.Group("/files", jwt)
	{
		// GET /api/files 		-> Lists every file visible to the requester
		files.GET("", a.FileList)

		// POST /api/files         	-> Uploads a new file into the sync dir
		files.POST("", middleware.BodySizeLimiter(maxUploadSize), a.FileUpload)

		// GET /api/files/:id/download	-> Sends the file bytes as an attachment
		files.GET("/:id/download", a.FileDownload)

		// DELETE /api/files/:id	-> Deletes a file and its share grants
		files.DELETE("/:id", a.FileDelete)

		// POST /api/files/:id/share	-> Makes a file public or grants a user access
		files.POST("/:id/share", a.FileShare)

		// DELETE /api/files/:id/share	-> Reverses the above
		files.DELETE("/:id/share", a.FileUnshare)
	}

	clipboard := main.Group("/clipboard", jwt, middleware.BodySizeLimiter(maxUploadSize))
	{
		// GET /api/clipboard		-> Lists the requester's decrypted items
		clipboard.GET("", a.ClipboardList)

		// POST /api/clipboard		-> Stores an encrypted text/code/image item
		clipboard.POST("", a.ClipboardCreate)

		// GET /api/clipboard/:id	-> Returns a single decrypted item
		clipboard.GET("/:id", a.ClipboardFetch)

		// GET /api/clipboard/:id/image	-> Serves a decrypted image payload
		clipboard.GET("/:id/image", a.ClipboardImage)

		// DELETE /api/clipboard/:id	-> Deletes an item and its sidecar file
		clipboard.DELETE("/:id", a.ClipboardDelete)
	}

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
