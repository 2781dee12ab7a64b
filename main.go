package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	"websync/sync-api/api"
	"websync/sync-api/config"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	a, err := api.NewRouter()
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Pick up anything that changed on disk while we were down
	if err := a.Sync.Scan(); err != nil {
		zap.L().Warn("Initial scan failed", zap.Error(err))
	}

	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)

		if err := a.Sync.Run(ctx); err != nil {
			zap.L().Error("Watcher stopped", zap.Error(err))
		}
	}()

	if mins := viper.GetInt("watcher.rescan_minutes"); mins > 0 {
		go a.Sync.RescanEvery(ctx, time.Duration(mins)*time.Minute)
	}

	srv := &http.Server{
		Addr:    ":" + viper.GetString("host.port"),
		Handler: a.Router,
	}

	go func() {
		zap.L().Info("Server starting", zap.String("addr", srv.Addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Forced shutdown", zap.Error(err))
	}

	<-watcherDone
}
