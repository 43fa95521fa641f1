package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hollowaylabs/gatehouse/internal/config"
	"github.com/hollowaylabs/gatehouse/internal/database"
	"github.com/hollowaylabs/gatehouse/internal/logger"
	"github.com/hollowaylabs/gatehouse/internal/server"
	"github.com/hollowaylabs/gatehouse/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log().WithError(err).Fatal("load config")
	}

	logDir := filepath.Join(filepath.Dir(cfg.DatabasePath), "logs")
	_ = os.MkdirAll(logDir, 0o755)
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "gatehouse.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	logger.Init(cfg.Environment == "development", io.MultiWriter(os.Stdout, rotator))

	logger.WithFields(map[string]interface{}{
		"version": version.Full(),
		"port":    cfg.HTTPPort,
	}).Infof("starting %s", version.Name)

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.Log().WithError(err).Fatal("open database")
	}

	srv, err := server.New(db, cfg)
	if err != nil {
		logger.Log().WithError(err).Fatal("build server")
	}

	// Populate the relay set before traffic arrives; a failure here falls
	// back to the seed list and the next scheduled refresh.
	go func() {
		if err := srv.Deps.Relay.Refresh(context.Background()); err != nil {
			logger.Log().WithError(err).Warn("initial relay refresh failed")
		}
	}()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every "+cfg.RelayRefreshInterval.String(), func() {
		if err := srv.Deps.Relay.Refresh(context.Background()); err != nil {
			logger.Log().WithError(err).Warn("scheduled relay refresh failed")
		}
	}); err != nil {
		logger.Log().WithError(err).Fatal("schedule relay refresh")
	}
	if _, err := scheduler.AddFunc("@every 1h", func() {
		removed, err := srv.Deps.Intel.Sweep()
		if err != nil {
			logger.Log().WithError(err).Warn("threat intel sweep failed")
			return
		}
		if removed > 0 {
			logger.WithFields(map[string]interface{}{"removed": removed}).Info("threat intel sweep")
		}
	}); err != nil {
		logger.Log().WithError(err).Fatal("schedule threat intel sweep")
	}
	if srv.Deps.Limiter != nil {
		if _, err := scheduler.AddFunc("@every 10m", func() {
			srv.Deps.Limiter.Prune()
		}); err != nil {
			logger.Log().WithError(err).Fatal("schedule rate limit prune")
		}
	}
	scheduler.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Log().WithError(err).Error("server error")
	}

	<-scheduler.Stop().Done()
	srv.Close()
	logger.Log().Info("shutdown complete")
}
