package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tuss-cogs/internal/config"
	"tuss-cogs/internal/logging"
	"tuss-cogs/internal/persistence"
	"tuss-cogs/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		logrus.Fatalf("Failed to set up logging: %v", err)
	}
	defer closer.Close()

	if cfg.DevSecret() {
		log.Warn("auth.jwt_secret is the built-in development secret; set TUSS_AUTH_JWT_SECRET")
	}
	if log.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	catalog, err := persistence.NewLevelCatalog(cfg.Levels.Dir, cfg.Levels.CacheTTL, log)
	if err != nil {
		log.Fatalf("Failed to create level catalog: %v", err)
	}
	defer catalog.Close()
	if _, err := catalog.Level(persistence.FallbackLevel); err != nil {
		log.Fatalf("Level %d is required: %v", persistence.FallbackLevel, err)
	}

	srv := server.NewServer(server.Deps{
		Config: *cfg,
		Store:  persistence.NewStore(cfg.Data.Dir),
		Levels: catalog,
		Logger: log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() { errs <- srv.Start() }()

	select {
	case err := <-errs:
		if err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			log.WithError(err).Error("Shutdown did not finish cleanly")
		}
	}
	log.Info("Server exited")
}
