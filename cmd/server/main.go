package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/devlens/devlens/internal/adapter/auth"
	httpadapter "github.com/devlens/devlens/internal/adapter/http"
	"github.com/devlens/devlens/internal/adapter/persistence"
	"github.com/devlens/devlens/internal/adapter/rediscache"
	"github.com/devlens/devlens/internal/adapter/search"
	"github.com/devlens/devlens/internal/cache"
	"github.com/devlens/devlens/internal/config"
	"github.com/devlens/devlens/internal/fanout"
	"github.com/devlens/devlens/internal/source"
	"github.com/devlens/devlens/internal/sprints"
	"github.com/devlens/devlens/internal/usecase"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	logger := newLogger(cfg.Logging)
	logger.WithFields(logrus.Fields{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
	}).Info("starting reporting service")

	db, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetConnMaxIdleTime(cfg.Database.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.WithError(err).Fatal("failed to ping database")
	}
	logger.Info("database connection established")

	searchStore, err := search.NewMongoSearchStore(cfg.Search.URI, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to search store")
	}
	defer searchStore.Close(context.Background())

	cacheStore, err := rediscache.NewRedisCacheStore(cfg.GetRedisURL(), logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer cacheStore.Close()

	relational := persistence.NewRelationalReportStore(db, logger)
	reports := usecase.NewReportService(usecase.Deps{
		Relational:  relational,
		IssueList:   relational,
		Search:      searchStore,
		Cache:       cache.New(cacheStore, logger, cfg.CacheSettings()),
		Selector:    source.NewSelector(cfg.SourceSelection()),
		Scope:       persistence.NewOrgUnitResolver(db, logger),
		Lookup:      relational,
		Sprints:     sprints.NewCalculator(),
		Profiles:    persistence.NewWorkflowProfileStore(db),
		Pool:        fanout.NewPool(cfg.Reports.FanOutPoolSize),
		Log:         logger,
		MaxPageSize: cfg.Reports.MaxPageSize,
	})

	tenantAuth := httpadapter.NewTenantAuth(
		auth.NewJWTService(cfg.Security.JWTSecret, cfg.Security.JWTExpiration),
		auth.NewAPIKeyStore(db),
	)

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		CORSOrigins:  cfg.Security.CORSOrigins,
	}, reports, tenantAuth, logger)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	logger.Info("server exited")
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
