// Package setup bootstraps the application: configuration, loggers, the
// database, Redis, metrics, and the optional debug server, wired in
// dependency order with a matching reverse-order cleanup.
package setup

import (
	"context"
	"log"
	"time"

	"github.com/redis/rueidis"
	"github.com/tagwatch/tagwatch/internal/database"
	"github.com/tagwatch/tagwatch/internal/metrics"
	"github.com/tagwatch/tagwatch/internal/monitor"
	"github.com/tagwatch/tagwatch/internal/pool"
	"github.com/tagwatch/tagwatch/internal/redis"
	"github.com/tagwatch/tagwatch/internal/setup/config"
	"github.com/tagwatch/tagwatch/internal/twitter"
	"github.com/tagwatch/tagwatch/internal/twitter/auth"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config  // Application configuration
	Logger       *zap.Logger     // Main application logger
	DBLogger     *zap.Logger     // Database-specific logger
	DB           database.Client // Database connection pool
	RedisManager *redis.Manager  // Redis connection manager
	StatusClient rueidis.Client  // Redis client for worker status reporting
	Metrics      *metrics.Collector
	debugServer  *debugServer
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, autoMigrate bool) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, dbLogger, err := NewLoggers(&cfg.Common.Debug)
	if err != nil {
		return nil, err
	}

	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	db, err := database.NewConnection(ctx, &cfg.Common.PostgreSQL, dbLogger, autoMigrate)
	if err != nil {
		return nil, err
	}

	statusClient, err := redisManager.GetClient(redis.WorkerStatusDBIndex)
	if err != nil {
		return nil, err
	}

	collector := metrics.New()

	var debugSrv *debugServer

	if cfg.Common.Debug.EnablePprof {
		srv, err := startDebugServer(cfg.Common.Debug.PprofPort, collector, logger)
		if err != nil {
			logger.Error("Failed to start debug server", zap.Error(err))
		} else {
			debugSrv = srv

			logger.Warn("Debug endpoint enabled - this should not be used in production!")
		}
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger,
		DB:           db,
		RedisManager: redisManager,
		StatusClient: statusClient,
		Metrics:      collector,
		debugServer:  debugSrv,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse
// initialization order. Logs but does not fail on cleanup errors so every
// component gets a cleanup attempt.
func (s *App) Cleanup(ctx context.Context) {
	if s.debugServer != nil {
		if err := s.debugServer.srv.Shutdown(ctx); err != nil {
			s.Logger.Error("Failed to shutdown debug server", zap.Error(err))
		}

		s.debugServer.listener.Close()
	}

	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	// Closed last as other components might need it during cleanup
	s.RedisManager.Close()
}

// Authenticator builds the configured login strategy.
func (s *App) Authenticator() (auth.Authenticator, error) {
	loginCfg := &s.Config.Worker.Login

	var opts []auth.FlowOption
	if loginCfg.FlowURL != "" {
		opts = append(opts, auth.WithFlowURL(loginCfg.FlowURL))
	}

	return auth.New(loginCfg.Strategy, nil, opts...)
}

// PoolConfig maps the worker configuration onto the pool manager bounds.
func (s *App) PoolConfig() pool.Config {
	loginCfg := &s.Config.Worker.Login

	return pool.Config{
		MaxLoginAttempts:  loginCfg.MaxAttempts,
		LoginRetryDelay:   time.Duration(loginCfg.RetryDelay) * time.Millisecond,
		LoginRetryJitter:  time.Duration(loginCfg.RetryJitter) * time.Millisecond,
		ReactivationDelay: time.Duration(loginCfg.ReactivationDelay) * time.Millisecond,
	}
}

// MonitorConfig maps the worker configuration onto the polling engine bounds.
func (s *App) MonitorConfig() monitor.Config {
	workerCfg := &s.Config.Worker

	return monitor.Config{
		PollInterval:     time.Duration(workerCfg.PollInterval) * time.Second,
		RecoveryCooldown: time.Duration(workerCfg.RecoveryCooldown) * time.Second,
		SearchPageSize:   workerCfg.Search.PageSize,
		GroupRetryDelay:  time.Duration(workerCfg.Search.GroupRetryDelay) * time.Second,
		FlagWindow:       time.Duration(workerCfg.Detectors.FlagWindow) * time.Minute,
		FlagThreshold:    workerCfg.Detectors.FlagThreshold,
		SurgeWindowDays:  workerCfg.Detectors.SurgeWindowDays,
		SurgeThreshold:   workerCfg.Detectors.SurgeThreshold,
	}
}

// ClientOptions maps the shared HTTP configuration onto search client options.
func (s *App) ClientOptions() []twitter.Option {
	retryCfg := &s.Config.Common.Retry

	opts := []twitter.Option{
		twitter.WithRetry(
			retryCfg.MaxRetries,
			time.Duration(retryCfg.Delay)*time.Millisecond,
			time.Duration(retryCfg.MaxDelay)*time.Millisecond,
		),
	}

	if s.Config.Worker.RequestTimeout > 0 {
		opts = append(opts, twitter.WithTimeout(
			time.Duration(s.Config.Worker.RequestTimeout)*time.Millisecond,
		))
	}

	return opts
}
