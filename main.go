// Package main provides the entry point for the Dokany admin console
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/dokany-admin/app/handlers"
	"github.com/amirphl/dokany-admin/app/router"
	"github.com/amirphl/dokany-admin/app/scheduler"
	"github.com/amirphl/dokany-admin/app/services"
	businessflow "github.com/amirphl/dokany-admin/business_flow"
	"github.com/amirphl/dokany-admin/config"
	"github.com/amirphl/dokany-admin/logx"
	"github.com/amirphl/dokany-admin/models"
	"github.com/amirphl/dokany-admin/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ConsoleConfig
	session   businessflow.SessionStore
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.Init(cfg.Logging)
	defer logx.Sync()

	logx.L().Infow("starting dokany admin console", "upstream", cfg.Upstream.BaseURL, "session_store", cfg.Session.Store)

	app, err := initializeApplication(cfg)
	if err != nil {
		logx.L().Fatalw("failed to initialize application", "error", err)
	}

	// The guard answers SESSION_LOADING until this returns
	bootCtx, bootCancel := context.WithTimeout(context.Background(), cfg.Upstream.Timeout)
	snap := app.session.Bootstrap(bootCtx)
	bootCancel()
	logx.L().Infow("session bootstrapped", "authenticated", snap.IsAuthenticated)

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.router.Start(cfg.Server.Address()); err != nil {
			logx.L().Fatalw("failed to start server", "error", err)
		}
	}()

	<-sigChan
	logx.L().Info("shutting down gracefully")

	for _, fn := range app.stopFuncs {
		fn()
	}

	if err := app.router.Shutdown(cfg.Server.ShutdownTimeout); err != nil {
		logx.L().Errorw("error during shutdown", "error", err)
	}

	logx.L().Info("server stopped")
}

// initializeDatabase opens the audit database with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&models.AuditLog{}); err != nil {
			return nil, fmt.Errorf("failed to migrate audit log: %w", err)
		}
	}

	logx.L().Infow("audit database connected", "max_open_conns", cfg.MaxOpenConns, "max_idle_conns", cfg.MaxIdleConns)
	return db, nil
}

// initializeCache connects to Redis and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logx.L().Infow("redis connection established", "db", cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis. The returned function stops it.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logx.L().Warnw("redis healthcheck failed", "error", err)
				}
				c()
			}
		}
	}()
	return cancel
}

func initializeTokenStore(cfg config.SessionConfig, cacheCfg config.CacheConfig, rc *redis.Client) repository.TokenStore {
	sealer := repository.NewTokenSealer(cfg.EncryptionKey)
	switch cfg.Store {
	case "redis":
		return repository.NewRedisTokenStore(rc, cacheCfg.RedisPrefix, cfg.TokenKey, sealer)
	case "memory":
		return repository.NewMemoryTokenStore("")
	default:
		return repository.NewFileTokenStore(cfg.FilePath, cfg.TokenKey, sealer)
	}
}

// initializeApplication wires the session, clients, flows and handlers
func initializeApplication(cfg *config.ConsoleConfig) (*Application, error) {
	var stopFuncs []func()

	var rc *redis.Client
	if cfg.Cache.Enabled || cfg.Session.Store == "redis" {
		client, err := initializeCache(cfg.Cache)
		if err != nil {
			return nil, err
		}
		rc = client
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthCheckTick))
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
	}

	var auditRepo repository.AuditLogRepository
	if cfg.Database.AuditEnabled {
		db, err := initializeDatabase(cfg.Database)
		if err != nil {
			return nil, err
		}
		auditRepo = repository.NewAuditLogRepository(db)
		stopFuncs = append(stopFuncs, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})
	}

	tokenStore := initializeTokenStore(cfg.Session, cfg.Cache, rc)

	// The API client reads the token from the session on every request
	var session *businessflow.SessionStoreImpl
	api := services.NewAPIClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, services.TokenSourceFunc(func() string {
		return session.Token()
	}))

	session = businessflow.NewSessionStore(
		tokenStore,
		services.NewTokenDecoder(cfg.Session.VerifySecret),
		services.NewAuthClient(api),
		auditRepo,
	)

	catalogClient := services.NewCatalogClient(api)
	if cfg.Cache.Enabled && rc != nil {
		catalogClient = services.NewCachedCatalogClient(catalogClient, rc, cfg.Cache.RedisPrefix, cfg.Cache.CatalogTTL)
	}
	campaignClient := services.NewCampaignClient(api)
	dashboardClient := services.NewDashboardClient(api)

	campaignAdminFlow := businessflow.NewCampaignAdminFlow(campaignClient)
	draftFlow := businessflow.NewCampaignDraftFlow(campaignClient, catalogClient, auditRepo)
	dashboardFlow := businessflow.NewDashboardFlow(dashboardClient, campaignAdminFlow, auditRepo)

	if cfg.Scheduler.Enabled {
		var warmer scheduler.CatalogWarmer
		if cfg.Cache.Enabled {
			warmer = draftFlow
		}
		maintenance := scheduler.NewMaintenanceScheduler(draftFlow, warmer, cfg.Scheduler.Interval, cfg.Upstream.Timeout)
		stopFuncs = append([]func(){maintenance.Start(context.Background())}, stopFuncs...)
	}

	r := router.NewFiberRouter(cfg, router.Handlers{
		Auth:      handlers.NewAuthHandler(session),
		Campaign:  handlers.NewCampaignHandler(campaignAdminFlow, session),
		Draft:     handlers.NewDraftHandler(draftFlow, session),
		Dashboard: handlers.NewDashboardHandler(dashboardFlow, session),
	}, session)

	return &Application{
		router:    r,
		config:    cfg,
		session:   session,
		stopFuncs: stopFuncs,
	}, nil
}
