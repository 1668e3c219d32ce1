// Package main provides the main entry point for the lead manager API
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/amirphl/lead-manager/app/handlers"
	"github.com/amirphl/lead-manager/app/middleware"
	"github.com/amirphl/lead-manager/app/router"
	"github.com/amirphl/lead-manager/app/services"
	businessflow "github.com/amirphl/lead-manager/business_flow"
	"github.com/amirphl/lead-manager/config"
	"github.com/amirphl/lead-manager/migrations"
	"github.com/amirphl/lead-manager/models"
	"github.com/amirphl/lead-manager/repository"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.Config
	db        *gorm.DB
	cache     *redis.Client
	stopFuncs []func()
}

func main() {
	issueFor := flag.String("issue-token", "", "print an access token for the given subject and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *issueFor != "" {
		token, err := issueToken(cfg.Auth, *issueFor)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	closeLog := setupLogging(cfg.Logging)
	defer closeLog()

	log.Printf("Starting %s %s (%s, commit %s)...",
		cfg.Deployment.ServiceName, cfg.Deployment.Version, cfg.Deployment.Environment, cfg.Deployment.CommitHash)

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		address := cfg.Server.Address()
		log.Printf("Server starting on %s", address)
		serverErr <- app.router.Start(address)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received %s, shutting down gracefully...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server stopped unexpectedly: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	app.close()
	log.Println("Server stopped")
}

// setupLogging routes the standard logger to stdout, a rotated file, or both
func setupLogging(cfg config.LoggingConfig) func() {
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lmicroseconds)

	if cfg.Output == "stdout" {
		log.SetOutput(os.Stdout)
		return func() {}
	}

	if dir := filepath.Dir(cfg.FilePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("Failed to create log directory %s: %v", dir, err)
		}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	var out io.Writer = rotator
	if cfg.Output == "both" {
		out = io.MultiWriter(os.Stdout, rotator)
	}
	log.SetOutput(out)

	return func() {
		_ = rotator.Close()
	}
}

// gormLogLevel maps LOG_LEVEL onto gorm's logger levels
func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "warn":
		return logger.Warn
	case "error":
		return logger.Error
	default:
		return logger.Warn
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logLevel string) (*gorm.DB, error) {
	if cfg.Driver == config.DriverPostgres && cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := migrations.Apply(ctx, cfg.URL); err != nil {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		log.Println("Database migrations applied")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.URL)
	default:
		dialector = postgres.Open(cfg.URL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log.Default(), logger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormLogLevel(logLevel),
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// SQLite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Driver == config.DriverSQLite && cfg.AutoMigrate {
		if err := db.AutoMigrate(&models.Lead{}, &models.LeadAuditLog{}); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}

	log.Printf("Database connection established (driver=%s, max open connections=%d)", cfg.Driver, cfg.MaxOpenConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity.
// It returns nil when caching is disabled.
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB
	opt.DialTimeout = cfg.ConnectTimeout
	opt.ReadTimeout = cfg.OperationTimeout
	opt.WriteTimeout = cfg.OperationTimeout

	rc := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", opt.Addr, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis to surface connectivity
// problems in the log. The returned func stops the monitor.
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
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()

	return cancel
}

func newTokenService(cfg config.AuthConfig) (services.TokenService, error) {
	tokenService, err := services.NewTokenService(
		cfg.AccessTokenTTL,
		cfg.Issuer,
		cfg.Audience,
		cfg.UseRSAKeys,
		cfg.PrivateKey,
		cfg.PublicKey,
		cfg.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	return tokenService, nil
}

// issueToken signs an access token for subject with the configured auth keys.
// RSA deployments need JWT_PRIVATE_KEY on the issuing host.
func issueToken(cfg config.AuthConfig, subject string) (string, error) {
	tokenService, err := newTokenService(cfg)
	if err != nil {
		return "", err
	}
	return tokenService.GenerateAccessToken(subject)
}

// initializeAuth builds the bearer-token middleware when auth is enabled
func initializeAuth(cfg config.AuthConfig) (*middleware.AuthMiddleware, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	tokenService, err := newTokenService(cfg)
	if err != nil {
		return nil, err
	}

	log.Printf("Token authentication enabled with issuer: %s, audience: %s", cfg.Issuer, cfg.Audience)
	return middleware.NewAuthMiddleware(tokenService), nil
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.Config) (*Application, error) {
	app := &Application{config: cfg}

	db, err := initializeDatabase(cfg.Database, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	app.db = db

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		app.close()
		return nil, err
	}
	app.cache = rc

	leadCache := services.NewNoopLeadCache()
	if rc != nil {
		leadCache = services.NewRedisLeadCache(rc, cfg.Cache.RedisPrefix, cfg.Cache.DefaultTTL)
		app.stopFuncs = append(app.stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthInterval))
	}

	// Initialize repositories
	leadRepo := repository.NewLeadRepository(db)
	auditRepo := repository.NewLeadAuditLogRepository(db)

	leadFlow := businessflow.NewLeadFlow(leadRepo, auditRepo, repository.NewTransactor(db), leadCache)
	leadHandler := handlers.NewLeadHandler(leadFlow)

	authMiddleware, err := initializeAuth(cfg.Auth)
	if err != nil {
		app.close()
		return nil, err
	}

	app.router = router.NewFiberRouter(cfg, leadHandler, authMiddleware)
	app.router.AddHealthCheck("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if rc != nil {
		app.router.AddHealthCheck("cache", func(ctx context.Context) error {
			return rc.Ping(ctx).Err()
		})
	}

	return app, nil
}

// close stops background workers and releases connections
func (a *Application) close() {
	for _, fn := range a.stopFuncs {
		fn()
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Printf("Error closing redis client: %v", err)
		}
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			}
		}
	}
}
