package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo-app/backend/internal/config"
	"todo-app/backend/internal/database"
	"todo-app/backend/internal/monitoring"
	"todo-app/backend/internal/server"
	"todo-app/backend/internal/services"
	"todo-app/backend/internal/session"

	"gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("Configuration loaded: environment=%s database=%s redis=%t", cfg.Server.Environment, cfg.Database.Driver, cfg.Redis.Enabled)

	poolConfig := &database.PoolConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.GetDatabaseDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		LogLevel:        logger.Info,
	}
	if cfg.IsProduction() {
		poolConfig.LogLevel = logger.Warn
	}

	pool, err := database.NewDatabasePool(poolConfig)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() {
		if err := pool.Close(); err != nil {
			log.Printf("close database: %v", err)
		}
	}()

	if err := pool.Migrate(); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	userService := services.NewUserService(cfg.Auth.BCryptCost)
	if _, err := userService.SeedUsers(context.Background(), pool.DB, cfg.Auth.Users); err != nil {
		log.Fatalf("seed users: %v", err)
	}
	log.Printf("✅ Database initialized with users!")

	var store session.Store
	if cfg.Redis.Enabled {
		redisStore := session.NewRedisStore(&session.RedisConfig{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		defer redisStore.Close()

		if err := redisStore.Health(context.Background()); err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		store = session.NewBreakerStore(redisStore, &session.BreakerConfig{
			MaxFailures:      cfg.Redis.BreakerMaxFailures,
			Timeout:          cfg.Redis.BreakerTimeout,
			HalfOpenMaxCalls: 3,
		})
	} else {
		log.Printf("⚠️ Redis disabled, sessions are kept in memory")
		store = session.NewMemoryStore()
	}

	router, err := server.NewRouter(server.Dependencies{
		Config:      cfg,
		Pool:        pool,
		Sessions:    session.NewManager(store, cfg.Auth.SessionSecret, cfg.Auth.SessionTTL),
		AuthService: services.NewAuthService(cfg.Auth.BCryptCost),
		TaskService: services.NewTaskService(),
		Metrics:     monitoring.NewMetrics(),
		Health:      monitoring.NewHealthChecker(),
	})
	if err != nil {
		log.Fatalf("build router: %v", err)
	}

	srv := server.NewHTTPServer(cfg, router)
	go func() {
		log.Printf("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Printf("Server stopped")
}
