package server

import (
	"fmt"
	"net/http"
	"time"

	"todo-app/backend/internal/config"
	"todo-app/backend/internal/database"
	"todo-app/backend/internal/handlers"
	"todo-app/backend/internal/middleware"
	"todo-app/backend/internal/monitoring"
	"todo-app/backend/internal/services"
	"todo-app/backend/internal/session"
	"todo-app/backend/internal/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Dependencies are the collaborators the router is built from.
type Dependencies struct {
	Config      *config.Config
	Pool        *database.DatabasePool
	Sessions    *session.Manager
	AuthService services.AuthService
	TaskService services.TaskService
	Metrics     *monitoring.Metrics
	Health      *monitoring.HealthChecker
}

type statsReporter interface {
	Stats() map[string]interface{}
}

func NewRouter(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	db := deps.Pool.DB
	if deps.Metrics == nil {
		deps.Metrics = monitoring.NewMetrics()
	}
	if deps.Health == nil {
		deps.Health = monitoring.NewHealthChecker()
	}

	deps.Health.Register("database", deps.Pool.Health)
	deps.Health.Register("sessions", deps.Sessions.Store().Health)

	deps.Metrics.RegisterComponent("database", deps.Pool.Stats)
	if reporter, ok := deps.Sessions.Store().(statsReporter); ok {
		deps.Metrics.RegisterComponent("sessions", reporter.Stats)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// Metrics sits outside recovery so panics are counted as 500s.
	router.Use(gin.Logger(), deps.Metrics.Middleware(), middleware.RecoveryWithLog())
	if len(cfg.CORS.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	sessionAuth := middleware.NewSessionAuth(db, deps.Sessions, deps.AuthService, cfg.Auth.CookieName)
	authHandler := handlers.NewAuthHandler(db, deps.AuthService, deps.Sessions, sessionAuth, cfg.IsProduction())
	pageHandler := handlers.NewPageHandler(sessionAuth)
	taskHandler := handlers.NewTaskHandler(db, deps.TaskService)

	loginChain := []gin.HandlerFunc{}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstSize)
		loginChain = append(loginChain, middleware.RateLimit(limiter))
	}
	loginChain = append(loginChain, authHandler.Login)

	router.GET("/", pageHandler.Index)
	router.GET("/login", authHandler.LoginPage)
	router.POST("/login", loginChain...)
	router.GET("/logout", authHandler.Logout)
	router.POST("/logout", authHandler.Logout)
	router.GET("/app", sessionAuth.RequirePage(), pageHandler.App)

	api := router.Group("/api")
	api.Use(sessionAuth.RequireAPI())
	{
		api.GET("/tasks/personal", taskHandler.ListPersonal)
		api.GET("/tasks/shared", taskHandler.ListShared)
		api.POST("/tasks", taskHandler.CreateTask)
		api.PUT("/tasks/:id", taskHandler.UpdateTask)
		api.DELETE("/tasks/:id", taskHandler.DeleteTask)
	}

	router.GET("/health", monitoring.HealthHandler(deps.Health, deps.Metrics))
	router.GET("/ready", monitoring.ReadinessHandler(deps.Health))
	router.GET("/live", monitoring.LivenessHandler(deps.Metrics))
	router.GET("/metrics", monitoring.MetricsHandler(deps.Metrics))

	return router, nil
}

func NewHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
