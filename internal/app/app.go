package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/brahimakil/chibox-cms-sub000/cmd/server/docs" // swagger docs
	"github.com/brahimakil/chibox-cms-sub000/internal/adapter/webhook"
	"github.com/brahimakil/chibox-cms-sub000/internal/module/workflow"
	"github.com/brahimakil/chibox-cms-sub000/internal/shared/cache"
	"github.com/brahimakil/chibox-cms-sub000/internal/shared/config"
	"github.com/brahimakil/chibox-cms-sub000/internal/shared/database"
	"github.com/brahimakil/chibox-cms-sub000/internal/shared/events"
	"github.com/brahimakil/chibox-cms-sub000/internal/shared/logger"
	"github.com/brahimakil/chibox-cms-sub000/internal/shared/metrics"
	"github.com/brahimakil/chibox-cms-sub000/internal/shared/middleware"
)

// App wires configuration, storage, the event bus and the workflow module
// into a runnable HTTP application.
type App struct {
	config *config.Config
	db     *gorm.DB
	redis  redis.UniversalClient
	router *gin.Engine
	logger *zap.Logger

	eventBus *events.Bus
	metrics  *metrics.Metrics

	workflowHandler *workflow.Handler
	workflowService *workflow.Service
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, idempotency and status caching disabled", zap.Error(err))
		redisClient = nil
	}

	m := metrics.New("chibox")
	bus := events.NewBus(log)

	app := &App{
		config:   cfg,
		db:       db,
		redis:    redisClient,
		logger:   log,
		eventBus: bus,
		metrics:  m,
	}

	if err := app.initWorkflow(); err != nil {
		return nil, err
	}
	app.initRouter()

	return app, nil
}

// initWorkflow builds the workflow module: repository, status catalog,
// deriver, service, outbound notifier and HTTP handler.
func (a *App) initWorkflow() error {
	repo := workflow.NewRepository(a.db)
	catalog := a.loadCatalog(repo)

	deriver := workflow.NewDeriver(
		catalog,
		repo,
		a.redis,
		a.config.Workflow.StatusCacheTTL,
		a.logger,
	)

	a.workflowService = workflow.NewService(
		repo,
		catalog,
		workflow.DefaultRegistry(),
		deriver,
		a.eventBus,
		a.metrics,
		a.logger,
		a.config.Workflow.MaxBatchSize,
	)

	if a.config.Webhook.URL != "" {
		notifier := webhook.NewNotifier(webhook.Config{
			URL:              a.config.Webhook.URL,
			Timeout:          a.config.Webhook.Timeout,
			FailureThreshold: a.config.Webhook.FailureThreshold,
			CircuitTimeout:   a.config.Webhook.CircuitTimeout,
		}, a.metrics, a.logger)
		a.eventBus.Register(notifier)
	}

	var bulkGuard gin.HandlerFunc
	if a.redis != nil {
		bulkGuard = middleware.Idempotency(a.redis, a.config.Workflow.IdempotencyTTL)
	}
	a.workflowHandler = workflow.NewHandler(a.workflowService, bulkGuard)

	return nil
}

// loadCatalog reads the status catalog from the database, falling back to
// the compiled-in defaults when the table is empty or unreadable.
func (a *App) loadCatalog(repo workflow.Repository) *workflow.Catalog {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	defs, err := repo.ListStatusDefinitions(ctx)
	if err != nil {
		a.logger.Warn("failed to load status catalog, using defaults", zap.Error(err))
		return workflow.DefaultCatalog()
	}
	if len(defs) == 0 {
		return workflow.DefaultCatalog()
	}

	catalog, err := workflow.NewCatalog(defs)
	if err != nil {
		a.logger.Warn("invalid status catalog in database, using defaults", zap.Error(err))
		return workflow.DefaultCatalog()
	}

	a.logger.Info("status catalog loaded", zap.Int("statuses", len(defs)))
	return catalog
}

func (a *App) initRouter() {
	router := gin.New()

	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging(a.logger))
	router.Use(middleware.Metrics(a.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	router.GET("/health", a.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	api := router.Group("/api/v1")
	protected := api.Group("")
	protected.Use(middleware.Auth(a.config.Auth.JWTSecret))
	a.workflowHandler.RegisterProtectedRoutes(protected)

	a.router = router
}

func (a *App) healthCheck(c *gin.Context) {
	status := gin.H{"status": "ok"}

	sqlDB, err := a.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status["status"] = "degraded"
		status["database"] = "down"
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	status["database"] = "up"

	if a.redis != nil {
		if err := a.redis.Ping(c.Request.Context()).Err(); err != nil {
			status["redis"] = "down"
		} else {
			status["redis"] = "up"
		}
	}

	c.JSON(http.StatusOK, status)
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases the application's resources.
func (a *App) Stop() {
	if a.redis != nil {
		if err := cache.Close(a.redis); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
