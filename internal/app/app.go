package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/devmob/onboard/cmd/bot/docs" // swagger docs

	discordin "github.com/devmob/onboard/internal/adapter/inbound/discord"
	debughttp "github.com/devmob/onboard/internal/adapter/inbound/http/debug"
	systemhttp "github.com/devmob/onboard/internal/adapter/inbound/http/system"
	discordout "github.com/devmob/onboard/internal/adapter/outbound/discord"
	"github.com/devmob/onboard/internal/domain/onboarding"
	"github.com/devmob/onboard/internal/infra/config"
	"github.com/devmob/onboard/internal/port/outbound"
	"github.com/devmob/onboard/internal/utils/metrics"
	"github.com/devmob/onboard/internal/utils/middleware"
)

// watchInterval is how often the gateway watchdog checks the session.
const watchInterval = 30 * time.Second

// App represents the application.
type App struct {
	config    *config.Config
	router    *gin.Engine
	zapLogger *zap.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	limiter   outbound.RateLimiterPort

	// Gateway
	client      *discordout.Client
	eventRouter *discordin.Router
	onboarding  *onboarding.Service

	// HTTP handlers (inbound adapters)
	systemHandler *systemhttp.Handler
	debugHandler  *debughttp.Handler

	cancelWatch  context.CancelFunc
	cleanupFuncs []func()
}

// New creates a new application instance. It does not connect to the gateway.
func New(cfg *config.Config) (*App, error) {
	zapLog := ProvideZapLogger(cfg)

	warnings, err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	for _, w := range warnings {
		zapLog.Warn("optional setting missing", zap.Error(w))
	}

	app := &App{
		config:       cfg,
		zapLogger:    zapLog,
		cleanupFuncs: make([]func(), 0),
	}

	// Initialize infrastructure
	if err := app.initInfrastructure(); err != nil {
		app.Stop()
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	// Initialize router
	app.router = app.setupRouter()

	// Register routes
	app.registerRoutes()

	return app, nil
}

// initInfrastructure builds every component from the providers.
func (a *App) initInfrastructure() error {
	cfg := a.config
	a.registry = ProvideRegistry()
	a.metrics = ProvideMetrics(a.registry)

	redis, cleanupRedis := ProvideRedisClient(cfg, a.zapLogger)
	a.cleanupFuncs = append(a.cleanupFuncs, cleanupRedis)
	a.limiter = ProvideRateLimiter(redis)

	storage, cleanupStorage, err := ProvideStorage(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.cleanupFuncs = append(a.cleanupFuncs, cleanupStorage)

	client, err := ProvideDiscordClient(cfg, a.metrics, a.zapLogger)
	if err != nil {
		return fmt.Errorf("create discord client: %w", err)
	}
	a.client = client

	httpClient := ProvideHTTPClient(cfg)
	provider := ProvideTextProvider(cfg, httpClient, a.metrics, a.zapLogger)

	svc, stopService := ProvideOnboardingService(
		cfg,
		client,
		storage,
		a.limiter,
		ProvideAttributor(cfg, client, storage, a.metrics, a.zapLogger),
		ProvideOrchestrator(cfg, client, a.metrics, a.zapLogger),
		ProvideGenerator(cfg, provider, a.metrics, a.zapLogger),
		ProvideClassifier(cfg, client, storage, a.metrics, a.zapLogger),
		ProvideRoleManager(cfg, client, a.metrics, a.zapLogger),
		a.metrics,
		a.zapLogger,
	)
	a.onboarding = svc
	a.cleanupFuncs = append(a.cleanupFuncs, stopService)

	a.eventRouter = ProvideEventRouter(cfg, svc, client, a.metrics, a.zapLogger)
	a.systemHandler = ProvideSystemHandler(client, svc, storage, redis)
	a.debugHandler = debughttp.NewHandler(client, svc)
	return nil
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	// Set Gin mode based on environment
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Apply global middleware
	r.Use(middleware.Recovery(a.zapLogger))
	r.Use(middleware.RequestID(a.zapLogger))
	r.Use(middleware.Logging(a.zapLogger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.CORS(a.config.Server.CORSOrigins))

	return r
}

// registerRoutes registers all HTTP routes.
func (a *App) registerRoutes() {
	a.systemHandler.RegisterRoutes(a.router)
	a.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	if a.config.Server.EnableDebug {
		a.debugHandler.RegisterRoutes(
			&a.router.RouterGroup,
			middleware.RateLimitByIP(a.limiter, a.config.RateLimit.DebugLimit, a.config.RateLimit.DebugWindow, a.zapLogger),
		)

		// Swagger documentation endpoint
		a.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
	}
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.zapLogger
}

// Start registers the gateway handlers and connects.
func (a *App) Start(ctx context.Context) error {
	a.eventRouter.Register(a.client.Session())
	if err := a.client.Connect(ctx); err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	a.cancelWatch = cancel
	go a.client.Watch(watchCtx, watchInterval)
	return nil
}

// Stop waits for running interviews to be cancelled and releases resources.
func (a *App) Stop() {
	if a.cancelWatch != nil {
		a.cancelWatch()
	}
	// Run cleanup functions in reverse order
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.zapLogger.Warn("failed to close gateway", zap.Error(err))
		}
	}
	_ = a.zapLogger.Sync()
}

// NewHTTPServer creates the HTTP server for the router.
func NewHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
