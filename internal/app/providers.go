package app

import (
	"context"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	// Domains
	"github.com/devmob/onboard/internal/domain/biography"
	"github.com/devmob/onboard/internal/domain/interview"
	"github.com/devmob/onboard/internal/domain/invite"
	"github.com/devmob/onboard/internal/domain/membership"
	"github.com/devmob/onboard/internal/domain/onboarding"

	// Inbound adapters
	discordin "github.com/devmob/onboard/internal/adapter/inbound/discord"
	debughttp "github.com/devmob/onboard/internal/adapter/inbound/http/debug"
	systemhttp "github.com/devmob/onboard/internal/adapter/inbound/http/system"

	// Ports
	"github.com/devmob/onboard/internal/port/inbound"
	"github.com/devmob/onboard/internal/port/outbound"

	// Outbound adapters
	"github.com/devmob/onboard/internal/adapter/outbound/aiprovider"
	discordout "github.com/devmob/onboard/internal/adapter/outbound/discord"
	"github.com/devmob/onboard/internal/adapter/outbound/filestore"
	"github.com/devmob/onboard/internal/adapter/outbound/postgres"
	redisadapter "github.com/devmob/onboard/internal/adapter/outbound/redis"
	s3store "github.com/devmob/onboard/internal/adapter/outbound/s3"
	"github.com/devmob/onboard/internal/adapter/outbound/sqlite"

	// Infrastructure
	"github.com/devmob/onboard/internal/infra/config"
	"github.com/devmob/onboard/internal/infra/database"
	"github.com/devmob/onboard/internal/infra/httpclient"

	// Utils
	"github.com/devmob/onboard/internal/shared/logger"
	"github.com/devmob/onboard/internal/utils/metrics"
)

// shutdownTimeout bounds how long Stop waits for interviews to unwind.
const shutdownTimeout = 15 * time.Second

// ===== Infrastructure Providers =====

// InfraSet provides infrastructure dependencies.
var InfraSet = wire.NewSet(
	ProvideZapLogger,
	ProvideRegistry,
	ProvideMetrics,
	ProvideHTTPClient,
	ProvideRedisClient,
	ProvideRateLimiter,
	ProvideStorage,
)

// ProvideZapLogger creates a zap logger instance.
func ProvideZapLogger(cfg *config.Config) *zap.Logger {
	return logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// ProvideRegistry creates the registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a metrics instance.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New("onboard", reg)
}

// ProvideHTTPClient creates a shared HTTP client with connection pooling.
func ProvideHTTPClient(cfg *config.Config) *http.Client {
	return httpclient.New(cfg.HTTPClient)
}

// ProvideRedisClient creates a Redis client. Redis is optional: an empty address
// or a failed ping yields nil.
func ProvideRedisClient(cfg *config.Config, zapLog *zap.Logger) (goredis.UniversalClient, func()) {
	if cfg.Redis.Address == "" || !cfg.RateLimit.Enabled {
		return nil, func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := redisadapter.NewClient(ctx, cfg.Redis)
	if err != nil {
		zapLog.Warn("Redis connection failed, continuing without cooldowns", zap.Error(err))
		return nil, func() {}
	}
	return client, func() { _ = client.Close() }
}

// ProvideRateLimiter creates a rate limiter, or nil without Redis.
func ProvideRateLimiter(redis goredis.UniversalClient) outbound.RateLimiterPort {
	if redis == nil {
		return nil
	}
	return redisadapter.NewRateLimiter(redis)
}

// Storage groups the persistence adapters selected by storage.driver.
type Storage struct {
	Stories outbound.StoryStorePort
	History outbound.InviteHistoryPort
	// Ping is nil for drivers without a connection to check.
	Ping func(ctx context.Context) error
}

// ProvideStorage opens the configured story and invite history stores.
func ProvideStorage(cfg *config.Config) (*Storage, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := database.Open(&cfg.Database, postgres.Models()...)
		if err != nil {
			return nil, nil, err
		}
		return &Storage{
			Stories: postgres.NewStoryAdapter(db),
			History: postgres.NewInviteHistoryAdapter(db),
			Ping: func(ctx context.Context) error {
				return database.Ping(ctx, db)
			},
		}, func() { _ = database.Close(db) }, nil
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := s3store.NewClient(ctx, &s3store.Config{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
		})
		if err != nil {
			return nil, nil, err
		}
		store := s3store.NewStore(client, cfg.S3.Bucket, cfg.S3.Prefix)
		return &Storage{
			Stories: store,
			History: store.History(),
			Ping:    store.Ping,
		}, func() {}, nil
	case "sqlite":
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return &Storage{
			Stories: store,
			History: store.History(),
			Ping:    store.Ping,
		}, func() { _ = store.Close() }, nil
	default:
		return &Storage{
			Stories: filestore.NewStoryStore(cfg.Storage.StoriesPath()),
			History: filestore.NewInviteHistory(cfg.Storage.HistoryPath()),
		}, func() {}, nil
	}
}

// ===== Platform Providers =====

// PlatformSet provides the Discord client behind the platform ports.
var PlatformSet = wire.NewSet(
	ProvideDiscordClient,
	wire.Bind(new(outbound.PlatformPort), new(*discordout.Client)),
	wire.Bind(new(outbound.DirectoryPort), new(*discordout.Client)),
)

// ProvideDiscordClient creates the gateway client. It does not connect.
func ProvideDiscordClient(cfg *config.Config, m *metrics.Metrics, zapLog *zap.Logger) (*discordout.Client, error) {
	return discordout.NewClient(&discordout.Config{
		Token:             cfg.Discord.Token,
		ConnectAttempts:   cfg.Discord.ConnectAttempts,
		ReconnectAttempts: cfg.Discord.ReconnectAttempts,
		BackoffInitial:    cfg.Discord.BackoffInitial,
		BackoffMax:        cfg.Discord.BackoffMax,
	}, m, zapLog)
}

// ProvideTextProvider creates the LLM adapter.
func ProvideTextProvider(cfg *config.Config, client *http.Client, m *metrics.Metrics, zapLog *zap.Logger) outbound.TextProviderPort {
	return aiprovider.NewOpenAIProvider(client, &aiprovider.Config{
		APIKey:           cfg.AI.APIKey,
		BaseURL:          cfg.AI.BaseURL,
		Model:            cfg.AI.Model,
		FailureThreshold: cfg.AI.FailureThreshold,
		CircuitTimeout:   cfg.AI.CircuitTimeout,
	}, m, zapLog)
}

// ===== Domain Providers =====

// DomainSet provides the onboarding pipeline.
var DomainSet = wire.NewSet(
	ProvideTextProvider,
	ProvideAttributor,
	ProvideOrchestrator,
	ProvideGenerator,
	ProvideClassifier,
	ProvideRoleManager,
	ProvideOnboardingService,
	wire.Bind(new(inbound.OnboardingPort), new(*onboarding.Service)),
	wire.Bind(new(inbound.StatusPort), new(*onboarding.Service)),
)

// ProvideAttributor creates the invite attributor.
func ProvideAttributor(cfg *config.Config, platform outbound.PlatformPort, storage *Storage, m *metrics.Metrics, zapLog *zap.Logger) *invite.Attributor {
	return invite.NewAttributor(platform, storage.Stories, storage.History, &invite.Config{
		FallbackEnabled: cfg.Invite.FallbackEnabled,
	}, m, zapLog)
}

// ProvideOrchestrator creates the interview orchestrator.
func ProvideOrchestrator(cfg *config.Config, platform outbound.PlatformPort, m *metrics.Metrics, zapLog *zap.Logger) *interview.Orchestrator {
	return interview.NewOrchestrator(platform, &interview.Config{
		AnswerTimeout:   cfg.Interview.AnswerTimeout,
		PollInterval:    cfg.Interview.PollInterval,
		HistoryLimit:    cfg.Interview.HistoryLimit,
		FreshnessWindow: cfg.Interview.FreshnessWindow,
		UseThreads:      cfg.Interview.UseThreads,
		Questions:       cfg.Interview.Questions,
		StoryChannelID:  cfg.Discord.StoryChannelID,
	}, m, zapLog)
}

// ProvideGenerator creates the biography generator.
func ProvideGenerator(cfg *config.Config, provider outbound.TextProviderPort, m *metrics.Metrics, zapLog *zap.Logger) *biography.Generator {
	genCfg := biography.DefaultConfig()
	if cfg.AI.MaxTokens > 0 {
		genCfg.MaxTokens = cfg.AI.MaxTokens
	}
	genCfg.Temperature = cfg.AI.Temperature
	return biography.NewGenerator(provider, genCfg, m, zapLog)
}

// ProvideClassifier creates the membership classifier.
func ProvideClassifier(cfg *config.Config, platform outbound.PlatformPort, storage *Storage, m *metrics.Metrics, zapLog *zap.Logger) *membership.Classifier {
	return membership.NewClassifier(storage.Stories, platform, &membership.ClassifierConfig{
		AnnouncementChannelID: cfg.Discord.StoryChannelID,
		ScanLimit:             cfg.Membership.ScanLimit,
		NameMatch:             membership.NameMatchMode(cfg.Membership.NameMatch),
	}, m, zapLog)
}

// ProvideRoleManager creates the role manager.
func ProvideRoleManager(cfg *config.Config, platform outbound.PlatformPort, m *metrics.Metrics, zapLog *zap.Logger) *membership.RoleManager {
	return membership.NewRoleManager(platform, &membership.RoleConfig{
		AssociateRoleID: cfg.Discord.AssociateRoleID,
		OutsiderRoleID:  cfg.Discord.OutsiderRoleID,
	}, m, zapLog)
}

// ProvideOnboardingService creates the onboarding service.
func ProvideOnboardingService(
	cfg *config.Config,
	platform outbound.PlatformPort,
	storage *Storage,
	limiter outbound.RateLimiterPort,
	attributor *invite.Attributor,
	orchestrator *interview.Orchestrator,
	generator *biography.Generator,
	classifier *membership.Classifier,
	roles *membership.RoleManager,
	m *metrics.Metrics,
	zapLog *zap.Logger,
) (*onboarding.Service, func()) {
	svc := onboarding.NewService(onboarding.Deps{
		Platform:     platform,
		Stories:      storage.Stories,
		History:      storage.History,
		Limiter:      limiter,
		Attributor:   attributor,
		Orchestrator: orchestrator,
		Generator:    generator,
		Classifier:   classifier,
		Roles:        roles,
	}, &onboarding.Config{
		EntryChannelID: cfg.Discord.EntryChannelID,
		StoryChannelID: cfg.Discord.StoryChannelID,
		LogChannelID:   cfg.Discord.LogChannelID,
		OwnerID:        cfg.Discord.OwnerID,
		JoinLimit:      cfg.RateLimit.JoinLimit,
		JoinWindow:     cfg.RateLimit.JoinWindow,
		Configured:     configured(cfg),
	}, m, zapLog)
	return svc, func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(ctx); err != nil {
			zapLog.Warn("interviews still running at shutdown", zap.Error(err))
		}
	}
}

// configured reports which optional settings are present.
func configured(cfg *config.Config) map[string]bool {
	return map[string]bool{
		"discord_token":  cfg.Discord.Token != "",
		"openai_key":     cfg.AI.APIKey != "",
		"story_channel":  !cfg.Discord.StoryChannelID.IsZero(),
		"city_gates":     !cfg.Discord.EntryChannelID.IsZero(),
		"log_channel":    !cfg.Discord.LogChannelID.IsZero(),
		"associate_role": !cfg.Discord.AssociateRoleID.IsZero(),
		"outsider_role":  !cfg.Discord.OutsiderRoleID.IsZero(),
		"owner":          !cfg.Discord.OwnerID.IsZero(),
	}
}

// ===== Handler Providers =====

// HandlerSet provides inbound adapters.
var HandlerSet = wire.NewSet(
	ProvideEventRouter,
	ProvideSystemHandler,
	debughttp.NewHandler,
)

// ProvideEventRouter creates the gateway event router.
func ProvideEventRouter(
	cfg *config.Config,
	svc inbound.OnboardingPort,
	client *discordout.Client,
	m *metrics.Metrics,
	zapLog *zap.Logger,
) *discordin.Router {
	routerCfg := discordin.DefaultConfig()
	routerCfg.RegisterCommands = cfg.Discord.RegisterCommands
	session := client.Session()
	return discordin.NewRouter(svc, client, session, session, routerCfg, m, zapLog)
}

// ProvideSystemHandler creates the health handler with its readiness checks.
func ProvideSystemHandler(directory outbound.DirectoryPort, status inbound.StatusPort, storage *Storage, redis goredis.UniversalClient) *systemhttp.Handler {
	// The handler reports the gateway itself under "discord".
	checks := make(map[string]systemhttp.Check)
	if storage.Ping != nil {
		checks["storage"] = storage.Ping
	}
	if redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redis.Ping(ctx).Err()
		}
	}
	return systemhttp.NewHandler(directory, status, checks)
}

// AppSet is the full provider set.
var AppSet = wire.NewSet(
	InfraSet,
	PlatformSet,
	DomainSet,
	HandlerSet,
)
