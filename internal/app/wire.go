//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	// Domains
	"github.com/devmob/onboard/internal/domain/onboarding"

	// Inbound adapters
	discordin "github.com/devmob/onboard/internal/adapter/inbound/discord"
	debughttp "github.com/devmob/onboard/internal/adapter/inbound/http/debug"
	systemhttp "github.com/devmob/onboard/internal/adapter/inbound/http/system"

	// Outbound adapters
	discordout "github.com/devmob/onboard/internal/adapter/outbound/discord"

	// Ports
	"github.com/devmob/onboard/internal/port/outbound"

	// Infrastructure
	"github.com/devmob/onboard/internal/infra/config"

	// Utils
	"github.com/devmob/onboard/internal/utils/metrics"
)

// Dependencies holds all injected dependencies.
type Dependencies struct {
	Config      *config.Config
	Redis       goredis.UniversalClient
	RateLimiter outbound.RateLimiterPort
	Storage     *Storage
	ZapLogger   *zap.Logger
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics

	// Gateway
	Client      *discordout.Client
	EventRouter *discordin.Router
	Onboarding  *onboarding.Service

	// HTTP Handlers
	SystemHandler *systemhttp.Handler
	DebugHandler  *debughttp.Handler
}

// InitializeDependencies creates all dependencies using Wire.
func InitializeDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	wire.Build(
		AppSet,
		wire.Struct(new(Dependencies), "*"),
	)
	return nil, nil, nil
}
