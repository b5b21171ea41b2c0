// Package discord adapts the Discord gateway and REST API to the outbound ports.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/devmob/onboard/internal/utils/metrics"
)

// Intents needed for invites, member joins and reading answers.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildInvites |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent

var (
	// ErrMissingToken is returned when no bot token is configured.
	ErrMissingToken = errors.New("discord bot token is not configured")
	// ErrNotConnected is returned by calls that need a live gateway session.
	ErrNotConnected = errors.New("discord session is not connected")
)

// Config holds gateway connection settings.
type Config struct {
	Token             string
	ConnectAttempts   uint
	ReconnectAttempts uint
	BackoffInitial    time.Duration
	BackoffMax        time.Duration
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		ConnectAttempts:   5,
		ReconnectAttempts: 3,
		BackoffInitial:    2 * time.Second,
		BackoffMax:        30 * time.Second,
	}
}

// Client owns the gateway session and implements the platform ports.
type Client struct {
	session   *discordgo.Session
	config    *Config
	metrics   *metrics.Metrics
	logger    *zap.Logger
	connected atomic.Bool
	// open is swapped in tests.
	open func() error
}

// NewClient creates a client. The gateway is not opened until Connect.
func NewClient(config *Config, m *metrics.Metrics, logger *zap.Logger) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Token == "" {
		return nil, ErrMissingToken
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	session, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = Intents
	session.StateEnabled = true
	session.ShouldReconnectOnError = true

	c := &Client{
		session: session,
		config:  config,
		metrics: m,
		logger:  logger.Named("discord"),
	}
	c.open = session.Open

	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Connect) {
		c.connected.Store(true)
	})
	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		c.connected.Store(false)
		c.logger.Warn("gateway disconnected")
	})
	return c, nil
}

// Session returns the underlying gateway session.
func (c *Client) Session() *discordgo.Session {
	return c.session
}

// Connect opens the gateway, retrying with exponential backoff.
func (c *Client) Connect(ctx context.Context) error {
	return c.openWithRetry(ctx, c.config.ConnectAttempts, "connect")
}

// Reconnect closes and reopens the gateway with fewer retry attempts.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.session.Close()
	c.connected.Store(false)
	return c.openWithRetry(ctx, c.config.ReconnectAttempts, "reconnect")
}

func (c *Client) openWithRetry(ctx context.Context, attempts uint, op string) error {
	if attempts == 0 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	if c.config.BackoffInitial > 0 {
		b.InitialInterval = c.config.BackoffInitial
	}
	if c.config.BackoffMax > 0 {
		b.MaxInterval = c.config.BackoffMax
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if err := c.open(); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.metrics.RecordPlatformError(op)
			c.logger.Warn("gateway open failed, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("next", next),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("discord %s after %d attempts: %w", op, attempt, err)
	}

	c.connected.Store(true)
	c.logger.Info("gateway connected", zap.String("op", op), zap.Int("attempt", attempt))
	return nil
}

// Watch reconnects the gateway when it has stayed down for two consecutive
// checks. discordgo resumes on its own first; Watch only covers the case
// where that gives up. It returns when ctx is done.
func (c *Client) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	down := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if c.connected.Load() {
			down = 0
			continue
		}
		down++
		if down < 2 {
			continue
		}
		if err := c.Reconnect(ctx); err != nil {
			c.logger.Error("gateway reconnect failed", zap.Error(err))
			continue
		}
		down = 0
	}
}

// Close closes the gateway session.
func (c *Client) Close() error {
	c.connected.Store(false)
	return c.session.Close()
}
