package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/devmob/onboard/internal/model"
	apperrors "github.com/devmob/onboard/internal/shared/errors"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Discord    DiscordConfig    `mapstructure:"discord"`
	Interview  InterviewConfig  `mapstructure:"interview"`
	Invite     InviteConfig     `mapstructure:"invite"`
	Membership MembershipConfig `mapstructure:"membership"`
	AI         AIConfig         `mapstructure:"ai"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	S3         S3Config         `mapstructure:"s3"`
	Redis      RedisConfig      `mapstructure:"redis"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	HTTPClient HTTPClientConfig `mapstructure:"http_client"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	EnableDebug  bool          `mapstructure:"enable_debug"` // /debug/* routes
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// DiscordConfig holds the bot account and the guild ids it works with.
type DiscordConfig struct {
	Token             string          `mapstructure:"token"`
	StoryChannelID    model.Snowflake `mapstructure:"story_channel_id"`
	EntryChannelID    model.Snowflake `mapstructure:"entry_channel_id"` // "city gates"
	LogChannelID      model.Snowflake `mapstructure:"log_channel_id"`
	AssociateRoleID   model.Snowflake `mapstructure:"associate_role_id"`
	OutsiderRoleID    model.Snowflake `mapstructure:"outsider_role_id"`
	OwnerID           model.Snowflake `mapstructure:"owner_id"`
	RegisterCommands  bool            `mapstructure:"register_commands"`
	ConnectAttempts   uint            `mapstructure:"connect_attempts"`
	ReconnectAttempts uint            `mapstructure:"reconnect_attempts"`
	BackoffInitial    time.Duration   `mapstructure:"backoff_initial"`
	BackoffMax        time.Duration   `mapstructure:"backoff_max"`
}

// InterviewConfig holds interview timing and questions.
type InterviewConfig struct {
	AnswerTimeout   time.Duration    `mapstructure:"answer_timeout"`
	PollInterval    time.Duration    `mapstructure:"poll_interval"`
	HistoryLimit    int              `mapstructure:"history_limit"`
	FreshnessWindow time.Duration    `mapstructure:"freshness_window"` // 0 disables
	UseThreads      bool             `mapstructure:"use_threads"`
	Questions       []model.Question `mapstructure:"questions"` // empty uses the built-in list
}

// InviteConfig holds attribution policy.
type InviteConfig struct {
	FallbackEnabled bool `mapstructure:"fallback_enabled"`
}

// MembershipConfig holds returning-member detection settings.
type MembershipConfig struct {
	ScanLimit int    `mapstructure:"scan_limit"`
	NameMatch string `mapstructure:"name_match"` // exact, substring, off
}

// AIConfig holds text provider configuration.
type AIConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	BaseURL          string        `mapstructure:"base_url"`
	Model            string        `mapstructure:"model"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	Temperature      float64       `mapstructure:"temperature"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	CircuitTimeout   time.Duration `mapstructure:"circuit_timeout"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	Driver      string `mapstructure:"driver"` // json, sqlite, postgres, s3
	DataDir     string `mapstructure:"data_dir"`
	StoriesFile string `mapstructure:"stories_file"`
	HistoryFile string `mapstructure:"history_file"`
	SQLitePath  string `mapstructure:"sqlite_path"`
}

// StoriesPath returns the biography file location.
func (c *StorageConfig) StoriesPath() string {
	return filepath.Join(c.DataDir, c.StoriesFile)
}

// HistoryPath returns the invite history file location.
func (c *StorageConfig) HistoryPath() string {
	return filepath.Join(c.DataDir, c.HistoryFile)
}

// DatabaseConfig holds PostgreSQL configuration for the postgres driver.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// S3Config holds object storage configuration for the s3 driver.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"` // empty uses AWS
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
}

// RedisConfig holds Redis configuration. An empty address disables Redis.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig holds command cooldown configuration.
type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	JoinLimit   int           `mapstructure:"join_limit"`
	JoinWindow  time.Duration `mapstructure:"join_window"`
	DebugLimit  int           `mapstructure:"debug_limit"`
	DebugWindow time.Duration `mapstructure:"debug_window"`
}

// HTTPClientConfig holds HTTP client configuration for connection pooling.
type HTTPClientConfig struct {
	// Connection pool settings
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`

	// Timeout settings
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	ResponseTimeout     time.Duration `mapstructure:"response_timeout"`

	// Keep-alive settings
	KeepAlive time.Duration `mapstructure:"keep_alive"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Set config file name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/onboard")

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	// Read from environment variables
	v.SetEnvPrefix("ONBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Legacy deployment variables win over file and prefixed env values
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		cfg.Discord.Token = token
	}
	if key := os.Getenv("OPENAI_KEY"); key != "" {
		cfg.AI.APIKey = key
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Address = ":" + port
	}
	ids := []struct {
		env    string
		target *model.Snowflake
	}{
		{"DISCORD_STORY_CHANNEL_ID", &cfg.Discord.StoryChannelID},
		{"DISCORD_CITY_GATES_CHANNEL_ID", &cfg.Discord.EntryChannelID},
		{"DISCORD_LOG_CHANNEL_ID", &cfg.Discord.LogChannelID},
		{"DISCORD_ASSOCIATE_ROLE_ID", &cfg.Discord.AssociateRoleID},
		{"DISCORD_OUTSIDER_ROLE_ID", &cfg.Discord.OutsiderRoleID},
		{"DISCORD_OWNER_ID", &cfg.Discord.OwnerID},
	}
	for _, id := range ids {
		raw := os.Getenv(id.env)
		if raw == "" {
			continue
		}
		parsed, err := model.ParseSnowflake(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id.env, err)
		}
		*id.target = parsed
	}

	return &cfg, nil
}

// Validate checks the configuration. Missing optional values are returned as
// warnings and disable the feature that needs them; only a missing token is fatal.
func (c *Config) Validate() ([]error, error) {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return nil, apperrors.ConfigurationMissing("DISCORD_TOKEN")
	}

	var warnings []error
	optional := []struct {
		key     string
		missing bool
	}{
		{"OPENAI_KEY", c.AI.APIKey == ""},
		{"DISCORD_STORY_CHANNEL_ID", c.Discord.StoryChannelID.IsZero()},
		{"DISCORD_CITY_GATES_CHANNEL_ID", c.Discord.EntryChannelID.IsZero()},
		{"DISCORD_LOG_CHANNEL_ID", c.Discord.LogChannelID.IsZero()},
		{"DISCORD_ASSOCIATE_ROLE_ID", c.Discord.AssociateRoleID.IsZero()},
		{"DISCORD_OUTSIDER_ROLE_ID", c.Discord.OutsiderRoleID.IsZero()},
		{"DISCORD_OWNER_ID", c.Discord.OwnerID.IsZero()},
	}
	for _, o := range optional {
		if o.missing {
			warnings = append(warnings, apperrors.ConfigurationMissing(o.key))
		}
	}

	switch c.Membership.NameMatch {
	case "exact", "substring", "off":
	default:
		return warnings, fmt.Errorf("membership.name_match: unknown mode %q", c.Membership.NameMatch)
	}
	switch c.Storage.Driver {
	case "json", "sqlite":
	case "postgres":
		if c.Database.Host == "" || c.Database.Database == "" {
			return warnings, fmt.Errorf("database: host and database are required by the postgres driver")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return warnings, fmt.Errorf("s3: bucket is required by the s3 driver")
		}
	default:
		return warnings, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if c.Interview.AnswerTimeout <= 0 || c.Interview.PollInterval <= 0 {
		return warnings, fmt.Errorf("interview: answer_timeout and poll_interval must be positive")
	}

	return warnings, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.enable_debug", true)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Discord defaults
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.story_channel_id", 0)
	v.SetDefault("discord.entry_channel_id", 0)
	v.SetDefault("discord.log_channel_id", 0)
	v.SetDefault("discord.associate_role_id", 0)
	v.SetDefault("discord.outsider_role_id", 0)
	v.SetDefault("discord.owner_id", 0)
	v.SetDefault("discord.register_commands", true)
	v.SetDefault("discord.connect_attempts", 5)
	v.SetDefault("discord.reconnect_attempts", 3)
	v.SetDefault("discord.backoff_initial", 2*time.Second)
	v.SetDefault("discord.backoff_max", 30*time.Second)

	// Interview defaults
	v.SetDefault("interview.answer_timeout", 180*time.Second)
	v.SetDefault("interview.poll_interval", time.Second)
	v.SetDefault("interview.history_limit", 10)
	v.SetDefault("interview.freshness_window", 0)
	v.SetDefault("interview.use_threads", true)

	// Invite defaults
	v.SetDefault("invite.fallback_enabled", true)

	// Membership defaults
	v.SetDefault("membership.scan_limit", 200)
	v.SetDefault("membership.name_match", "exact")

	// AI defaults
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.max_tokens", 800)
	v.SetDefault("ai.temperature", 1.0)
	v.SetDefault("ai.failure_threshold", 5)
	v.SetDefault("ai.circuit_timeout", 60*time.Second)

	// Storage defaults
	v.SetDefault("storage.driver", "json")
	v.SetDefault("storage.data_dir", ".")
	v.SetDefault("storage.stories_file", "stories.json")
	v.SetDefault("storage.history_file", "invite_history.json")
	v.SetDefault("storage.sqlite_path", "onboard.db")

	// Database defaults
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "onboard")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 10*time.Minute)

	// S3 defaults
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "auto")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "onboard")

	// Redis defaults
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.join_limit", 3)
	v.SetDefault("rate_limit.join_window", 10*time.Minute)
	v.SetDefault("rate_limit.debug_limit", 60)
	v.SetDefault("rate_limit.debug_window", time.Minute)

	// HTTP client defaults
	v.SetDefault("http_client.max_idle_conns", 20)
	v.SetDefault("http_client.max_idle_conns_per_host", 10)
	v.SetDefault("http_client.idle_conn_timeout", 90*time.Second)
	v.SetDefault("http_client.dial_timeout", 30*time.Second)
	v.SetDefault("http_client.tls_handshake_timeout", 10*time.Second)
	v.SetDefault("http_client.response_timeout", 120*time.Second)
	v.SetDefault("http_client.keep_alive", 30*time.Second)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
