package biography

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/outbound"
	"github.com/devmob/onboard/internal/utils/metrics"
)

// Placeholders returned instead of a biography.
const (
	PlaceholderConfiguration = "Something is wrong with the AI configuration."
	PlaceholderEmpty         = "The AI returned no content."
	PlaceholderUnexpected    = "An unexpected error occurred while generating the story."
	placeholderStatusPrefix  = "Something went wrong while generating the story (OpenAI). Code: "
)

// Keys that the prompt template renders by name.
var templatedKeys = map[string]bool{
	"expectation":   true,
	"mafiaNickname": true,
	"superpower":    true,
	"prosAndCons":   true,
}

// Config holds generator configuration.
type Config struct {
	Community   string
	City        string
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		Community:   "the DevMob",
		City:        "The Underworld",
		MaxTokens:   800,
		Temperature: 1.0,
	}
}

// Request is the input of one biography.
type Request struct {
	Answers          model.Answers
	InviterName      string
	InviterRole      string
	InviterBiography string
}

// RequestFromInviter builds a request from answers and resolved inviter context.
func RequestFromInviter(answers model.Answers, inviter model.InviterInfo) Request {
	return Request{
		Answers:          answers,
		InviterName:      inviter.Name,
		InviterRole:      inviter.TopRoleName,
		InviterBiography: inviter.PreviousBiography,
	}
}

// Generator turns interview answers into a narrative biography. It is stateless
// and never retries.
type Generator struct {
	provider outbound.TextProviderPort
	config   *Config
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewGenerator creates a new biography generator.
func NewGenerator(provider outbound.TextProviderPort, config *Config, m *metrics.Metrics, logger *zap.Logger) *Generator {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		provider: provider,
		config:   config,
		metrics:  m,
		logger:   logger.Named("biography"),
	}
}

// BuildPrompt renders the prompt for req. It is deterministic.
func (g *Generator) BuildPrompt(req Request) (string, error) {
	data := promptData{
		Community: g.config.Community,
		City:      g.config.City,
		Answers:   make(map[string]string, len(req.Answers)),
		Inviter: inviterData{
			Name:      req.InviterName,
			Role:      req.InviterRole,
			Biography: req.InviterBiography,
		},
	}
	for key := range templatedKeys {
		data.Answers[key] = ""
	}
	for _, a := range req.Answers {
		if templatedKeys[a.Key] {
			data.Answers[a.Key] = a.Text
			continue
		}
		data.Extra = append(data.Extra, extraAnswer{Question: a.Question, Text: a.Text})
	}

	var b strings.Builder
	if err := prompt.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// Generate returns the biography text, or a placeholder describing why none
// could be produced.
func (g *Generator) Generate(ctx context.Context, req Request) string {
	if g.provider == nil {
		g.metrics.RecordLLMRequest("unconfigured", 0)
		g.logger.Error("text provider not configured")
		return PlaceholderConfiguration
	}

	p, err := g.BuildPrompt(req)
	if err != nil {
		g.logger.Error("failed to build prompt", zap.Error(err))
		return PlaceholderUnexpected
	}

	start := time.Now()
	text, err := g.provider.Complete(ctx, p, outbound.CompletionOptions{
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	})
	elapsed := time.Since(start)

	if err != nil {
		return g.placeholderFor(err, elapsed)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		g.metrics.RecordLLMRequest("empty", elapsed)
		g.logger.Warn("text provider returned no content")
		return PlaceholderEmpty
	}

	g.metrics.RecordLLMRequest("success", elapsed)
	g.logger.Info("biography generated",
		zap.Int("length", len(text)),
		zap.Duration("elapsed", elapsed),
		zap.Bool("has_inviter", req.InviterName != ""),
	)
	return text
}

func (g *Generator) placeholderFor(err error, elapsed time.Duration) string {
	var perr *outbound.ProviderError
	switch {
	case errors.Is(err, outbound.ErrProviderNotConfigured):
		g.metrics.RecordLLMRequest("unconfigured", elapsed)
		g.logger.Error("text provider not configured")
		return PlaceholderConfiguration
	case errors.Is(err, outbound.ErrEmptyCompletion):
		g.metrics.RecordLLMRequest("empty", elapsed)
		g.logger.Warn("text provider returned no content")
		return PlaceholderEmpty
	case errors.As(err, &perr) && perr.StatusCode > 0:
		g.metrics.RecordLLMRequest("error", elapsed)
		g.logger.Error("text provider failed", zap.Int("status", perr.StatusCode), zap.Error(err))
		return fmt.Sprintf("%s%d", placeholderStatusPrefix, perr.StatusCode)
	default:
		g.metrics.RecordLLMRequest("error", elapsed)
		g.logger.Error("text provider failed", zap.Error(err))
		return PlaceholderUnexpected
	}
}

// IsPlaceholder reports whether text is one of the generator's failure placeholders.
func IsPlaceholder(text string) bool {
	switch text {
	case PlaceholderConfiguration, PlaceholderEmpty, PlaceholderUnexpected:
		return true
	}
	return strings.HasPrefix(text, placeholderStatusPrefix)
}
