package application

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Config is the process configuration read from the environment.
type Config struct {
	// Provider selects the model provider for both call types.
	Provider string `env:"GAVEL_PROVIDER,default=openai" validate:"required,oneof=openai anthropic google"`

	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GoogleAPIKey    string `env:"GOOGLE_API_KEY"`

	// BaseURL overrides the provider endpoint, e.g. for a compatible proxy.
	BaseURL string `env:"GAVEL_BASE_URL" validate:"omitempty,url"`

	// InvocationModel and JudgeModel name the models for each call type.
	// Empty selects the provider's default model.
	InvocationModel string `env:"GAVEL_INVOCATION_MODEL"`
	JudgeModel      string `env:"GAVEL_JUDGE_MODEL"`

	// Concurrency is the number of model calls kept in flight per batch.
	Concurrency int `env:"GAVEL_CONCURRENCY,default=25" validate:"min=1,max=1000"`

	// RequestTimeout bounds each model call. Zero disables the timeout.
	RequestTimeout time.Duration `env:"GAVEL_REQUEST_TIMEOUT,default=2m" validate:"min=0s,max=30m"`

	LogLevel string `env:"GAVEL_LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`

	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `env:"GAVEL_METRICS_ADDR"`

	S3 S3Config
}

// S3Config configures s3:// result locations.
type S3Config struct {
	Endpoint  string `env:"GAVEL_S3_ENDPOINT" validate:"omitempty,url"`
	Region    string `env:"GAVEL_S3_REGION"`
	AccessKey string `env:"GAVEL_S3_ACCESS_KEY"`
	SecretKey string `env:"GAVEL_S3_SECRET_KEY"`
}

// LoadConfig reads the configuration through lookuper and validates it.
// Pass envconfig.OsLookuper() to read the process environment.
func LoadConfig(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validateStruct(validate, "Config", cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// APIKeys maps provider names to the configured keys. Empty keys are omitted.
func (c Config) APIKeys() map[string]string {
	keys := make(map[string]string, 3)
	for provider, key := range map[string]string{
		"openai":    c.OpenAIAPIKey,
		"anthropic": c.AnthropicAPIKey,
		"google":    c.GoogleAPIKey,
	} {
		if key != "" {
			keys[provider] = key
		}
	}
	return keys
}

// InvocationSpec is the client specification for dispatch calls: the
// configured model, or the provider name when no model is set.
func (c Config) InvocationSpec() string { return cmp.Or(c.InvocationModel, c.Provider) }

// JudgeSpec is InvocationSpec for judge calls.
func (c Config) JudgeSpec() string { return cmp.Or(c.JudgeModel, c.Provider) }

// SlogLevel converts LogLevel to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
