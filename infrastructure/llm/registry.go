package llm

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/gavel-bench/internal/ports"
)

// ProviderConfig describes one provider known to a Registry.
type ProviderConfig struct {
	// Type selects the registered ProviderFactory.
	Type string
	// EnvVar is read when RegistryConfig.APIKeys has no entry for the provider.
	EnvVar       string
	DefaultModel string
	BaseURL      string
	// Middleware wraps the provider inside the registry-wide middleware.
	Middleware []Middleware
}

// DefaultProviders lists the built-in providers.
var DefaultProviders = map[string]ProviderConfig{
	"openai":    {Type: "openai", EnvVar: "OPENAI_API_KEY", DefaultModel: OpenAIDefaultModel},
	"anthropic": {Type: "anthropic", EnvVar: "ANTHROPIC_API_KEY", DefaultModel: AnthropicDefaultModel},
	"google":    {Type: "google", EnvVar: "GOOGLE_API_KEY", DefaultModel: GoogleDefaultModel},
}

// RegistryConfig configures NewRegistry.
type RegistryConfig struct {
	Providers       map[string]ProviderConfig
	DefaultProvider string
	APIKeys         map[string]string
	DefaultTimeout  time.Duration
	// DefaultMiddleware wraps every client, outermost first.
	DefaultMiddleware []Middleware
}

// Registry hands out one client per provider and model pair, building each
// on first use. Generation and grading often use different models, so the
// CLI resolves both through the same registry.
type Registry struct {
	cfg RegistryConfig

	mu      sync.Mutex
	clients map[string]ports.LLMClient
}

// NewRegistry validates config and returns an empty Registry.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if config.DefaultProvider == "" {
		return nil, errors.New("default provider cannot be empty")
	}
	if _, ok := config.Providers[config.DefaultProvider]; !ok {
		return nil, fmt.Errorf("default provider %q not found in providers configuration", config.DefaultProvider)
	}
	return &Registry{cfg: config, clients: make(map[string]ports.LLMClient)}, nil
}

// Providers returns the configured provider names, sorted.
func (r *Registry) Providers() []string {
	return slices.Sorted(maps.Keys(r.cfg.Providers))
}

// GetDefaultClient returns the default provider's default model.
func (r *Registry) GetDefaultClient() (ports.LLMClient, error) {
	return r.GetClient(r.cfg.DefaultProvider)
}

// GetClient resolves spec to a client. A spec is "provider/model", a bare
// provider name (its default model), or a bare model name (default provider).
func (r *Registry) GetClient(spec string) (ports.LLMClient, error) {
	if spec == "" {
		return nil, errors.New("model specification cannot be empty")
	}
	key := r.resolve(spec)

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[key]; ok {
		return c, nil
	}
	c, err := r.build(key)
	if err != nil {
		return nil, err
	}
	r.clients[key] = c
	return c, nil
}

// RegisterClient installs a pre-built client for spec.
func (r *Registry) RegisterClient(spec string, client ports.LLMClient) error {
	if spec == "" || client == nil {
		return errors.New("client specification and client are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[r.resolve(spec)] = client
	return nil
}

// resolve turns a spec into its "provider/model" cache key.
func (r *Registry) resolve(spec string) string {
	if strings.Contains(spec, "/") {
		return spec
	}
	if pc, ok := r.cfg.Providers[spec]; ok {
		return spec + "/" + pc.DefaultModel
	}
	return r.cfg.DefaultProvider + "/" + spec
}

func (r *Registry) build(key string) (ports.LLMClient, error) {
	provider, model, _ := strings.Cut(key, "/")
	pc, ok := r.cfg.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	apiKey := r.cfg.APIKeys[provider]
	if apiKey == "" && pc.EnvVar != "" {
		apiKey = os.Getenv(pc.EnvVar)
	}
	if apiKey == "" {
		return nil, ports.NewConfigError(pc.EnvVar,
			fmt.Errorf("no API key for provider %q: %w", provider, ports.ErrConfigNotFound))
	}

	return NewClient(pc.Type, ClientConfig{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    pc.BaseURL,
		Timeout:    r.cfg.DefaultTimeout,
		Middleware: slices.Concat(r.cfg.DefaultMiddleware, pc.Middleware),
	})
}
