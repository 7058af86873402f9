// Package llm holds one Provider implementation per backend and the static
// registry that maps identifiers to constructors. All vendor idiosyncrasy
// lives here; nothing above this package knows a vendor's wire format.
package llm

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"iacgenius/internal/domain/entity"
	"iacgenius/internal/domain/repository"
)

// Options carries the construction-time inputs shared by all providers.
type Options struct {
	// StoredSecret is the decrypted default secret from the settings store,
	// lowest rung of the credential precedence ladder.
	StoredSecret string
	// OllamaBaseURL overrides the local daemon address; empty means the
	// default http://localhost:11434.
	OllamaBaseURL string
	// BedrockRegion overrides the AWS region resolution for Bedrock.
	BedrockRegion string
	Logger        *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

type constructor func(ctx context.Context, explicitSecret string, opts Options) (repository.Provider, error)

// providerOrder fixes the enumeration order of the registry.
var providerOrder = []string{
	ProviderDeepseek,
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderOpenRouter,
	ProviderBedrock,
	ProviderOllama,
}

var constructors = map[string]constructor{
	ProviderDeepseek:   newDeepseek,
	ProviderOpenAI:     newOpenAI,
	ProviderAnthropic:  newAnthropic,
	ProviderOpenRouter: newOpenRouter,
	ProviderBedrock:    newBedrock,
	ProviderOllama:     newOllama,
}

const (
	ProviderDeepseek   = "deepseek"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
	ProviderBedrock    = "bedrock"
	ProviderOllama     = "ollama"
)

// Providers returns the registered identifiers in stable order.
func Providers() []string {
	out := make([]string, len(providerOrder))
	copy(out, providerOrder)
	return out
}

// RequiresSecret reports whether the named backend needs a bearer secret.
// Bedrock uses ambient IAM credentials and Ollama is a local daemon.
func RequiresSecret(name string) bool {
	switch name {
	case ProviderBedrock, ProviderOllama:
		return false
	default:
		return true
	}
}

// New constructs the named provider. Unknown identifiers and construction
// failures both surface as configuration errors carrying the provider name.
func New(ctx context.Context, name, explicitSecret string, opts Options) (repository.Provider, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, entity.NewConfigError(name, Providers(), "unsupported provider")
	}
	p, err := ctor(ctx, explicitSecret, opts)
	if err != nil {
		var cfgErr *entity.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &entity.ConfigError{Provider: name, Reason: "failed to initialize provider", Err: err}
	}
	return p, nil
}

// resolveSecret applies the credential precedence chain: explicit argument >
// generic environment variable > provider-specific environment variable >
// stored default.
func resolveSecret(explicit, providerName, stored string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv("IACGENIUS_API_KEY"); v != "" {
		return v
	}
	envVar := strings.ToUpper(providerName) + "_API_KEY"
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return stored
}

// missingSecretError names the env var a user can set to fix the problem.
func missingSecretError(providerName string) error {
	return &entity.ConfigError{
		Provider: providerName,
		Reason:   "API key not configured (set " + strings.ToUpper(providerName) + "_API_KEY or store a default)",
	}
}
