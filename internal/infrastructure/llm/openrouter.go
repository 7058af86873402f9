package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"iacgenius/internal/domain/entity"
	"iacgenius/internal/domain/repository"
	"iacgenius/internal/infrastructure/metrics"
)

const openrouterBaseURL = "https://openrouter.ai/api/v1"

// openrouterKnownModels seeds the listing so common choices appear even when
// the catalog omits them.
var openrouterKnownModels = []string{
	"anthropic/claude-3.5-sonnet",
	"openai/gpt-4o",
	"meta-llama/llama-3.1-70b-instruct",
	"deepseek/deepseek-chat",
}

// OpenRouter fronts many upstream vendors behind one chat-completions API.
type OpenRouter struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ repository.Provider = (*OpenRouter)(nil)

func newOpenRouter(_ context.Context, explicitSecret string, opts Options) (repository.Provider, error) {
	key := resolveSecret(explicitSecret, ProviderOpenRouter, opts.StoredSecret)
	if key == "" {
		return nil, missingSecretError(ProviderOpenRouter)
	}
	return &OpenRouter{
		apiKey:  key,
		baseURL: openrouterBaseURL,
		client:  newHTTPClient(),
		logger:  opts.logger(),
	}, nil
}

func (p *OpenRouter) Name() string { return ProviderOpenRouter }

func (p *OpenRouter) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + p.apiKey,
		"HTTP-Referer":  "https://github.com/iacgenius/iacgenius",
		"X-Title":       "iacgenius",
	}
}

func (p *OpenRouter) Validate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	status, body, err := doJSON(ctx, p.client, http.MethodGet, p.baseURL+"/auth/key", p.headers(), nil)
	if err != nil {
		return &entity.ValidationError{Provider: p.Name(), Err: err}
	}
	if status == http.StatusUnauthorized {
		return &entity.ValidationError{Provider: p.Name(), Err: fmt.Errorf("API key rejected")}
	}
	if status != http.StatusOK {
		return &entity.ValidationError{Provider: p.Name(), Err: statusError(status, body)}
	}
	return nil
}

// ListModels merges the live catalog with the seed list. Catalog failure is a
// degraded, unconstrained result: a constraining fallback would reject every
// routable model outside the seeds.
func (p *OpenRouter) ListModels(ctx context.Context) entity.ModelList {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	seed := make([]string, len(openrouterKnownModels))
	copy(seed, openrouterKnownModels)

	status, body, err := doJSON(ctx, p.client, http.MethodGet, p.baseURL+"/models", p.headers(), nil)
	if err == nil && status != http.StatusOK {
		err = statusError(status, body)
	}
	if err != nil {
		p.logger.Warn("model listing failed", "provider", p.Name(), "err", err)
		metrics.IncListingDegraded(p.Name())
		return entity.DegradedModels(err.Error())
	}

	var parsed struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		p.logger.Warn("model listing returned unexpected body", "provider", p.Name(), "err", err)
		metrics.IncListingDegraded(p.Name())
		return entity.DegradedModels(err.Error())
	}

	seen := make(map[string]bool, len(seed))
	for _, m := range seed {
		seen[m] = true
	}
	models := seed
	for _, m := range parsed.Data {
		if m.ID != "" && !seen[m.ID] {
			seen[m.ID] = true
			models = append(models, m.ID)
		}
	}
	return entity.OkModels(models)
}

func (p *OpenRouter) Generate(ctx context.Context, prompt, model string, temperature float64, maxTokens int) (string, error) {
	if model == "" {
		model = "anthropic/claude-3.5-sonnet"
	}
	metrics.IncGenerationRequest(p.Name(), model)
	start := time.Now()
	defer func() { metrics.ObserveGenerationDuration(p.Name(), time.Since(start)) }()

	payload := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": entity.SystemInstruction},
			{"role": "user", "content": prompt},
		},
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}

	status, body, err := doJSON(ctx, p.client, http.MethodPost, p.baseURL+"/chat/completions", p.headers(), payload)
	if err != nil {
		metrics.IncError("llm", "openrouter_request")
		return "", &entity.GenerationError{Provider: p.Name(), Stage: "request", Err: err}
	}
	if status != http.StatusOK {
		metrics.IncError("llm", fmt.Sprintf("openrouter_api_error_%d", status))
		return "", &entity.GenerationError{Provider: p.Name(), Stage: "response", Err: statusError(status, body)}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content *string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &entity.GenerationError{Provider: p.Name(), Stage: "decode", Err: err}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == nil {
		return "", &entity.GenerationError{Provider: p.Name(), Stage: "decode", Err: fmt.Errorf("response missing choices[0].message.content")}
	}
	return strings.TrimSpace(*parsed.Choices[0].Message.Content), nil
}
