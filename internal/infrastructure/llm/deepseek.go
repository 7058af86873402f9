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

const deepseekBaseURL = "https://api.deepseek.com/v1"

// Deepseek talks to the DeepSeek chat-completions API with a bearer secret.
type Deepseek struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ repository.Provider = (*Deepseek)(nil)

func newDeepseek(_ context.Context, explicitSecret string, opts Options) (repository.Provider, error) {
	key := resolveSecret(explicitSecret, ProviderDeepseek, opts.StoredSecret)
	if key == "" {
		return nil, missingSecretError(ProviderDeepseek)
	}
	return &Deepseek{
		apiKey:  key,
		baseURL: deepseekBaseURL,
		client:  newHTTPClient(),
		logger:  opts.logger(),
	}, nil
}

func (p *Deepseek) Name() string { return ProviderDeepseek }

func (p *Deepseek) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.apiKey}
}

func (p *Deepseek) Validate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	status, body, err := doJSON(ctx, p.client, http.MethodGet, p.baseURL+"/models", p.headers(), nil)
	if err != nil {
		return &entity.ValidationError{Provider: p.Name(), Err: err}
	}
	if status != http.StatusOK {
		return &entity.ValidationError{Provider: p.Name(), Err: statusError(status, body)}
	}
	return nil
}

func (p *Deepseek) ListModels(ctx context.Context) entity.ModelList {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

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

	var models []string
	for _, m := range parsed.Data {
		if m.ID != "" {
			models = append(models, m.ID)
		}
	}
	return entity.OkModels(models)
}

func (p *Deepseek) Generate(ctx context.Context, prompt, model string, temperature float64, maxTokens int) (string, error) {
	if model == "" {
		model = "deepseek-chat"
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
		metrics.IncError("llm", "deepseek_request")
		return "", &entity.GenerationError{Provider: p.Name(), Stage: "request", Err: err}
	}
	if status != http.StatusOK {
		metrics.IncError("llm", fmt.Sprintf("deepseek_api_error_%d", status))
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
