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

const ollamaDefaultBaseURL = "http://localhost:11434"

// Ollama talks to a local Ollama daemon. No secret is involved; construction
// fails fast when the daemon is unreachable so misconfiguration shows up as a
// configuration error instead of a generation failure later.
type Ollama struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ repository.Provider = (*Ollama)(nil)

func newOllama(ctx context.Context, _ string, opts Options) (repository.Provider, error) {
	baseURL := opts.OllamaBaseURL
	if baseURL == "" {
		baseURL = ollamaDefaultBaseURL
	}
	p := &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(),
		logger:  opts.logger(),
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	status, body, err := doJSON(probeCtx, p.client, http.MethodGet, p.baseURL+"/api/tags", nil, nil)
	if err != nil {
		return nil, &entity.ConfigError{
			Provider: ProviderOllama,
			Reason:   fmt.Sprintf("ollama daemon unreachable at %s", p.baseURL),
			Err:      err,
		}
	}
	if status != http.StatusOK {
		return nil, &entity.ConfigError{
			Provider: ProviderOllama,
			Reason:   fmt.Sprintf("ollama daemon unhealthy at %s", p.baseURL),
			Err:      statusError(status, body),
		}
	}
	return p, nil
}

func (p *Ollama) Name() string { return ProviderOllama }

func (p *Ollama) Validate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	status, body, err := doJSON(ctx, p.client, http.MethodGet, p.baseURL+"/api/tags", nil, nil)
	if err != nil {
		return &entity.ValidationError{Provider: p.Name(), Err: err}
	}
	if status != http.StatusOK {
		return &entity.ValidationError{Provider: p.Name(), Err: statusError(status, body)}
	}
	return nil
}

func (p *Ollama) ListModels(ctx context.Context) entity.ModelList {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	status, body, err := doJSON(ctx, p.client, http.MethodGet, p.baseURL+"/api/tags", nil, nil)
	if err == nil && status != http.StatusOK {
		err = statusError(status, body)
	}
	if err != nil {
		p.logger.Warn("model listing failed", "provider", p.Name(), "err", err)
		metrics.IncListingDegraded(p.Name())
		return entity.DegradedModels(err.Error())
	}

	var parsed struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		p.logger.Warn("model listing returned unexpected body", "provider", p.Name(), "err", err)
		metrics.IncListingDegraded(p.Name())
		return entity.DegradedModels(err.Error())
	}

	var models []string
	for _, m := range parsed.Models {
		if m.Name != "" {
			models = append(models, m.Name)
		}
	}
	return entity.OkModels(models)
}

func (p *Ollama) Generate(ctx context.Context, prompt, model string, temperature float64, maxTokens int) (string, error) {
	if model == "" {
		model = "llama3.1"
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
		"stream": false,
		"options": map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}

	status, body, err := doJSON(ctx, p.client, http.MethodPost, p.baseURL+"/api/chat", nil, payload)
	if err != nil {
		metrics.IncError("llm", "ollama_request")
		return "", &entity.GenerationError{Provider: p.Name(), Stage: "request", Err: err}
	}
	if status != http.StatusOK {
		metrics.IncError("llm", fmt.Sprintf("ollama_api_error_%d", status))
		return "", &entity.GenerationError{Provider: p.Name(), Stage: "response", Err: statusError(status, body)}
	}

	var parsed struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &entity.GenerationError{Provider: p.Name(), Stage: "decode", Err: err}
	}
	if parsed.Message.Content == nil {
		return "", &entity.GenerationError{Provider: p.Name(), Stage: "decode", Err: fmt.Errorf("response missing message.content")}
	}
	return strings.TrimSpace(*parsed.Message.Content), nil
}
