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

const (
	anthropicBaseURL    = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"
)

// anthropicModels is the advertised set; Anthropic has no public listing
// endpoint usable with just an API key probe.
var anthropicModels = []string{
	"claude-3-5-sonnet-latest",
	"claude-3-opus-latest",
	"claude-3-haiku-20240307",
}

// Anthropic talks to the Anthropic messages API. Auth goes through the
// x-api-key header rather than a bearer token.
type Anthropic struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ repository.Provider = (*Anthropic)(nil)

func newAnthropic(_ context.Context, explicitSecret string, opts Options) (repository.Provider, error) {
	key := resolveSecret(explicitSecret, ProviderAnthropic, opts.StoredSecret)
	if key == "" {
		return nil, missingSecretError(ProviderAnthropic)
	}
	return &Anthropic{
		apiKey:  key,
		baseURL: anthropicBaseURL,
		client:  newHTTPClient(),
		logger:  opts.logger(),
	}, nil
}

func (p *Anthropic) Name() string { return ProviderAnthropic }

func (p *Anthropic) headers() map[string]string {
	return map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicAPIVersion,
	}
}

// Validate probes the messages endpoint with a deliberately malformed request.
// A 400 means the key was accepted and the payload rejected, which is the
// success signal here; 401/403 mean the key itself is bad.
func (p *Anthropic) Validate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	payload := map[string]any{"max_tokens": 1, "messages": []any{}}
	status, body, err := doJSON(ctx, p.client, http.MethodPost, p.baseURL+"/messages", p.headers(), payload)
	if err != nil {
		return &entity.ValidationError{Provider: p.Name(), Err: err}
	}
	if status == http.StatusBadRequest || status == http.StatusOK {
		return nil
	}
	return &entity.ValidationError{Provider: p.Name(), Err: statusError(status, body)}
}

func (p *Anthropic) ListModels(_ context.Context) entity.ModelList {
	out := make([]string, len(anthropicModels))
	copy(out, anthropicModels)
	return entity.OkModels(out)
}

func (p *Anthropic) Generate(ctx context.Context, prompt, model string, temperature float64, maxTokens int) (string, error) {
	if model == "" {
		model = "claude-3-5-sonnet-latest"
	}
	metrics.IncGenerationRequest(p.Name(), model)
	start := time.Now()
	defer func() { metrics.ObserveGenerationDuration(p.Name(), time.Since(start)) }()

	payload := map[string]any{
		"model":       model,
		"system":      entity.SystemInstruction,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}

	status, body, err := doJSON(ctx, p.client, http.MethodPost, p.baseURL+"/messages", p.headers(), payload)
	if err != nil {
		metrics.IncError("llm", "anthropic_request")
		return "", &entity.GenerationError{Provider: p.Name(), Stage: "request", Err: err}
	}
	if status != http.StatusOK {
		metrics.IncError("llm", fmt.Sprintf("anthropic_api_error_%d", status))
		return "", &entity.GenerationError{Provider: p.Name(), Stage: "response", Err: statusError(status, body)}
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &entity.GenerationError{Provider: p.Name(), Stage: "decode", Err: err}
	}
	for _, block := range parsed.Content {
		if block.Type == "text" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", &entity.GenerationError{Provider: p.Name(), Stage: "decode", Err: fmt.Errorf("response has no text content block")}
}
