package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"iacgenius/internal/domain/entity"
	"iacgenius/internal/domain/repository"
	"iacgenius/internal/infrastructure/metrics"
)

// bedrockModelIDs maps friendly names to Bedrock model identifiers. Friendly
// names are what users configure; raw identifiers pass through untouched.
var bedrockModelIDs = map[string]string{
	"claude-3-sonnet": "anthropic.claude-3-sonnet-20240229-v1:0",
	"claude-3-haiku":  "anthropic.claude-3-haiku-20240307-v1:0",
	"llama3-70b":      "meta.llama3-70b-instruct-v1:0",
	"llama3-8b":       "meta.llama3-8b-instruct-v1:0",
	"titan-text":      "amazon.titan-text-express-v1",
}

// Bedrock invokes models through AWS Bedrock with ambient IAM credentials.
// Each model family speaks its own request and response dialect.
type Bedrock struct {
	runtime *bedrockruntime.Client
	control *bedrock.Client
	region  string
	logger  *slog.Logger
}

var _ repository.Provider = (*Bedrock)(nil)

func newBedrock(ctx context.Context, _ string, opts Options) (repository.Provider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, &entity.ConfigError{
			Provider: ProviderBedrock,
			Reason:   "failed to load AWS configuration",
			Err:      err,
		}
	}
	region := resolveBedrockRegion(opts, cfg.Region)
	if region == "" {
		return nil, &entity.ConfigError{
			Provider: ProviderBedrock,
			Reason:   "AWS region not configured (set AWS_REGION or a profile region)",
		}
	}
	cfg.Region = region

	return &Bedrock{
		runtime: bedrockruntime.NewFromConfig(cfg),
		control: bedrock.NewFromConfig(cfg),
		region:  region,
		logger:  opts.logger(),
	}, nil
}

func resolveBedrockRegion(opts Options, sdkRegion string) string {
	if opts.BedrockRegion != "" {
		return opts.BedrockRegion
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		return v
	}
	if v := os.Getenv("AWS_DEFAULT_REGION"); v != "" {
		return v
	}
	return sdkRegion
}

func (p *Bedrock) Name() string { return ProviderBedrock }

// Validate lists foundation models, which exercises both the credentials and
// the region's Bedrock availability.
func (p *Bedrock) Validate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if _, err := p.control.ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{}); err != nil {
		return &entity.ValidationError{Provider: p.Name(), Err: err}
	}
	return nil
}

func (p *Bedrock) ListModels(ctx context.Context) entity.ModelList {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := p.control.ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{})
	if err != nil {
		p.logger.Warn("model listing failed", "provider", p.Name(), "region", p.region, "err", err)
		metrics.IncListingDegraded(p.Name())
		return entity.DegradedModels(err.Error())
	}

	models := make([]string, 0, len(bedrockModelIDs)+len(out.ModelSummaries))
	for friendly := range bedrockModelIDs {
		models = append(models, friendly)
	}
	for _, summary := range out.ModelSummaries {
		if summary.ModelId != nil {
			models = append(models, *summary.ModelId)
		}
	}
	sort.Strings(models)
	return entity.OkModels(models)
}

func (p *Bedrock) Generate(ctx context.Context, prompt, model string, temperature float64, maxTokens int) (string, error) {
	if model == "" {
		model = "claude-3-sonnet"
	}
	modelID := model
	if mapped, ok := bedrockModelIDs[model]; ok {
		modelID = mapped
	}
	metrics.IncGenerationRequest(p.Name(), modelID)
	start := time.Now()
	defer func() { metrics.ObserveGenerationDuration(p.Name(), time.Since(start)) }()

	body, err := bedrockRequestBody(modelID, prompt, temperature, maxTokens)
	if err != nil {
		return "", &entity.GenerationError{Provider: p.Name(), Stage: "request", Err: err}
	}

	out, err := p.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		metrics.IncError("llm", "bedrock_invoke")
		return "", &entity.GenerationError{Provider: p.Name(), Stage: "response", Err: err}
	}

	text, err := bedrockExtractText(modelID, out.Body)
	if err != nil {
		return "", &entity.GenerationError{Provider: p.Name(), Stage: "decode", Err: err}
	}
	return strings.TrimSpace(text), nil
}

// bedrockRequestBody builds the family-specific invocation payload.
func bedrockRequestBody(modelID, prompt string, temperature float64, maxTokens int) ([]byte, error) {
	var payload any
	switch {
	case strings.HasPrefix(modelID, "anthropic."):
		payload = map[string]any{
			"anthropic_version": "bedrock-2023-05-31",
			"system":            entity.SystemInstruction,
			"messages":          []map[string]string{{"role": "user", "content": prompt}},
			"temperature":       temperature,
			"max_tokens":        maxTokens,
		}
	case strings.HasPrefix(modelID, "meta."):
		payload = map[string]any{
			"prompt":      fmt.Sprintf("[INST] %s\n\n%s [/INST]", entity.SystemInstruction, prompt),
			"temperature": temperature,
			"max_gen_len": maxTokens,
		}
	case strings.HasPrefix(modelID, "amazon."):
		payload = map[string]any{
			"inputText": entity.SystemInstruction + "\n\n" + prompt,
			"textGenerationConfig": map[string]any{
				"temperature":   temperature,
				"maxTokenCount": maxTokens,
			},
		}
	default:
		return nil, fmt.Errorf("unsupported model family for %q", modelID)
	}
	return json.Marshal(payload)
}

// bedrockExtractText pulls the generated text out of the family-specific
// response shape.
func bedrockExtractText(modelID string, body []byte) (string, error) {
	switch {
	case strings.HasPrefix(modelID, "anthropic."):
		var parsed struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", err
		}
		for _, block := range parsed.Content {
			if block.Type == "text" {
				return block.Text, nil
			}
		}
		return "", fmt.Errorf("response has no text content block")
	case strings.HasPrefix(modelID, "meta."):
		var parsed struct {
			Generation *string `json:"generation"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", err
		}
		if parsed.Generation == nil {
			return "", fmt.Errorf("response missing generation")
		}
		return *parsed.Generation, nil
	case strings.HasPrefix(modelID, "amazon."):
		var parsed struct {
			Results []struct {
				OutputText *string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", err
		}
		if len(parsed.Results) == 0 || parsed.Results[0].OutputText == nil {
			return "", fmt.Errorf("response missing results[0].outputText")
		}
		return *parsed.Results[0].OutputText, nil
	default:
		return "", fmt.Errorf("unsupported model family for %q", modelID)
	}
}
