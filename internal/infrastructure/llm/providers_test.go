package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iacgenius/internal/domain/entity"
)

func TestDeepseekGenerateExtractsContent(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  resource {} \n"}}]}`))
	}))
	defer srv.Close()

	p := &Deepseek{apiKey: "sk-x", baseURL: srv.URL, client: newHTTPClient(), logger: slog.Default()}

	code, err := p.Generate(context.Background(), "build a vpc", "deepseek-chat", 0.2, 2048)
	require.NoError(t, err)
	assert.Equal(t, "resource {}", code, "result is trimmed")
	assert.Equal(t, "Bearer sk-x", gotAuth)
	assert.Equal(t, "deepseek-chat", gotPayload["model"])

	msgs, ok := gotPayload["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	system := msgs[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, entity.SystemInstruction, system["content"])
}

func TestDeepseekGenerateMissingFieldFailsLoudly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{}}]}`))
	}))
	defer srv.Close()

	p := &Deepseek{apiKey: "sk-x", baseURL: srv.URL, client: newHTTPClient(), logger: slog.Default()}

	_, err := p.Generate(context.Background(), "x", "", 0.2, 100)
	require.Error(t, err)

	var genErr *entity.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "deepseek", genErr.Provider)
	assert.Equal(t, "decode", genErr.Stage)
}

func TestDeepseekGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := &Deepseek{apiKey: "sk-x", baseURL: srv.URL, client: newHTTPClient(), logger: slog.Default()}

	_, err := p.Generate(context.Background(), "x", "", 0.2, 100)
	var genErr *entity.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "response", genErr.Stage)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIListModelsDegradesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := &OpenAI{apiKey: "sk-x", baseURL: srv.URL, client: newHTTPClient(), logger: slog.Default()}

	list := p.ListModels(context.Background())
	assert.True(t, list.Degraded())
	assert.Empty(t, list.Models)
	assert.False(t, list.Constrains(), "degraded listing leaves model choice unconstrained")
}

func TestOpenAIListModelsSorted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"gpt-4o"},{"id":"gpt-3.5-turbo"},{"id":""}]}`))
	}))
	defer srv.Close()

	p := &OpenAI{apiKey: "sk-x", baseURL: srv.URL, client: newHTTPClient(), logger: slog.Default()}

	list := p.ListModels(context.Background())
	require.False(t, list.Degraded())
	assert.Equal(t, []string{"gpt-3.5-turbo", "gpt-4o"}, list.Models)
}

func TestAnthropicValidateTreatsBadRequestAsSuccess(t *testing.T) {
	var gotKey, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		http.Error(w, `{"error":{"type":"invalid_request_error"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := &Anthropic{apiKey: "sk-ant", baseURL: srv.URL, client: newHTTPClient(), logger: slog.Default()}

	require.NoError(t, p.Validate(context.Background()), "a 400 means the key was accepted")
	assert.Equal(t, "sk-ant", gotKey)
	assert.Equal(t, anthropicAPIVersion, gotVersion)
}

func TestAnthropicValidateRejectsBadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"authentication_error"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := &Anthropic{apiKey: "bad", baseURL: srv.URL, client: newHTTPClient(), logger: slog.Default()}

	err := p.Validate(context.Background())
	var valErr *entity.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "anthropic", valErr.Provider)
}

func TestAnthropicGenerateExtractsTextBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, entity.SystemInstruction, payload["system"], "system prompt is a top-level field")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"resource {}"}]}`))
	}))
	defer srv.Close()

	p := &Anthropic{apiKey: "sk-ant", baseURL: srv.URL, client: newHTTPClient(), logger: slog.Default()}

	code, err := p.Generate(context.Background(), "x", "", 0.2, 100)
	require.NoError(t, err)
	assert.Equal(t, "resource {}", code)
}

func TestOpenRouterListModelsMergesSeedAndCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"openai/gpt-4o"},{"id":"mistralai/mistral-large"}]}`))
	}))
	defer srv.Close()

	p := &OpenRouter{apiKey: "sk-or", baseURL: srv.URL, client: newHTTPClient(), logger: slog.Default()}

	list := p.ListModels(context.Background())
	require.False(t, list.Degraded())
	assert.Contains(t, list.Models, "mistralai/mistral-large")
	for _, seed := range openrouterKnownModels {
		assert.Contains(t, list.Models, seed)
	}
	// No duplicate for the seed that also appears in the catalog.
	count := 0
	for _, m := range list.Models {
		if m == "openai/gpt-4o" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestOpenRouterListModelsDegradesOnCatalogFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := &OpenRouter{apiKey: "sk-or", baseURL: srv.URL, client: newHTTPClient(), logger: slog.Default()}

	list := p.ListModels(context.Background())
	assert.True(t, list.Degraded())
	assert.False(t, list.Constrains(), "a failed listing must not restrict model choice")
	assert.Empty(t, list.Models)
}

func TestOllamaConstructorChecksConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.1"}]}`))
	}))
	defer srv.Close()

	p, err := newOllama(context.Background(), "", Options{OllamaBaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	list := p.ListModels(context.Background())
	assert.Equal(t, []string{"llama3.1"}, list.Models)
}

func TestOllamaConstructorFailsWhenDaemonUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // reserve and release a port nothing listens on

	_, err := newOllama(context.Background(), "", Options{OllamaBaseURL: srv.URL})
	require.Error(t, err)

	var cfgErr *entity.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "ollama", cfgErr.Provider)
}

func TestOllamaGenerate(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/chat":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
			_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"resource {}"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p, err := newOllama(context.Background(), "", Options{OllamaBaseURL: srv.URL})
	require.NoError(t, err)

	code, err := p.Generate(context.Background(), "x", "llama3.1", 0.3, 512)
	require.NoError(t, err)
	assert.Equal(t, "resource {}", code)
	assert.Equal(t, false, gotPayload["stream"])

	opts, ok := gotPayload["options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0.3, opts["temperature"])
	assert.Equal(t, float64(512), opts["num_predict"])
}

func TestBedrockRequestBodiesPerFamily(t *testing.T) {
	t.Run("anthropic", func(t *testing.T) {
		body, err := bedrockRequestBody("anthropic.claude-3-sonnet-20240229-v1:0", "p", 0.2, 100)
		require.NoError(t, err)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "bedrock-2023-05-31", payload["anthropic_version"])
		assert.Equal(t, entity.SystemInstruction, payload["system"])
	})

	t.Run("meta", func(t *testing.T) {
		body, err := bedrockRequestBody("meta.llama3-70b-instruct-v1:0", "p", 0.2, 100)
		require.NoError(t, err)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Contains(t, payload["prompt"], "[INST]")
		assert.Equal(t, float64(100), payload["max_gen_len"])
	})

	t.Run("amazon", func(t *testing.T) {
		body, err := bedrockRequestBody("amazon.titan-text-express-v1", "p", 0.2, 100)
		require.NoError(t, err)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Contains(t, payload["inputText"], "p")
		cfg := payload["textGenerationConfig"].(map[string]any)
		assert.Equal(t, float64(100), cfg["maxTokenCount"])
	})

	t.Run("unknown family", func(t *testing.T) {
		_, err := bedrockRequestBody("cohere.command-r", "p", 0.2, 100)
		assert.Error(t, err)
	})
}

func TestBedrockExtractTextPerFamily(t *testing.T) {
	cases := []struct {
		name    string
		modelID string
		body    string
		want    string
	}{
		{"anthropic", "anthropic.claude-3-haiku-20240307-v1:0", `{"content":[{"type":"text","text":"a"}]}`, "a"},
		{"meta", "meta.llama3-8b-instruct-v1:0", `{"generation":"b"}`, "b"},
		{"amazon", "amazon.titan-text-express-v1", `{"results":[{"outputText":"c"}]}`, "c"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := bedrockExtractText(tc.modelID, []byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("missing field fails loudly", func(t *testing.T) {
		_, err := bedrockExtractText("meta.llama3-8b-instruct-v1:0", []byte(`{}`))
		assert.Error(t, err)
	})
}
