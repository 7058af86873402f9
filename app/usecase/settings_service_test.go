package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iacgenius/internal/domain/entity"
	"iacgenius/internal/infrastructure/llm"
)

func TestSettingsUpdateRejectsUnknownProvider(t *testing.T) {
	store := &fakeSettingsStore{}
	svc := NewSettingsService(store, llm.Options{}, nil)

	_, err := svc.Update(context.Background(), entity.Settings{Provider: "unknown-vendor"})
	require.Error(t, err)

	var cfgErr *entity.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "unknown-vendor", cfgErr.Value)
	assert.Equal(t, llm.Providers(), cfgErr.Allowed)
	assert.Contains(t, err.Error(), "unknown-vendor")

	assert.True(t, store.settings.IsZero(), "nothing persisted on rejection")
}

func TestSettingsUpdateRejectsModelOutsideListing(t *testing.T) {
	backend := newFakeOllama(t, "x")
	store := &fakeSettingsStore{settings: entity.Settings{Provider: "ollama"}}
	svc := NewSettingsService(store, llm.Options{OllamaBaseURL: backend.srv.URL}, nil)

	_, err := svc.Update(context.Background(), entity.Settings{Provider: "ollama", Model: "not-pulled"})
	require.Error(t, err)

	var cfgErr *entity.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "not-pulled", cfgErr.Value)
	assert.Equal(t, []string{"llama3.1"}, cfgErr.Allowed)
}

func TestSettingsUpdateAcceptsListedModel(t *testing.T) {
	backend := newFakeOllama(t, "x")
	store := &fakeSettingsStore{settings: entity.Settings{Provider: "ollama"}}
	svc := NewSettingsService(store, llm.Options{OllamaBaseURL: backend.srv.URL}, nil)

	updated, err := svc.Update(context.Background(), entity.Settings{Provider: "ollama", Model: "llama3.1"})
	require.NoError(t, err)
	assert.Equal(t, "llama3.1", updated.Model)
}

func TestSettingsUpdateSkipsModelCheckWhenProviderNotConstructable(t *testing.T) {
	// No credential anywhere: deepseek cannot be constructed, so the model
	// passes through unvalidated.
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("IACGENIUS_API_KEY", "")

	store := &fakeSettingsStore{}
	svc := NewSettingsService(store, llm.Options{}, nil)

	updated, err := svc.Update(context.Background(), entity.Settings{Provider: "deepseek", Model: "deepseek-coder"})
	require.NoError(t, err)
	assert.Equal(t, "deepseek-coder", updated.Model)
}

func TestProviderServiceListsRegistry(t *testing.T) {
	svc := NewProviderService(&fakeSettingsStore{}, llm.Options{}, nil)
	assert.Equal(t, llm.Providers(), svc.Providers())
}

func TestProviderServiceModelsUsesStoredDefaultProvider(t *testing.T) {
	backend := newFakeOllama(t, "x")
	store := &fakeSettingsStore{settings: entity.Settings{Provider: "ollama"}}
	svc := NewProviderService(store, llm.Options{OllamaBaseURL: backend.srv.URL}, nil)

	list, err := svc.Models(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.1"}, list.Models)
}

func TestProviderServiceValidate(t *testing.T) {
	backend := newFakeOllama(t, "x")
	store := &fakeSettingsStore{settings: entity.Settings{Provider: "ollama"}}
	svc := NewProviderService(store, llm.Options{OllamaBaseURL: backend.srv.URL}, nil)

	assert.NoError(t, svc.Validate(context.Background(), "ollama", ""))
}
