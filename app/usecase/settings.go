package usecase

import (
	"context"
	"log/slog"

	"iacgenius/internal/domain/entity"
	"iacgenius/internal/domain/repository"
	"iacgenius/internal/infrastructure/llm"
)

// SettingsService fronts the settings store with the validation the store
// itself cannot do: provider names against the registry, model names against
// the provider's listing.
type SettingsService struct {
	store  repository.SettingsStore
	opts   llm.Options
	logger *slog.Logger
}

func NewSettingsService(store repository.SettingsStore, opts llm.Options, logger *slog.Logger) *SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsService{store: store, opts: opts, logger: logger}
}

// Get returns the effective defaults, environment overrides applied.
func (s *SettingsService) Get() (entity.Settings, error) {
	return s.store.Read()
}

// Update validates and merges partial into the stored defaults. An unknown
// provider is rejected with the registered set; a model outside the
// provider's listing is rejected with the listed set. A degraded listing
// constrains nothing, so the model passes through.
func (s *SettingsService) Update(ctx context.Context, partial entity.Settings) (entity.Settings, error) {
	if partial.Provider != "" {
		if !knownProvider(partial.Provider) {
			return entity.Settings{}, entity.NewConfigError(partial.Provider, llm.Providers(), "unknown provider")
		}
	}
	if partial.Model != "" {
		if err := s.checkModel(ctx, partial); err != nil {
			return entity.Settings{}, err
		}
	}
	return s.store.Update(partial)
}

// SavePreset stores a named settings bundle after the same validation as
// Update.
func (s *SettingsService) SavePreset(ctx context.Context, name string, settings entity.Settings) error {
	if settings.Provider != "" && !knownProvider(settings.Provider) {
		return entity.NewConfigError(settings.Provider, llm.Providers(), "unknown provider")
	}
	return s.store.SavePreset(name, settings)
}

// Preset returns the named settings bundle.
func (s *SettingsService) Preset(name string) (entity.Settings, bool, error) {
	return s.store.Preset(name)
}

// DeletePreset removes the named settings bundle.
func (s *SettingsService) DeletePreset(name string) error {
	return s.store.DeletePreset(name)
}

func (s *SettingsService) checkModel(ctx context.Context, partial entity.Settings) error {
	providerName := partial.Provider
	if providerName == "" {
		stored, err := s.store.Read()
		if err != nil {
			return err
		}
		providerName = stored.Provider
	}

	list, err := s.listModels(ctx, providerName, partial.APIKey)
	if err != nil {
		// No constructable provider means no known model set to check against.
		s.logger.Debug("skipping model validation, provider not constructable", "provider", providerName, "err", err)
		return nil
	}
	if list.Constrains() && !list.Contains(partial.Model) {
		return &entity.ConfigError{
			Provider: providerName,
			Value:    partial.Model,
			Allowed:  list.Models,
			Reason:   "unknown model",
		}
	}
	return nil
}

func (s *SettingsService) listModels(ctx context.Context, providerName, explicitSecret string) (entity.ModelList, error) {
	stored, err := s.store.Read()
	if err != nil {
		return entity.ModelList{}, err
	}
	opts := s.opts
	opts.StoredSecret = stored.APIKey
	opts.Logger = s.logger

	p, err := llm.New(ctx, providerName, explicitSecret, opts)
	if err != nil {
		return entity.ModelList{}, err
	}
	return p.ListModels(ctx), nil
}

func knownProvider(name string) bool {
	for _, p := range llm.Providers() {
		if p == name {
			return true
		}
	}
	return false
}
