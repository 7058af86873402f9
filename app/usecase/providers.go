package usecase

import (
	"context"
	"log/slog"

	"iacgenius/internal/domain/entity"
	"iacgenius/internal/domain/repository"
	"iacgenius/internal/infrastructure/llm"
)

// ProviderService answers the read-only provider questions front ends ask:
// what exists, what models does it have, does this credential work.
type ProviderService struct {
	store  repository.SettingsStore
	opts   llm.Options
	logger *slog.Logger
}

func NewProviderService(store repository.SettingsStore, opts llm.Options, logger *slog.Logger) *ProviderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProviderService{store: store, opts: opts, logger: logger}
}

// Providers lists the registered identifiers.
func (s *ProviderService) Providers() []string {
	return llm.Providers()
}

// Models lists the named provider's models. An empty providerName uses the
// stored default. The listing is soft: degradation comes back inside the
// ModelList, never as an error.
func (s *ProviderService) Models(ctx context.Context, providerName, explicitSecret string) (entity.ModelList, error) {
	p, err := s.construct(ctx, providerName, explicitSecret)
	if err != nil {
		return entity.ModelList{}, err
	}
	return p.ListModels(ctx), nil
}

// Validate confirms the named provider's credential or connection works.
func (s *ProviderService) Validate(ctx context.Context, providerName, explicitSecret string) error {
	p, err := s.construct(ctx, providerName, explicitSecret)
	if err != nil {
		return err
	}
	return p.Validate(ctx)
}

func (s *ProviderService) construct(ctx context.Context, providerName, explicitSecret string) (repository.Provider, error) {
	stored, err := s.store.Read()
	if err != nil {
		return nil, err
	}
	if providerName == "" {
		providerName = stored.Provider
	}
	opts := s.opts
	opts.StoredSecret = stored.APIKey
	opts.Logger = s.logger
	return llm.New(ctx, providerName, explicitSecret, opts)
}
