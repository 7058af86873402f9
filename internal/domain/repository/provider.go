package repository

import (
	"context"

	"iacgenius/internal/domain/entity"
)

// Provider normalizes one LLM backend behind a uniform capability contract.
// Implementations are stateless apart from the credential resolved at
// construction.
type Provider interface {
	// Name returns the registry identifier of the backend.
	Name() string
	// Validate issues a cheap read-only call to confirm the credential or
	// connection works. A failure is a *entity.ValidationError.
	Validate(ctx context.Context) error
	// ListModels enumerates the backend's models. Never a hard error: any
	// failure yields a Degraded list, which callers treat as "no constraint
	// on model choice".
	ListModels(ctx context.Context) entity.ModelList
	// Generate sends the prompt plus the fixed system instruction and
	// returns the single text completion. A response missing expected fields
	// is a *entity.GenerationError, never partial text.
	Generate(ctx context.Context, prompt, model string, temperature float64, maxTokens int) (string, error)
}
